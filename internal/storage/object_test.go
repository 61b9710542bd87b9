package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func TestCountingReader(t *testing.T) {
	payload := strings.Repeat("papaya", 500)
	cr := &countingReader{r: strings.NewReader(payload)}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, cr); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if cr.n != int64(len(payload)) {
		t.Errorf("counted %d bytes, want %d", cr.n, len(payload))
	}
	if buf.String() != payload {
		t.Error("payload altered in transit")
	}
}

func TestCountingReaderEmpty(t *testing.T) {
	cr := &countingReader{r: strings.NewReader("")}
	if _, err := io.Copy(io.Discard, cr); err != nil {
		t.Fatal(err)
	}
	if cr.n != 0 {
		t.Errorf("counted %d bytes, want 0", cr.n)
	}
}
