package hash

import (
	"strings"
	"testing"
)

func TestSumReaderKnownDigests(t *testing.T) {
	// Digests of the empty input.
	cases := []struct {
		algo Algorithm
		want string
	}{
		{SHA256, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{Blake2b, "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
	}
	for _, c := range cases {
		got, err := SumReader(c.algo, strings.NewReader(""))
		if err != nil {
			t.Fatalf("SumReader(%s) failed: %v", c.algo, err)
		}
		if got != c.want {
			t.Errorf("SumReader(%s) = %q, want %q", c.algo, got, c.want)
		}
	}
}

func TestDefaultAlgorithmIsBlake2b(t *testing.T) {
	a, err := SumReader("", strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := SumReader(Blake2b, strings.NewReader("content"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("empty algorithm should default to blake2b")
	}
}

func TestDifferentContentDifferentDigest(t *testing.T) {
	a, _ := SumReader(Blake2b, strings.NewReader("one"))
	b, _ := SumReader(Blake2b, strings.NewReader("two"))
	if a == b {
		t.Error("distinct inputs should not collide")
	}
}

func TestUnknownAlgorithm(t *testing.T) {
	if _, err := New("md5"); err == nil {
		t.Error("unknown algorithm should fail")
	}
}
