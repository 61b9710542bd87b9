package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAddBytesUploaded(t *testing.T) {
	before := testutil.ToFloat64(bytesUploaded.WithLabelValues("s3"))
	AddBytesUploaded("s3", 2048)
	after := testutil.ToFloat64(bytesUploaded.WithLabelValues("s3"))
	if after-before != 2048 {
		t.Errorf("counter moved by %v, want 2048", after-before)
	}

	// Non-positive deltas are ignored; counters cannot go backwards.
	AddBytesUploaded("s3", 0)
	AddBytesUploaded("s3", -5)
	if got := testutil.ToFloat64(bytesUploaded.WithLabelValues("s3")); got != after {
		t.Errorf("counter = %v after non-positive adds, want %v", got, after)
	}
}

func TestAddBytesDownloaded(t *testing.T) {
	before := testutil.ToFloat64(bytesDownloaded.WithLabelValues("local"))
	AddBytesDownloaded("local", 100)
	if got := testutil.ToFloat64(bytesDownloaded.WithLabelValues("local")); got-before != 100 {
		t.Errorf("counter moved by %v, want 100", got-before)
	}
}
