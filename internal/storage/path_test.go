package storage

import (
	"errors"
	"testing"
)

func TestIsRemote(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"/media/originals/a.jpg", false},
		{"/", false},
		{"s3.us-west-2.amazonaws.com/bucket/key.jpg", true},
		{"s3.us-west-2.amazonaws.com/bucket/deep/nested/key.jpg", true},
		{"bucket/key.jpg", false},                 // two segments
		{"nodots/bucket/key.jpg", false},          // no dot in host
		{"s3.amazonaws.com/bucket", false},        // two segments despite dot
		{"relative/path/with.dot", false},         // dot not in first segment
		{"", false},
	}
	for _, c := range cases {
		if got := IsRemote(c.path); got != c.want {
			t.Errorf("IsRemote(%q) = %v, want %v", c.path, got, c.want)
		}
	}
}

func TestParseRemote(t *testing.T) {
	ref, err := ParseRemote("s3.eu-central-1.amazonaws.com/photos/ab/cd/abcd.jpg")
	if err != nil {
		t.Fatalf("ParseRemote failed: %v", err)
	}
	if ref.Host != "s3.eu-central-1.amazonaws.com" {
		t.Errorf("host = %q", ref.Host)
	}
	if ref.Bucket != "photos" {
		t.Errorf("bucket = %q", ref.Bucket)
	}
	if ref.Key != "ab/cd/abcd.jpg" {
		t.Errorf("key = %q", ref.Key)
	}
}

func TestParseRemoteMalformed(t *testing.T) {
	for _, path := range []string{"", "host.only", "host.only/bucket"} {
		if _, err := ParseRemote(path); !errors.Is(err, ErrMalformedPath) {
			t.Errorf("ParseRemote(%q) error = %v, want ErrMalformedPath", path, err)
		}
	}
}

func TestRemoteRefString(t *testing.T) {
	ref := RemoteRef{Host: "s3.wasabisys.com", Bucket: "b", Key: "k/x.mp4"}
	if got := ref.String(); got != "s3.wasabisys.com/b/k/x.mp4" {
		t.Errorf("String() = %q", got)
	}
}

func TestSameBucket(t *testing.T) {
	a := RemoteRef{Host: "h.example.com", Bucket: "b", Key: "k1"}
	b := RemoteRef{Host: "h.example.com", Bucket: "b", Key: "k2"}
	c := RemoteRef{Host: "h.example.com", Bucket: "other", Key: "k1"}
	if !a.SameBucket(b) {
		t.Error("same host+bucket should match")
	}
	if a.SameBucket(c) {
		t.Error("different bucket should not match")
	}
}
