// Package storage provides a gateway that addresses files uniformly on the
// local filesystem or an S3-compatible object store. Paths are classified by
// shape: absolute paths are local, "host/bucket/key" triples whose host
// contains a dot are remote.
package storage

import "strings"

// RemoteRef identifies an object on a remote store.
type RemoteRef struct {
	Host   string
	Bucket string
	Key    string
}

// String re-joins the reference into logical-path form.
func (r RemoteRef) String() string {
	return r.Host + "/" + r.Bucket + "/" + r.Key
}

// SameBucket reports whether two references address the same bucket on the
// same endpoint.
func (r RemoteRef) SameBucket(o RemoteRef) bool {
	return r.Host == o.Host && r.Bucket == o.Bucket
}

// IsRemote classifies a logical path. Paths beginning with "/" are local.
// Anything else is remote iff it has at least three slash-separated segments
// and the first segment contains a dot; ambiguous strings are treated as
// local-relative.
func IsRemote(path string) bool {
	if strings.HasPrefix(path, "/") {
		return false
	}
	segments := strings.Split(path, "/")
	return len(segments) >= 3 && strings.Contains(segments[0], ".")
}

// ParseRemote decomposes a remote logical path into host, bucket and key.
func ParseRemote(path string) (RemoteRef, error) {
	segments := strings.SplitN(path, "/", 3)
	if len(segments) < 3 || segments[0] == "" || segments[1] == "" || segments[2] == "" {
		return RemoteRef{}, ErrMalformedPath
	}
	return RemoteRef{
		Host:   segments[0],
		Bucket: segments[1],
		Key:    segments[2],
	}, nil
}
