package storage

import (
	"errors"
	"fmt"
)

// Error kinds are produced once, at the point the backend operation fails.
// Callers match with errors.Is / errors.As and never re-derive conditions
// from error strings or OS codes.
var (
	// ErrNotFound is returned when a file or object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrCrossDevice is returned when a local rename spans filesystems.
	ErrCrossDevice = errors.New("cross-device rename")
	// ErrUnsupported is returned for operations the backend pair cannot
	// express, such as a rename between two buckets.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrMalformedPath is returned when a remote path has fewer than
	// three segments.
	ErrMalformedPath = errors.New("malformed remote path")
)

// ConfigError reports an unusable object-store endpoint: an unknown
// provider or missing credentials. It is fatal at first use and never
// retried.
type ConfigError struct {
	Host   string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("object store %s: %s", e.Host, e.Reason)
}

// VerifyError reports a size or checksum mismatch between a move source
// and its destination. It is never retried automatically.
type VerifyError struct {
	Path     string
	Kind     string // "size" or "checksum"
	Expected string
	Actual   string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s mismatch at %s: expected %s, got %s",
		e.Kind, e.Path, e.Expected, e.Actual)
}
