package storage

import (
	"io"
	"time"
)

// FileStat is a uniform stat result for both backends. For remote objects
// the timestamps come from custom object metadata when present, otherwise
// from the store's last-modified field.
type FileStat struct {
	Size       int64
	ModTime    time.Time
	AccessTime time.Time
	BirthTime  time.Time
	IsDir      bool
}

// ReadStream is an open read handle with whatever sizing information the
// backend could supply. Length is -1 when unknown.
type ReadStream struct {
	Body        io.ReadCloser
	Length      int64
	ContentType string
}

// UploadResult describes a completed streaming write.
type UploadResult struct {
	Path     string
	Size     int64
	Checksum string // hex; empty unless checksum computation was requested
}

// DiskUsage reports capacity for a storage root.
type DiskUsage struct {
	Available uint64
	Free      uint64
	Total     uint64
}
