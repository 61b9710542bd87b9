//go:build !linux

package storage

import (
	"os"
	"time"
)

func isCrossDevice(err error) bool { return false }

func isDirNotEmpty(err error) bool { return err != nil }

func statTimes(info os.FileInfo) (atime, btime time.Time) {
	return info.ModTime(), info.ModTime()
}

func diskUsage(path string) (DiskUsage, error) {
	// Not knowable portably; report zeros rather than guessing.
	return DiskUsage{}, nil
}
