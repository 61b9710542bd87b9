//go:build linux

package storage

import (
	"errors"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// isCrossDevice reports whether a rename failed because source and
// destination live on different filesystems.
func isCrossDevice(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == unix.EXDEV
}

// isDirNotEmpty reports whether a directory removal failed because the
// directory still has entries.
func isDirNotEmpty(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && (errno == unix.ENOTEMPTY || errno == unix.EEXIST)
}

// statTimes extracts access time from the raw stat structure. Plain
// stat(2) exposes no creation time on Linux, so birthtime falls back to
// mtime.
func statTimes(info os.FileInfo) (atime, btime time.Time) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime(), info.ModTime()
	}
	atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	return atime, info.ModTime()
}

// diskUsage reports filesystem capacity via statfs.
func diskUsage(path string) (DiskUsage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return DiskUsage{}, err
	}
	bsize := uint64(st.Bsize)
	return DiskUsage{
		Available: st.Bavail * bsize,
		Free:      st.Bfree * bsize,
		Total:     st.Blocks * bsize,
	}, nil
}
