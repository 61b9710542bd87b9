package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// LocalBackend executes file operations against the local filesystem.
// It is a thin pass-through to OS calls; its one responsibility beyond
// that is mapping OS failures to the package's named error kinds at the
// point they occur.
type LocalBackend struct{}

// NewLocalBackend returns a local filesystem backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{}
}

// Open opens a file for reading.
func (b *LocalBackend) Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("open %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// ReadFile reads the whole file.
func (b *LocalBackend) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes content atomically via a temp file and rename,
// creating parent directories as needed. An existing file is replaced.
func (b *LocalBackend) WriteFile(path string, content io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, fmt.Errorf("create dirs for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".papaya-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, content)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("close temp for %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("rename temp to %s: %w", path, err)
	}

	return n, nil
}

// WriteFileExclusive writes content to a path that must not already exist.
func (b *LocalBackend) WriteFileExclusive(path string, content io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("create dirs for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}

	n, err := io.Copy(f, content)
	if err != nil {
		f.Close()
		os.Remove(path)
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("close %s: %w", path, err)
	}

	return n, nil
}

// AppendFile appends content to an existing file, creating it if absent.
func (b *LocalBackend) AppendFile(path string, content io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", path, err)
	}

	n, err := io.Copy(f, content)
	if err != nil {
		f.Close()
		return n, fmt.Errorf("append %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", path, err)
	}

	return n, nil
}

// Stat returns file metadata.
func (b *LocalBackend) Stat(path string) (FileStat, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileStat{}, fmt.Errorf("stat %s: %w", path, ErrNotFound)
		}
		return FileStat{}, fmt.Errorf("stat %s: %w", path, err)
	}

	atime, btime := statTimes(info)
	return FileStat{
		Size:       info.Size(),
		ModTime:    info.ModTime(),
		AccessTime: atime,
		BirthTime:  btime,
		IsDir:      info.IsDir(),
	}, nil
}

// Exists reports whether the path exists.
func (b *LocalBackend) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// Rename atomically renames within one filesystem. A rename that spans
// filesystems fails with ErrCrossDevice so callers can fall back to
// copy+delete.
func (b *LocalBackend) Rename(oldPath, newPath string) error {
	if err := os.Rename(oldPath, newPath); err != nil {
		if isCrossDevice(err) {
			return fmt.Errorf("rename %s -> %s: %w", oldPath, newPath, ErrCrossDevice)
		}
		if os.IsNotExist(err) {
			return fmt.Errorf("rename %s -> %s: %w", oldPath, newPath, ErrNotFound)
		}
		return fmt.Errorf("rename %s -> %s: %w", oldPath, newPath, err)
	}
	return nil
}

// Copy copies a file, preserving mode and timestamps. The destination is
// written atomically via a temp file and rename.
func (b *LocalBackend) Copy(srcPath, dstPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("open src %s: %w", srcPath, ErrNotFound)
		}
		return fmt.Errorf("open src %s: %w", srcPath, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return fmt.Errorf("stat src %s: %w", srcPath, err)
	}

	if _, err := b.WriteFile(dstPath, src); err != nil {
		return fmt.Errorf("copy %s -> %s: %w", srcPath, dstPath, err)
	}

	if err := os.Chmod(dstPath, info.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod %s: %w", dstPath, err)
	}
	atime, _ := statTimes(info)
	if atime.IsZero() {
		atime = info.ModTime()
	}
	if err := os.Chtimes(dstPath, atime, info.ModTime()); err != nil {
		return fmt.Errorf("chtimes %s: %w", dstPath, err)
	}

	return nil
}

// Remove deletes a file. A missing file maps to ErrNotFound; the gateway
// decides whether that matters.
func (b *LocalBackend) Remove(path string) error {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("remove %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

// MkdirAll creates a directory and any missing parents.
func (b *LocalBackend) MkdirAll(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// Chtimes sets access and modification times.
func (b *LocalBackend) Chtimes(path string, atime, mtime time.Time) error {
	if err := os.Chtimes(path, atime, mtime); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("chtimes %s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("chtimes %s: %w", path, err)
	}
	return nil
}

// DiskUsage reports filesystem capacity at the given path.
func (b *LocalBackend) DiskUsage(path string) (DiskUsage, error) {
	return diskUsage(path)
}

// PruneEmptyDirs removes empty directories under root, bottom-up. Root
// itself is kept. Directories that become empty because their children
// were pruned are removed in the same pass.
func (b *LocalBackend) PruneEmptyDirs(root string) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("prune %s: %w", root, ErrNotFound)
		}
		return fmt.Errorf("prune %s: %w", root, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		sub := filepath.Join(root, entry.Name())
		if err := b.PruneEmptyDirs(sub); err != nil {
			return err
		}
		// Remove fails with ENOTEMPTY when the subtree still has files.
		if err := os.Remove(sub); err != nil && !isDirNotEmpty(err) {
			return fmt.Errorf("prune %s: %w", sub, err)
		}
	}
	return nil
}
