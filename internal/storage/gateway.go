package storage

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papayastack/papaya/internal/config"
	"github.com/papayastack/papaya/internal/hash"
	"github.com/papayastack/papaya/internal/logging"
)

// remoteCapacity is reported for remote roots, whose physical free space
// is not locally knowable.
const remoteCapacity = uint64(1) << 50 // 1 PiB

// Gateway is the single entry point for file operations. Each call is
// dispatched to the local or object backend based on path classification.
// The gateway owns its client cache; nothing here is process-global.
type Gateway struct {
	cfg    *config.Config
	local  *LocalBackend
	object *ObjectBackend
}

// NewGateway creates a gateway with its own object-store client cache.
func NewGateway(cfg *config.Config) *Gateway {
	clients := NewClientCache(cfg.S3ForcePathStyle)
	return &Gateway{
		cfg:    cfg,
		local:  NewLocalBackend(),
		object: NewObjectBackend(clients, cfg.MultipartPartSize),
	}
}

// Local exposes the local backend for callers that need local-only
// operations (directory pruning, disk stats on specific mounts).
func (g *Gateway) Local() *LocalBackend {
	return g.local
}

// ReadFile reads an entire file or object.
func (g *Gateway) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if !IsRemote(path) {
		return g.local.ReadFile(path)
	}
	ref, err := ParseRemote(path)
	if err != nil {
		return nil, err
	}
	stream, err := g.object.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer stream.Body.Close()
	data, err := io.ReadAll(stream.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// WriteFile writes a buffer, replacing any existing content.
func (g *Gateway) WriteFile(ctx context.Context, path string, data []byte) error {
	if !IsRemote(path) {
		_, err := g.local.WriteFile(path, bytes.NewReader(data))
		return err
	}
	ref, err := ParseRemote(path)
	if err != nil {
		return err
	}
	return g.object.Put(ctx, ref, data)
}

// WriteFileExclusive writes a buffer to a path that must not already
// exist. For remote destinations the existence probe and the write are
// not atomic; the durable-intent protocol above this layer is what
// guards concurrent writers.
func (g *Gateway) WriteFileExclusive(ctx context.Context, path string, data []byte) error {
	if !IsRemote(path) {
		_, err := g.local.WriteFileExclusive(path, bytes.NewReader(data))
		return err
	}
	ref, err := ParseRemote(path)
	if err != nil {
		return err
	}
	exists, err := g.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("create %s: %w", path, fs.ErrExist)
	}
	return g.object.Put(ctx, ref, data)
}

// OpenRead opens a read stream with length and content type when known.
func (g *Gateway) OpenRead(ctx context.Context, path string) (*ReadStream, error) {
	if IsRemote(path) {
		ref, err := ParseRemote(path)
		if err != nil {
			return nil, err
		}
		return g.object.Get(ctx, ref)
	}

	f, err := g.local.Open(path)
	if err != nil {
		return nil, err
	}
	length := int64(-1)
	if info, err := f.Stat(); err == nil {
		length = info.Size()
	}
	return &ReadStream{
		Body:        f,
		Length:      length,
		ContentType: mime.TypeByExtension(filepath.Ext(path)),
	}, nil
}

// Stat returns uniform file metadata for either backend.
func (g *Gateway) Stat(ctx context.Context, path string) (FileStat, error) {
	if !IsRemote(path) {
		return g.local.Stat(path)
	}
	ref, err := ParseRemote(path)
	if err != nil {
		return FileStat{}, err
	}
	info, err := g.object.Head(ctx, ref)
	if err != nil {
		return FileStat{}, err
	}
	return statFromInfo(info), nil
}

// Exists reports whether the path exists on its backend.
func (g *Gateway) Exists(ctx context.Context, path string) (bool, error) {
	if !IsRemote(path) {
		return g.local.Exists(path)
	}
	ref, err := ParseRemote(path)
	if err != nil {
		return false, err
	}
	if _, err := g.object.Head(ctx, ref); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Rename moves a file. Local pairs rename atomically (ErrCrossDevice when
// the paths span filesystems). Remote pairs in the same bucket are
// emulated as Copy+Delete. Everything else is ErrUnsupported.
func (g *Gateway) Rename(ctx context.Context, src, dst string) error {
	srcRemote, dstRemote := IsRemote(src), IsRemote(dst)

	switch {
	case !srcRemote && !dstRemote:
		return g.local.Rename(src, dst)

	case srcRemote && dstRemote:
		srcRef, err := ParseRemote(src)
		if err != nil {
			return err
		}
		dstRef, err := ParseRemote(dst)
		if err != nil {
			return err
		}
		if !srcRef.SameBucket(dstRef) {
			return fmt.Errorf("rename %s -> %s: %w", src, dst, ErrUnsupported)
		}
		if err := g.object.Copy(ctx, srcRef, dstRef, nil); err != nil {
			return err
		}
		return g.object.Delete(ctx, srcRef)

	default:
		return fmt.Errorf("rename %s -> %s: %w", src, dst, ErrUnsupported)
	}
}

// Copy copies a file within one backend. Remote pairs must share a
// bucket; cross-backend pairs are ErrUnsupported (use UploadFromStream or
// WithLocalPath to bridge backends).
func (g *Gateway) Copy(ctx context.Context, src, dst string) error {
	srcRemote, dstRemote := IsRemote(src), IsRemote(dst)

	switch {
	case !srcRemote && !dstRemote:
		return g.local.Copy(src, dst)

	case srcRemote && dstRemote:
		srcRef, err := ParseRemote(src)
		if err != nil {
			return err
		}
		dstRef, err := ParseRemote(dst)
		if err != nil {
			return err
		}
		if !srcRef.SameBucket(dstRef) {
			return fmt.Errorf("copy %s -> %s: %w", src, dst, ErrUnsupported)
		}
		return g.object.Copy(ctx, srcRef, dstRef, nil)

	default:
		return fmt.Errorf("copy %s -> %s: %w", src, dst, ErrUnsupported)
	}
}

// Unlink deletes a file. A local file that is already gone is the desired
// end state, so that case is downgraded to a warning.
func (g *Gateway) Unlink(ctx context.Context, path string) error {
	if !IsRemote(path) {
		if err := g.local.Remove(path); err != nil {
			if errors.Is(err, ErrNotFound) {
				logging.Warn("unlink of missing file", zap.String("path", path))
				return nil
			}
			return err
		}
		return nil
	}
	ref, err := ParseRemote(path)
	if err != nil {
		return err
	}
	return g.object.Delete(ctx, ref)
}

// SetTimes propagates modification and access times to either backend.
func (g *Gateway) SetTimes(ctx context.Context, path string, mtime, atime time.Time) error {
	if !IsRemote(path) {
		return g.local.Chtimes(path, atime, mtime)
	}
	ref, err := ParseRemote(path)
	if err != nil {
		return err
	}
	return g.object.SetTimes(ctx, ref, mtime, atime)
}

// EnsureParentDir creates the destination's parent directory for local
// paths. Object keys need no directories, so remote paths are a no-op.
func (g *Gateway) EnsureParentDir(ctx context.Context, path string) error {
	if IsRemote(path) {
		return nil
	}
	return g.local.MkdirAll(filepath.Dir(path))
}

// UploadFromStream streams bytes to the destination while counting them
// and, when requested, hashing them incrementally so hashing overlaps
// with the transfer instead of requiring a second pass.
func (g *Gateway) UploadFromStream(ctx context.Context, body io.Reader, dest string, computeChecksum bool) (UploadResult, error) {
	var hasher io.Writer = io.Discard
	var sum func() string
	if computeChecksum {
		h, err := hash.New(hash.Algorithm(g.cfg.HashAlgorithm))
		if err != nil {
			return UploadResult{}, err
		}
		hasher = h
		sum = func() string { return hex.EncodeToString(h.Sum(nil)) }
	}

	counter := &countingWriter{}
	tee := io.TeeReader(body, io.MultiWriter(hasher, counter))

	if !IsRemote(dest) {
		if _, err := g.local.WriteFile(dest, tee); err != nil {
			return UploadResult{}, err
		}
	} else {
		ref, err := ParseRemote(dest)
		if err != nil {
			return UploadResult{}, err
		}
		if err := g.object.PutStream(ctx, ref, tee); err != nil {
			return UploadResult{}, err
		}
	}

	result := UploadResult{Path: dest, Size: counter.n}
	if computeChecksum {
		result.Checksum = sum()
	}
	return result, nil
}

// WithLocalPath invokes fn with a genuine local filesystem path for the
// logical path. Local paths are passed through unchanged. Remote objects
// are downloaded to a uniquely named staging file that is removed after
// fn returns, regardless of outcome; uniqueness allows concurrent use of
// the same logical path.
func (g *Gateway) WithLocalPath(ctx context.Context, path string, fn func(localPath string) error) error {
	if !IsRemote(path) {
		return fn(path)
	}

	ref, err := ParseRemote(path)
	if err != nil {
		return err
	}
	stream, err := g.object.Get(ctx, ref)
	if err != nil {
		return err
	}
	defer stream.Body.Close()

	staged := g.stagingName(path)
	if _, err := g.local.WriteFile(staged, stream.Body); err != nil {
		return err
	}
	defer g.removeStaged(staged)

	return fn(staged)
}

// WriteViaLocal invokes fn to populate a local file for the logical
// destination. Local destinations receive the path unchanged (parents
// created first). For remote destinations fn populates a uniquely named
// staging file whose content is then uploaded; the staging file is
// removed afterward regardless of outcome.
func (g *Gateway) WriteViaLocal(ctx context.Context, path string, fn func(localPath string) error) error {
	if !IsRemote(path) {
		if err := g.local.MkdirAll(filepath.Dir(path)); err != nil {
			return err
		}
		return fn(path)
	}

	ref, err := ParseRemote(path)
	if err != nil {
		return err
	}

	staged := g.stagingName(path)
	defer g.removeStaged(staged)

	if err := fn(staged); err != nil {
		return err
	}

	f, err := g.local.Open(staged)
	if err != nil {
		return err
	}
	defer f.Close()
	return g.object.PutStream(ctx, ref, f)
}

// CheckDiskUsage reports capacity for a storage root. Remote roots report
// a fixed very large capacity since physical free space is not locally
// knowable.
func (g *Gateway) CheckDiskUsage(ctx context.Context, root string) (DiskUsage, error) {
	if IsRemote(root) {
		return DiskUsage{
			Available: remoteCapacity,
			Free:      remoteCapacity,
			Total:     remoteCapacity,
		}, nil
	}
	return g.local.DiskUsage(root)
}

func (g *Gateway) stagingName(path string) string {
	return filepath.Join(g.cfg.StagingDir, "papaya-"+uuid.NewString()+filepath.Ext(path))
}

func (g *Gateway) removeStaged(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("failed to remove staging file",
			zap.String("path", path), zap.Error(err))
	}
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
