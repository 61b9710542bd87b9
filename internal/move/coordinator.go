package move

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/papayastack/papaya/internal/hash"
	"github.com/papayastack/papaya/internal/logging"
	"github.com/papayastack/papaya/internal/metrics"
	"github.com/papayastack/papaya/internal/storage"
)

// ErrAborted marks a relocation that was abandoned without destroying the
// source. Aborts usually reflect external interference (a concurrent
// manual file operation) rather than a defect; the caller keeps the old
// path and may retry on a later pass.
var ErrAborted = errors.New("move aborted")

// Request describes one relocation.
type Request struct {
	EntityID string
	Kind     string
	OldPath  string
	NewPath  string

	// ExpectedSize gates destination verification after a copy-based
	// move. Zero means "use the source's own size".
	ExpectedSize int64

	// ExpectedHash is the hex content digest to verify against when
	// checksum verification is enabled. Empty skips the checksum gate.
	ExpectedHash string
}

// CommitFunc persists the new path into the owning entity, keyed by path
// kind. It runs after the destination is proven durable and before the
// intent is deleted.
type CommitFunc func(ctx context.Context, entityID, kind, newPath string) error

// Gateway is the storage surface the coordinator drives.
// *storage.Gateway implements it.
type Gateway interface {
	EnsureParentDir(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	Stat(ctx context.Context, path string) (storage.FileStat, error)
	Rename(ctx context.Context, src, dst string) error
	OpenRead(ctx context.Context, path string) (*storage.ReadStream, error)
	UploadFromStream(ctx context.Context, body io.Reader, dest string, computeChecksum bool) (storage.UploadResult, error)
	SetTimes(ctx context.Context, path string, mtime, atime time.Time) error
	Unlink(ctx context.Context, path string) error
}

// Coordinator drives relocations through the storage gateway with a
// durable intent record guarding every destructive step.
type Coordinator struct {
	gateway        Gateway
	store          Store
	verifyChecksum bool
	hashAlgo       hash.Algorithm
}

// NewCoordinator creates a coordinator. verifyChecksum enables the
// content-hash gate on copy-based moves for requests that carry an
// expected digest.
func NewCoordinator(gw Gateway, store Store, verifyChecksum bool, algo hash.Algorithm) *Coordinator {
	return &Coordinator{
		gateway:        gw,
		store:          store,
		verifyChecksum: verifyChecksum,
		hashAlgo:       algo,
	}
}

// Move relocates a tracked file from req.OldPath to req.NewPath. The
// source is deleted only after the destination is verified; on any abort
// the intent record survives so a later invocation can reconcile.
func (c *Coordinator) Move(ctx context.Context, req Request, commit CommitFunc) error {
	start := time.Now()

	if req.OldPath == "" || req.OldPath == req.NewPath {
		metrics.RecordMove("noop", time.Since(start))
		return nil
	}

	if err := c.gateway.EnsureParentDir(ctx, req.NewPath); err != nil {
		return fmt.Errorf("prepare destination %s: %w", req.NewPath, err)
	}

	intent, err := c.store.Get(ctx, req.EntityID, req.Kind)
	switch {
	case err == nil:
		// A surviving intent means a prior attempt crashed mid-flight.
		return c.recover(ctx, intent, req, commit, start)

	case errors.Is(err, ErrIntentNotFound):
		oldExists, err := c.gateway.Exists(ctx, req.OldPath)
		if err != nil {
			return fmt.Errorf("probe %s: %w", req.OldPath, err)
		}
		if !oldExists {
			newExists, err := c.gateway.Exists(ctx, req.NewPath)
			if err != nil {
				return fmt.Errorf("probe %s: %w", req.NewPath, err)
			}
			if newExists {
				// Already moved by a completed earlier call; repeating
				// the request is a no-op.
				metrics.RecordMove("noop", time.Since(start))
				return nil
			}
			return fmt.Errorf("source %s: %w", req.OldPath, storage.ErrNotFound)
		}

		intent = &MoveIntent{
			ID:        uuid.NewString(),
			EntityID:  req.EntityID,
			Kind:      req.Kind,
			OldPath:   req.OldPath,
			NewPath:   req.NewPath,
			CreatedAt: time.Now().UTC(),
		}
		if err := c.store.Create(ctx, intent); err != nil {
			if errors.Is(err, ErrIntentExists) {
				return c.abort(start, fmt.Errorf("key held by concurrent mover: %w", ErrAborted))
			}
			return fmt.Errorf("record intent: %w", err)
		}

	default:
		return fmt.Errorf("look up intent: %w", err)
	}

	return c.relocate(ctx, intent, req, commit, start)
}

// recover reconciles a surviving intent by probing which of its paths
// still exist, then resumes, commits or aborts accordingly.
func (c *Coordinator) recover(ctx context.Context, intent *MoveIntent, req Request, commit CommitFunc, start time.Time) error {
	oldExists, err := c.gateway.Exists(ctx, intent.OldPath)
	if err != nil {
		return fmt.Errorf("probe %s: %w", intent.OldPath, err)
	}
	newExists, err := c.gateway.Exists(ctx, intent.NewPath)
	if err != nil {
		return fmt.Errorf("probe %s: %w", intent.NewPath, err)
	}

	switch {
	case oldExists && !newExists:
		metrics.RecordIntentRecovery("resume_old")
		logging.Info("resuming interrupted move",
			zap.String("entity", intent.EntityID), zap.String("kind", intent.Kind))
		return c.relocate(ctx, intent, req, commit, start)

	case !oldExists && newExists:
		// The prior attempt got the bytes across before crashing. Verify
		// the survivor and finish the bookkeeping.
		metrics.RecordIntentRecovery("commit_new")
		if err := c.verify(ctx, intent.NewPath, req, storage.FileStat{Size: req.ExpectedSize}, false); err != nil {
			// The old copy is already gone; the mismatched survivor is
			// left in place for manual inspection.
			return c.abort(start, err)
		}
		return c.finish(ctx, intent, nil, commit, start)

	case oldExists && newExists:
		// Prefer old as the source of truth; new may be an incomplete
		// byproduct of the crash and will be overwritten.
		metrics.RecordIntentRecovery("both_present")
		return c.relocate(ctx, intent, req, commit, start)

	default:
		metrics.RecordIntentRecovery("lost")
		logging.Error("both paths of stored move intent are missing, manual intervention required",
			zap.String("entity", intent.EntityID),
			zap.String("kind", intent.Kind),
			zap.String("old", intent.OldPath),
			zap.String("new", intent.NewPath))
		return c.abort(start, fmt.Errorf("no surviving copy for (%s, %s): %w", intent.EntityID, intent.Kind, ErrAborted))
	}
}

// relocate moves the content, falling back to copy+verify when an atomic
// rename is impossible. The fallback covers both cross-device local
// renames and pairs no backend primitive renames at all (cross-bucket,
// local to remote); any other rename failure aborts with the intent kept.
func (c *Coordinator) relocate(ctx context.Context, intent *MoveIntent, req Request, commit CommitFunc, start time.Time) error {
	srcStat, err := c.gateway.Stat(ctx, intent.OldPath)
	if err != nil {
		return fmt.Errorf("stat source %s: %w", intent.OldPath, err)
	}

	err = c.gateway.Rename(ctx, intent.OldPath, intent.NewPath)
	switch {
	case err == nil:
		// Atomic rename carries the bytes and removes the source in one
		// step; nothing to verify and nothing to delete.
		return c.finish(ctx, intent, &srcStat, commit, start)

	case errors.Is(err, storage.ErrCrossDevice) || errors.Is(err, storage.ErrUnsupported):
		// Fall through to the copy path.

	default:
		// Intent stays for a future retry; nothing destructive happened.
		return c.abort(start, fmt.Errorf("rename %s -> %s: %w: %w", intent.OldPath, intent.NewPath, err, ErrAborted))
	}

	if err := c.copyAcross(ctx, intent.OldPath, intent.NewPath); err != nil {
		return c.abort(start, fmt.Errorf("copy %s -> %s: %w: %w", intent.OldPath, intent.NewPath, err, ErrAborted))
	}

	if err := c.verify(ctx, intent.NewPath, req, srcStat, true); err != nil {
		return c.abort(start, err)
	}

	// Destination proven durable and correct; source deletion is best
	// effort from here on.
	if err := c.gateway.SetTimes(ctx, intent.NewPath, srcStat.ModTime, srcStat.AccessTime); err != nil {
		logging.Warn("failed to carry timestamps to destination",
			zap.String("path", intent.NewPath), zap.Error(err))
	}
	if err := c.gateway.Unlink(ctx, intent.OldPath); err != nil {
		logging.Warn("failed to delete move source, continuing",
			zap.String("path", intent.OldPath), zap.Error(err))
	}

	return c.finish(ctx, intent, nil, commit, start)
}

// copyAcross streams the source to the destination. Streaming through
// the gateway bridges every backend pair, including cross-bucket and
// local-to-remote moves that no server-side primitive covers.
func (c *Coordinator) copyAcross(ctx context.Context, src, dst string) error {
	stream, err := c.gateway.OpenRead(ctx, src)
	if err != nil {
		return err
	}
	defer stream.Body.Close()

	_, err = c.gateway.UploadFromStream(ctx, stream.Body, dst, false)
	return err
}

// verify checks the destination against the expected size and, when
// enabled and a digest is known, the expected content hash. A mismatched
// destination is deleted when deleteOnMismatch is set (the source still
// exists); recovery paths keep it for inspection instead.
func (c *Coordinator) verify(ctx context.Context, dst string, req Request, srcStat storage.FileStat, deleteOnMismatch bool) error {
	expectedSize := req.ExpectedSize
	if expectedSize <= 0 {
		expectedSize = srcStat.Size
	}

	dstStat, err := c.gateway.Stat(ctx, dst)
	if err != nil {
		return fmt.Errorf("stat destination %s: %w", dst, err)
	}

	if expectedSize > 0 && dstStat.Size != expectedSize {
		metrics.RecordVerificationFailure("size")
		verr := &storage.VerifyError{
			Path:     dst,
			Kind:     "size",
			Expected: fmt.Sprintf("%d", expectedSize),
			Actual:   fmt.Sprintf("%d", dstStat.Size),
		}
		return c.failVerification(ctx, dst, verr, deleteOnMismatch)
	}

	if c.verifyChecksum && req.ExpectedHash != "" {
		stream, err := c.gateway.OpenRead(ctx, dst)
		if err != nil {
			return fmt.Errorf("open destination %s: %w", dst, err)
		}
		digest, err := hash.SumReader(c.hashAlgo, stream.Body)
		stream.Body.Close()
		if err != nil {
			return fmt.Errorf("hash destination %s: %w", dst, err)
		}
		if digest != req.ExpectedHash {
			metrics.RecordVerificationFailure("checksum")
			verr := &storage.VerifyError{
				Path:     dst,
				Kind:     "checksum",
				Expected: req.ExpectedHash,
				Actual:   digest,
			}
			return c.failVerification(ctx, dst, verr, deleteOnMismatch)
		}
	}

	return nil
}

func (c *Coordinator) failVerification(ctx context.Context, dst string, verr *storage.VerifyError, deleteDst bool) error {
	if deleteDst {
		if err := c.gateway.Unlink(ctx, dst); err != nil {
			logging.Warn("failed to delete unverified destination",
				zap.String("path", dst), zap.Error(err))
		}
	}
	return fmt.Errorf("%w: %w", verr, ErrAborted)
}

// finish runs the commit callback and deletes the intent. srcStat is nil
// when the source is already gone (rename path carries its own
// timestamps; recovery commits have no source left to read).
func (c *Coordinator) finish(ctx context.Context, intent *MoveIntent, srcStat *storage.FileStat, commit CommitFunc, start time.Time) error {
	if srcStat != nil {
		if err := c.gateway.SetTimes(ctx, intent.NewPath, srcStat.ModTime, srcStat.AccessTime); err != nil {
			logging.Warn("failed to carry timestamps to destination",
				zap.String("path", intent.NewPath), zap.Error(err))
		}
	}

	if commit != nil {
		if err := commit(ctx, intent.EntityID, intent.Kind, intent.NewPath); err != nil {
			// Intent survives; the next invocation lands in the
			// "only new exists" branch and retries the commit.
			return fmt.Errorf("commit new path %s: %w", intent.NewPath, err)
		}
	}

	if err := c.store.Delete(ctx, intent.ID); err != nil {
		// Reconciled on a later pass; an already-committed move is
		// treated as success by recovery.
		logging.Warn("failed to delete move intent",
			zap.String("intent", intent.ID), zap.Error(err))
	}

	metrics.RecordMove("moved", time.Since(start))
	logging.Info("move committed",
		zap.String("entity", intent.EntityID),
		zap.String("kind", intent.Kind),
		zap.String("old", intent.OldPath),
		zap.String("new", intent.NewPath))
	return nil
}

func (c *Coordinator) abort(start time.Time, err error) error {
	metrics.RecordMove("aborted", time.Since(start))
	logging.Warn("move aborted", zap.Error(err))
	return err
}
