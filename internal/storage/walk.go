package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/papayastack/papaya/internal/logging"
	"github.com/papayastack/papaya/internal/metrics"
)

// WalkOptions controls directory traversal. Excludes are doublestar
// patterns matched against the path relative to the owning walk root.
type WalkOptions struct {
	Excludes      []string
	IncludeHidden bool
	BatchSize     int
}

const defaultBatchSize = 256

// Entry is one discovered file.
type Entry struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Crawl eagerly walks local roots and returns every regular file that
// survives filtering, sorted by path. Only local roots can be crawled.
func Crawl(ctx context.Context, roots []string, opts WalkOptions) ([]Entry, error) {
	start := time.Now()
	var entries []Entry

	for _, root := range roots {
		if IsRemote(root) {
			return nil, fmt.Errorf("crawl %s: %w", root, ErrUnsupported)
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				logging.Warn("crawl error, skipping", zap.String("path", path), zap.Error(err))
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			rel, relErr := filepath.Rel(root, path)
			if relErr != nil || rel == "." {
				return nil
			}

			if d.IsDir() {
				if skipEntry(rel, d.Name(), opts) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || skipEntry(rel, d.Name(), opts) {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				logging.Warn("crawl stat failed, skipping", zap.String("path", path), zap.Error(err))
				return nil
			}
			entries = append(entries, Entry{Path: path, Size: info.Size(), ModTime: info.ModTime()})
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("crawl %s: %w", root, err)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	metrics.RecordCrawl(len(entries), time.Since(start))

	logging.Info("crawl finished",
		zap.Strings("roots", roots),
		zap.Int("files", len(entries)),
		zap.Duration("took", time.Since(start)))
	return entries, nil
}

// walkFrame is one pending directory together with the root it belongs
// to, so exclude patterns match against the right relative path.
type walkFrame struct {
	dir  string
	root string
}

// Walker traverses local roots incrementally. Callers pull batches with
// Next instead of receiving the whole tree at once, which keeps memory
// flat on very large libraries. The walker holds no goroutine; traversal
// state lives in an explicit directory stack advanced by each Next call.
// The sequence is finite, forward-only and not restartable.
type Walker struct {
	opts    WalkOptions
	stack   []walkFrame
	pending []Entry
	done    bool
}

// NewWalker prepares an incremental walk of local roots.
func NewWalker(roots []string, opts WalkOptions) (*Walker, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	w := &Walker{opts: opts}
	// Reversed so batches come out in the caller's root order.
	for i := len(roots) - 1; i >= 0; i-- {
		if IsRemote(roots[i]) {
			return nil, fmt.Errorf("walk %s: %w", roots[i], ErrUnsupported)
		}
		w.stack = append(w.stack, walkFrame{dir: roots[i], root: roots[i]})
	}
	return w, nil
}

// Next returns the next batch of files. It returns nil, nil once the walk
// is exhausted. Unreadable directories are logged and skipped.
func (w *Walker) Next(ctx context.Context) ([]Entry, error) {
	if w.done {
		return nil, nil
	}

	// Directories are expanded into the pending buffer so batches never
	// exceed the requested size even when one directory holds more.
	for len(w.pending) < w.opts.BatchSize && len(w.stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		frame := w.stack[len(w.stack)-1]
		w.stack = w.stack[:len(w.stack)-1]

		dirents, err := os.ReadDir(frame.dir)
		if err != nil {
			logging.Warn("walk readdir failed, skipping", zap.String("dir", frame.dir), zap.Error(err))
			continue
		}

		for _, d := range dirents {
			path := filepath.Join(frame.dir, d.Name())
			rel, relErr := filepath.Rel(frame.root, path)
			if relErr != nil {
				continue
			}
			if skipEntry(rel, d.Name(), w.opts) {
				continue
			}
			if d.IsDir() {
				w.stack = append(w.stack, walkFrame{dir: path, root: frame.root})
				continue
			}
			if !d.Type().IsRegular() {
				continue
			}
			info, err := d.Info()
			if err != nil {
				logging.Warn("walk stat failed, skipping", zap.String("path", path), zap.Error(err))
				continue
			}
			w.pending = append(w.pending, Entry{Path: path, Size: info.Size(), ModTime: info.ModTime()})
		}
	}

	n := len(w.pending)
	if n > w.opts.BatchSize {
		n = w.opts.BatchSize
	}
	batch := w.pending[:n:n]
	w.pending = w.pending[n:]

	if len(w.stack) == 0 && len(w.pending) == 0 {
		w.done = true
	}
	if len(batch) == 0 {
		return nil, nil
	}
	return batch, nil
}

func skipEntry(rel, name string, opts WalkOptions) bool {
	if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
		return true
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range opts.Excludes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
