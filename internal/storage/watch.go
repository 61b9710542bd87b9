package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/papayastack/papaya/internal/logging"
)

// WatchCallbacks receives filesystem events for a watched tree. Any nil
// callback is skipped. OnReady fires once, after the initial recursive
// registration completes, so callers can order a full crawl against the
// live event stream without missing changes in between.
type WatchCallbacks struct {
	OnAdd    func(path string)
	OnChange func(path string)
	OnRemove func(path string)
	OnReady  func()
	OnError  func(err error)
}

// Watch observes local directory trees recursively and dispatches events
// until ctx is cancelled or Close is called on the returned handle. New
// subdirectories are added to the watch as they appear.
func Watch(ctx context.Context, roots []string, cb WatchCallbacks) (*Watcher, error) {
	for _, root := range roots {
		if IsRemote(root) {
			return nil, fmt.Errorf("watch %s: %w", root, ErrUnsupported)
		}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}

	for _, root := range roots {
		if err := addRecursive(fsw, root); err != nil {
			fsw.Close()
			return nil, err
		}
	}

	w := &Watcher{fsw: fsw, done: make(chan struct{})}
	go w.run(ctx, cb)

	if cb.OnReady != nil {
		cb.OnReady()
	}
	logging.Info("watching directory trees", zap.Strings("roots", roots))
	return w, nil
}

// Watcher is a handle to a running recursive watch.
type Watcher struct {
	fsw  *fsnotify.Watcher
	done chan struct{}
}

// Close stops the watch and waits for the event loop to drain.
func (w *Watcher) Close() error {
	err := w.fsw.Close()
	<-w.done
	return err
}

func (w *Watcher) run(ctx context.Context, cb WatchCallbacks) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.dispatch(event, cb)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			if cb.OnError != nil {
				cb.OnError(err)
			} else {
				logging.Warn("watch error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) dispatch(event fsnotify.Event, cb WatchCallbacks) {
	switch {
	case event.Has(fsnotify.Create):
		// A created directory must join the watch before its own
		// contents start changing.
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := addRecursive(w.fsw, event.Name); err != nil {
				logging.Warn("failed to watch new directory",
					zap.String("path", event.Name), zap.Error(err))
			}
		}
		if cb.OnAdd != nil {
			cb.OnAdd(event.Name)
		}

	case event.Has(fsnotify.Write):
		if cb.OnChange != nil {
			cb.OnChange(event.Name)
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if cb.OnRemove != nil {
			cb.OnRemove(event.Name)
		}
	}
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("watch registration skipped", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
