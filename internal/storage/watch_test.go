package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitFor(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event on %s", want)
		}
	}
}

func TestWatchDetectsCreateAndRemove(t *testing.T) {
	root := t.TempDir()
	added := make(chan string, 16)
	removed := make(chan string, 16)
	ready := make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := Watch(ctx, []string{root}, WatchCallbacks{
		OnAdd:    func(p string) { added <- p },
		OnRemove: func(p string) { removed <- p },
		OnReady:  func() { close(ready) },
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	defer w.Close()

	select {
	case <-ready:
	case <-time.After(time.Second):
		t.Fatal("ready callback never fired")
	}

	path := filepath.Join(root, "new.txt")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, added, path)

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	waitFor(t, removed, path)
}

func TestWatchNewSubdirectory(t *testing.T) {
	root := t.TempDir()
	added := make(chan string, 16)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w, err := Watch(ctx, []string{root}, WatchCallbacks{
		OnAdd: func(p string) { added <- p },
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}
	waitFor(t, added, sub)

	// Registration of the new directory races with writes into it; give
	// the event loop a moment to add the watch.
	time.Sleep(100 * time.Millisecond)

	inner := filepath.Join(sub, "inner.txt")
	if err := os.WriteFile(inner, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, added, inner)
}

func TestWatchRemoteRootUnsupported(t *testing.T) {
	_, err := Watch(context.Background(), []string{"s3.amazonaws.com/bucket/prefix"}, WatchCallbacks{})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}
