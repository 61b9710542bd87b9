package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeTree(t *testing.T, root string, files []string) {
	t.Helper()
	for _, f := range files {
		path := filepath.Join(root, f)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestCrawl(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{
		"a.jpg",
		"sub/b.jpg",
		"sub/deep/c.mp4",
		".hidden/d.jpg",
		"sub/.dotfile",
	})

	entries, err := Crawl(context.Background(), []string{root}, WalkOptions{})
	if err != nil {
		t.Fatalf("Crawl failed: %v", err)
	}

	var got []string
	for _, e := range entries {
		rel, _ := filepath.Rel(root, e.Path)
		got = append(got, rel)
	}
	want := []string{"a.jpg", "sub/b.jpg", "sub/deep/c.mp4"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCrawlIncludeHidden(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"a.jpg", ".hidden/b.jpg"})

	entries, err := Crawl(context.Background(), []string{root}, WalkOptions{IncludeHidden: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d entries, want 2", len(entries))
	}
}

func TestCrawlExcludes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{
		"keep.jpg",
		"cache/skip.jpg",
		"sub/thumb.png",
	})

	entries, err := Crawl(context.Background(), []string{root}, WalkOptions{
		Excludes: []string{"cache/**", "**/*.png"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if filepath.Base(entries[0].Path) != "keep.jpg" {
		t.Errorf("kept %q", entries[0].Path)
	}
}

func TestCrawlMultipleRoots(t *testing.T) {
	rootA := t.TempDir()
	rootB := t.TempDir()
	writeTree(t, rootA, []string{"a.jpg"})
	writeTree(t, rootB, []string{"b.jpg", "sub/c.jpg"})

	entries, err := Crawl(context.Background(), []string{rootA, rootB}, WalkOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("got %d entries, want 3", len(entries))
	}
}

func TestCrawlRemoteRootUnsupported(t *testing.T) {
	_, err := Crawl(context.Background(), []string{"s3.amazonaws.com/bucket/prefix"}, WalkOptions{})
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error = %v, want ErrUnsupported", err)
	}
}

func TestWalkerYieldsEveryFileOnce(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"a", "b", "sub1/c", "sub1/d", "sub2/e", "sub2/deep/f", "g",
	}
	writeTree(t, root, files)

	w, err := NewWalker([]string{root}, WalkOptions{BatchSize: 2})
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]int)
	for {
		batch, err := w.Next(context.Background())
		if err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if batch == nil {
			break
		}
		if len(batch) > 2 {
			t.Errorf("batch of %d exceeds requested size 2", len(batch))
		}
		for _, e := range batch {
			rel, _ := filepath.Rel(root, e.Path)
			seen[rel]++
		}
	}

	if len(seen) != len(files) {
		t.Errorf("saw %d files, want %d: %v", len(seen), len(files), seen)
	}
	for f, n := range seen {
		if n != 1 {
			t.Errorf("file %q yielded %d times", f, n)
		}
	}

	// Exhausted walker keeps returning nil.
	if batch, err := w.Next(context.Background()); batch != nil || err != nil {
		t.Errorf("exhausted Next = %v, %v", batch, err)
	}
}

func TestWalkerCancellation(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, []string{"a", "b"})

	w, err := NewWalker([]string{root}, WalkOptions{})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := w.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestSkipEntrySorted(t *testing.T) {
	// Crawl promises sorted output regardless of readdir order.
	root := t.TempDir()
	writeTree(t, root, []string{"z", "m", "a"})

	entries, err := Crawl(context.Background(), []string{root}, WalkOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !sort.SliceIsSorted(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path }) {
		t.Error("crawl output not sorted")
	}
}
