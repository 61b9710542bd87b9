package move

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "intents.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testIntent(entityID, kind string) *MoveIntent {
	return &MoveIntent{
		ID:        uuid.NewString(),
		EntityID:  entityID,
		Kind:      kind,
		OldPath:   "/old/path",
		NewPath:   "/new/path",
		CreatedAt: time.Now().UTC(),
	}
}

func TestSQLiteCreateGetDelete(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	intent := testIntent("e1", "original")
	if err := store.Create(ctx, intent); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := store.Get(ctx, "e1", "original")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != intent.ID || got.OldPath != "/old/path" || got.NewPath != "/new/path" {
		t.Errorf("got %+v", got)
	}

	if err := store.Delete(ctx, intent.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "e1", "original"); !errors.Is(err, ErrIntentNotFound) {
		t.Errorf("after delete, Get = %v, want ErrIntentNotFound", err)
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	store := testStore(t)
	if _, err := store.Get(context.Background(), "nobody", "original"); !errors.Is(err, ErrIntentNotFound) {
		t.Errorf("error = %v, want ErrIntentNotFound", err)
	}
}

func TestSQLiteUniquePerKey(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.Create(ctx, testIntent("e1", "original")); err != nil {
		t.Fatal(err)
	}
	if err := store.Create(ctx, testIntent("e1", "original")); !errors.Is(err, ErrIntentExists) {
		t.Errorf("duplicate Create = %v, want ErrIntentExists", err)
	}

	// Same entity, different kind holds a separate key.
	if err := store.Create(ctx, testIntent("e1", "thumbnail")); err != nil {
		t.Errorf("different kind should be allowed: %v", err)
	}
	// Different entity, same kind likewise.
	if err := store.Create(ctx, testIntent("e2", "original")); err != nil {
		t.Errorf("different entity should be allowed: %v", err)
	}
}

func TestSQLiteDeleteAbsent(t *testing.T) {
	store := testStore(t)
	if err := store.Delete(context.Background(), uuid.NewString()); err != nil {
		t.Errorf("deleting an absent intent should succeed: %v", err)
	}
}
