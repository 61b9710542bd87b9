// Package move implements the crash-safe file relocation protocol. An
// intent record is persisted before any destructive step; the source copy
// of a file is never deleted until a verified successor exists.
package move

import (
	"context"
	"errors"
	"time"
)

// MoveIntent is the durable record of a relocation in progress. At most
// one intent may exist per (EntityID, Kind) at any time; its existence is
// the sole concurrency guard for that key.
type MoveIntent struct {
	ID        string
	EntityID  string
	Kind      string
	OldPath   string
	NewPath   string
	CreatedAt time.Time
}

var (
	// ErrIntentNotFound is returned by Store.Get when no intent exists
	// for the key.
	ErrIntentNotFound = errors.New("move intent not found")

	// ErrIntentExists is returned by Store.Create when an intent for the
	// same (entity, kind) already exists, meaning another mover holds
	// the key.
	ErrIntentExists = errors.New("move intent already exists")
)

// Store persists move intents. Implementations must enforce uniqueness
// on (EntityID, Kind) so a concurrent Create surfaces as ErrIntentExists
// rather than a second intent.
type Store interface {
	Create(ctx context.Context, intent *MoveIntent) error
	Get(ctx context.Context, entityID, kind string) (*MoveIntent, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
