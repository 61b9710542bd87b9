package move

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS move_intents (
	id         TEXT PRIMARY KEY,
	entity_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	old_path   TEXT NOT NULL,
	new_path   TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (entity_id, kind)
)`

// SQLiteStore persists move intents in a local SQLite file, for
// single-process deployments that have no PostgreSQL. The driver is pure
// Go, so no cgo toolchain is needed.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the intent database file.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open intent db: %w", err)
	}

	// SQLite serializes writers; a single connection avoids busy errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure intent table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database file.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create inserts an intent, mapping the unique-constraint conflict on the
// (entity, kind) key to ErrIntentExists.
func (s *SQLiteStore) Create(ctx context.Context, intent *MoveIntent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO move_intents (id, entity_id, kind, old_path, new_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		intent.ID, intent.EntityID, intent.Kind, intent.OldPath, intent.NewPath, intent.CreatedAt)
	if err != nil {
		var serr *sqlite.Error
		if errors.As(err, &serr) && serr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return fmt.Errorf("intent for (%s, %s): %w", intent.EntityID, intent.Kind, ErrIntentExists)
		}
		return fmt.Errorf("create intent: %w", err)
	}
	return nil
}

// Get returns the intent for an (entity, kind) key.
func (s *SQLiteStore) Get(ctx context.Context, entityID, kind string) (*MoveIntent, error) {
	var intent MoveIntent
	err := s.db.QueryRowContext(ctx,
		`SELECT id, entity_id, kind, old_path, new_path, created_at
		 FROM move_intents WHERE entity_id = ? AND kind = ?`,
		entityID, kind).Scan(
		&intent.ID, &intent.EntityID, &intent.Kind,
		&intent.OldPath, &intent.NewPath, &intent.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrIntentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get intent: %w", err)
	}
	return &intent, nil
}

// Delete removes an intent by ID.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM move_intents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return nil
}
