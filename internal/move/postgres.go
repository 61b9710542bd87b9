package move

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS move_intents (
	id         TEXT PRIMARY KEY,
	entity_id  TEXT NOT NULL,
	kind       TEXT NOT NULL,
	old_path   TEXT NOT NULL,
	new_path   TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE (entity_id, kind)
)`

// PostgresStore persists move intents in PostgreSQL, for deployments
// where several processes share one intent table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database and ensures the intent table exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		return nil, fmt.Errorf("ensure intent table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Create inserts an intent. A unique-constraint conflict on the
// (entity, kind) key maps to ErrIntentExists.
func (s *PostgresStore) Create(ctx context.Context, intent *MoveIntent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO move_intents (id, entity_id, kind, old_path, new_path, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		intent.ID, intent.EntityID, intent.Kind, intent.OldPath, intent.NewPath, intent.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("intent for (%s, %s): %w", intent.EntityID, intent.Kind, ErrIntentExists)
		}
		return fmt.Errorf("create intent: %w", err)
	}
	return nil
}

// Get returns the intent for an (entity, kind) key.
func (s *PostgresStore) Get(ctx context.Context, entityID, kind string) (*MoveIntent, error) {
	var intent MoveIntent
	err := s.db.QueryRowContext(ctx,
		`SELECT id, entity_id, kind, old_path, new_path, created_at
		 FROM move_intents WHERE entity_id = $1 AND kind = $2`,
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

// Delete removes an intent by ID. Deleting an absent intent is not an
// error; the caller only cares that it is gone.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM move_intents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return nil
}
