// Package store persists cards, review logs, parameter override layers
// and optimization results in SQLite. It is the repository collaborator
// of the scheduling engine: the engine itself never touches storage.
//
// Card updates use optimistic concurrency. Every card row carries a
// version counter; UpdateCard only writes when the caller's version
// matches the stored one and returns ErrVersionConflict otherwise, so
// concurrent reviewers of the same card detect the race instead of
// silently overwriting each other.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("store: record not found")

	// ErrVersionConflict is returned when an update's version token no
	// longer matches the stored row.
	ErrVersionConflict = errors.New("store: card version conflict")
)

// Store is a SQLite-backed repository handle. Construct with Open;
// safe for concurrent use.
type Store struct {
	db  *sqlx.DB
	log *slog.Logger
}

// Open connects to the SQLite database at path, creating it if missing,
// and applies the schema. A nil logger disables logging.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: connect %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enable foreign keys: %w", err)
	}

	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, log: logger}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cards (
			id INTEGER PRIMARY KEY,
			deck_id INTEGER NOT NULL,
			state TEXT NOT NULL,
			step INTEGER NOT NULL DEFAULT 0,
			stability REAL NOT NULL DEFAULT 0,
			difficulty REAL NOT NULL DEFAULT 0,
			due TIMESTAMP NOT NULL,
			last_review TIMESTAMP,
			reps INTEGER NOT NULL DEFAULT 0,
			lapses INTEGER NOT NULL DEFAULT 0,
			elapsed_days REAL NOT NULL DEFAULT 0,
			scheduled_days REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			version INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cards_deck_due ON cards(deck_id, due)`,
		`CREATE TABLE IF NOT EXISTS review_logs (
			id TEXT PRIMARY KEY,
			card_id INTEGER NOT NULL REFERENCES cards(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL,
			rating INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			stability_before REAL NOT NULL,
			stability_after REAL NOT NULL,
			difficulty_before REAL NOT NULL,
			difficulty_after REAL NOT NULL,
			reviewed_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_review_logs_user_time ON review_logs(user_id, reviewed_at)`,
		`CREATE TABLE IF NOT EXISTS parameter_overrides (
			scope TEXT NOT NULL CHECK (scope IN ('user', 'deck')),
			scope_id TEXT NOT NULL,
			payload TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			PRIMARY KEY (scope, scope_id)
		)`,
		`CREATE TABLE IF NOT EXISTS optimization_results (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			weights_before TEXT NOT NULL,
			weights_after TEXT NOT NULL,
			loss_before REAL NOT NULL,
			loss_after REAL NOT NULL,
			improvement_percent REAL NOT NULL,
			rmse REAL NOT NULL,
			sample_size INTEGER NOT NULL,
			iterations INTEGER NOT NULL,
			optimized_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_optimization_results_user ON optimization_results(user_id, optimized_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}
