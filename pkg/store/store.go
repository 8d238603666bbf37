// Package store owns the durable record collection: observations and
// their embeddings, plus the session-scoped summary, prompt and
// checkpoint records. All mutations run inside transactions so readers
// never observe a partially-applied write.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

func init() {
	// Auto-register sqlite-vec extension
	sqlite_vec.Auto()
}

// DuplicateID is the sentinel returned when the dedup guard discards an
// insert. It is not an error: the caller already has this content.
const DuplicateID int64 = -1

// ErrValidation marks malformed caller input rejected before any store
// mutation.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("record not found")

// Config holds store configuration.
type Config struct {
	Path   string
	Logger zerolog.Logger
}

// Store is the single shared record store.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger

	// overridable for tests that need to move the clock
	now func() time.Time
}

// Open opens (or creates) the database at cfg.Path and applies pending
// migrations.
func Open(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("database path is required")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_fts5=1&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &Store{
		db:     db,
		logger: cfg.Logger,
		now:    time.Now,
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	s.logger.Debug().Str("path", cfg.Path).Msg("Store opened")
	return s, nil
}

// DB exposes the underlying handle for the index packages that share
// this store's tables.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Now returns the store's current time. Scoring uses this so results
// and dedup decisions share one clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, rolling back on error.
func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
