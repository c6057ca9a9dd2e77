package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"festsync/internal/config"
)

// Store persists raw payloads, normalized entities, and enrichment links.
type Store struct {
	db      *sql.DB
	dialect Dialect
	path    string
	lock    *flock.Flock
	now     func() time.Time
}

type openOptions struct {
	skipLock    bool
	skipMigrate bool
}

// OpenOption customizes Open.
type OpenOption func(*openOptions)

// ReadOnly skips the writer lock. Use for inspection commands that never write.
func ReadOnly() OpenOption {
	return func(o *openOptions) { o.skipLock = true }
}

// SkipMigrations opens the database without applying pending migrations.
func SkipMigrations() OpenOption {
	return func(o *openOptions) { o.skipMigrate = true }
}

// Open connects to the configured database, takes the writer lock, and
// applies pending migrations.
func Open(ctx context.Context, cfg *config.Config, opts ...OpenOption) (*Store, error) {
	var options openOptions
	for _, opt := range opts {
		opt(&options)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	var lock *flock.Flock
	if !options.skipLock {
		lockPath := cfg.LockPath()
		if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
			return nil, fmt.Errorf("ensure lock directory: %w", err)
		}
		lock = flock.New(lockPath)
		locked, err := lock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire store lock: %w", err)
		}
		if !locked {
			return nil, fmt.Errorf("database is in use by another festsync process (lock %s)", lockPath)
		}
	}

	store, err := connect(ctx, cfg)
	if err != nil {
		unlock(lock)
		return nil, err
	}
	store.lock = lock

	if !options.skipMigrate {
		if _, err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	return store, nil
}

func connect(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.Store.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres db: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("connect postgres db: %w", err)
		}
		return New(db, DialectPostgres), nil
	default:
		dbPath := cfg.DatabasePath()
		db, err := sql.Open("sqlite", dbPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite db: %w", err)
		}
		// A single connection keeps pragmas and transactions on one handle.
		db.SetMaxOpenConns(1)

		pragmas := []string{
			"PRAGMA journal_mode=WAL",
			"PRAGMA foreign_keys = ON",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA synchronous = NORMAL",
		}
		for _, pragma := range pragmas {
			if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
			}
		}
		store := New(db, DialectSQLite)
		store.path = dbPath
		return store, nil
	}
}

// New wraps an existing database handle. Migrations are not applied.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, now: time.Now}
}

// Dialect reports the SQL dialect of the underlying database.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Path returns the sqlite file backing the store, or "" for postgres.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the writer lock.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	unlock(s.lock)
	s.lock = nil
	return err
}

func unlock(lock *flock.Flock) {
	if lock != nil {
		_ = lock.Unlock()
	}
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
