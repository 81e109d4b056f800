package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/HendryAvila/coherence/internal/outcome"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// SessionStore is what the session controller needs from persistence.
type SessionStore interface {
	// Load returns the stored counters, or zero counters on any failure.
	Load() Counters
	// Save writes the counters best effort.
	Save(c Counters) outcome.Outcome
}

// ─── Config ──────────────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
	Logger  *slog.Logger
}

// DefaultConfig returns the default store configuration.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{DataDir: filepath.Join(home, ".coherence")}
}

// ─── SQLite store ────────────────────────────────────────────────────────────

// SQLiteStore keeps key/value records in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
	hooks  storeHooks
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

type storeHooks struct {
	exec     func(db execer, query string, args ...any) (sql.Result, error)
	queryRow func(db *sql.DB, query string, args ...any) rowScanner
}

type rowScanner interface {
	Scan(dest ...any) error
}

func defaultStoreHooks() storeHooks {
	return storeHooks{
		exec: func(db execer, query string, args ...any) (sql.Result, error) {
			return db.Exec(query, args...)
		},
		queryRow: func(db *sql.DB, query string, args ...any) rowScanner {
			return db.QueryRow(query, args...)
		},
	}
}

// New opens (creating if needed) coherence.db under cfg.DataDir with
// WAL mode and runs migrations.
func New(cfg Config) (*SQLiteStore, error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "coherence.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	s := &SQLiteStore{db: db, logger: logger, hooks: defaultStoreHooks()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	_, err := s.hooks.exec(s.db, `
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);
	`)
	return err
}

// ─── Key/value access ────────────────────────────────────────────────────────

// Get returns the value stored under key. ok is false when the key is absent.
func (s *SQLiteStore) Get(key string) (value string, ok bool, err error) {
	row := s.hooks.queryRow(s.db, `SELECT value FROM kv WHERE key = ?`, key)
	if err := row.Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("store: get %q: %w", key, err)
	}
	return value, true, nil
}

// Put upserts value under key.
func (s *SQLiteStore) Put(key, value string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.hooks.exec(s.db, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("store: put %q: %w", key, err)
	}
	return nil
}

// ─── SessionStore ────────────────────────────────────────────────────────────

// Load reads the counters record. A missing, unreadable or unparsable
// record yields zero counters.
func (s *SQLiteStore) Load() Counters {
	raw, ok, err := s.Get(CountersKey)
	if err != nil {
		s.logger.Warn("session counters unreadable, starting from zero", "error", err)
		return Counters{}
	}
	if !ok {
		return Counters{}
	}
	c, ok := DecodeCounters([]byte(raw))
	if !ok {
		s.logger.Warn("session counters malformed, starting from zero")
	}
	return c
}

// Save writes the counters record. Failures are logged and reported
// as a degraded outcome, never returned as errors.
func (s *SQLiteStore) Save(c Counters) outcome.Outcome {
	data, err := EncodeCounters(c)
	if err == nil {
		err = s.Put(CountersKey, string(data))
	}
	if err != nil {
		s.logger.Warn("session counters not saved", "error", err)
		return outcome.Failed("save_counters", outcome.StatusDegraded, err)
	}
	return outcome.OK("save_counters")
}
