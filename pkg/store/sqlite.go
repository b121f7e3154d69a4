package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store on an embedded sqlite database. The
// default backend: durable across restarts with no external service.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the threat database at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	// WAL keeps concurrent pipeline lookups from blocking on upserts.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS threats (
		indicator TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		confidence REAL NOT NULL,
		last_seen INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Lookup returns the record for indicator, or (nil, nil) when unknown.
func (s *SQLiteStore) Lookup(ctx context.Context, indicator string) (*ThreatRecord, error) {
	if indicator == "" {
		return nil, nil
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT indicator, kind, confidence, last_seen FROM threats WHERE indicator = ?`, indicator)

	var rec ThreatRecord
	var kind string
	var lastSeen int64
	err := row.Scan(&rec.Indicator, &kind, &rec.Confidence, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan threat row: %w", err)
	}

	rec.Kind = Kind(kind)
	rec.LastSeen = time.Unix(lastSeen, 0)
	return &rec, nil
}

// Upsert writes the record, overwriting any previous detection of the
// same indicator. Empty indicators are a no-op.
func (s *SQLiteStore) Upsert(ctx context.Context, indicator string, kind Kind, confidence float64) error {
	if indicator == "" {
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO threats (indicator, kind, confidence, last_seen)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(indicator) DO UPDATE SET
			kind = excluded.kind,
			confidence = excluded.confidence,
			last_seen = excluded.last_seen`,
		indicator, string(kind), confidence, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert threat %q: %w", indicator, err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
