package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on a postgres table via pgx. Suited to
// deployments that feed the indicator cache into external threat-intel
// tooling or retention jobs.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to the database at dsn and ensures the schema.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS threats (
			indicator TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			last_seen TIMESTAMPTZ NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create threats table: %w", err)
	}
	return nil
}

// Lookup returns the record for indicator, or (nil, nil) when unknown.
func (s *PostgresStore) Lookup(ctx context.Context, indicator string) (*ThreatRecord, error) {
	if indicator == "" {
		return nil, nil
	}

	var rec ThreatRecord
	var kind string
	err := s.pool.QueryRow(ctx,
		`SELECT indicator, kind, confidence, last_seen FROM threats WHERE indicator = $1`,
		indicator).Scan(&rec.Indicator, &kind, &rec.Confidence, &rec.LastSeen)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query threat %q: %w", indicator, err)
	}

	rec.Kind = Kind(kind)
	return &rec, nil
}

// Upsert writes the record, overwriting any previous detection of the
// same indicator. Empty indicators are a no-op.
func (s *PostgresStore) Upsert(ctx context.Context, indicator string, kind Kind, confidence float64) error {
	if indicator == "" {
		return nil
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO threats (indicator, kind, confidence, last_seen)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (indicator) DO UPDATE SET
			kind = EXCLUDED.kind,
			confidence = EXCLUDED.confidence,
			last_seen = EXCLUDED.last_seen`,
		indicator, string(kind), confidence, time.Now())
	if err != nil {
		return fmt.Errorf("upsert threat %q: %w", indicator, err)
	}
	return nil
}

// Ping verifies connectivity to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
