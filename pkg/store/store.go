// Package store persists threat indicators harvested by the pipeline.
// The backing is pluggable: any durable engine with exact-match lookup
// and last-write-wins upsert keyed by a single string satisfies the
// contract. Three backends ship: sqlite (default), redis and postgres.
package store

import (
	"context"
	"time"
)

// Kind classifies an indicator.
type Kind string

const (
	KindScamURL    Kind = "SCAM_URL"
	KindScamEmail  Kind = "SCAM_EMAIL"
	KindScamPhone  Kind = "SCAM_PHONE"
	KindScamBank   Kind = "SCAM_BANK_ACCOUNT"
	KindScamHandle Kind = "SCAM_PAYMENT_HANDLE"
)

// ThreatRecord is one persisted indicator. Indicator is the primary
// key: the normalized domain for links, the full string otherwise.
type ThreatRecord struct {
	Indicator  string    `json:"indicator"`
	Kind       Kind      `json:"kind"`
	Confidence float64   `json:"confidence"`
	LastSeen   time.Time `json:"last_seen"`
}

// Store is the durable indicator cache contract. Lookup is exact-match
// only and returns (nil, nil) when the indicator is unknown. Upsert
// overwrites kind/confidence/last_seen unconditionally: last write
// wins, duplicates are never appended, and records are never deleted by
// the core. Both must be safe for concurrent callers on the same key.
type Store interface {
	Lookup(ctx context.Context, indicator string) (*ThreatRecord, error)
	Upsert(ctx context.Context, indicator string, kind Kind, confidence float64) error
	Ping(ctx context.Context) error
	Close() error
}
