package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces threat hashes in a shared redis instance.
const keyPrefix = "threat:"

// RedisStore implements Store on a redis hash per indicator. Suited to
// deployments sharing the indicator cache across honeypot replicas.
type RedisStore struct {
	client *redis.Client
}

// NewRedis connects to the redis backing and verifies reachability.
func NewRedis(addr string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	return &RedisStore{client: client}, nil
}

// NewRedisFromClient wraps an existing client. Used by tests.
func NewRedisFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Lookup returns the record for indicator, or (nil, nil) when unknown.
func (r *RedisStore) Lookup(ctx context.Context, indicator string) (*ThreatRecord, error) {
	if indicator == "" {
		return nil, nil
	}

	fields, err := r.client.HGetAll(ctx, keyPrefix+indicator).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %q: %w", indicator, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	confidence, err := strconv.ParseFloat(fields["confidence"], 64)
	if err != nil {
		return nil, fmt.Errorf("parse confidence for %q: %w", indicator, err)
	}
	lastSeen, err := strconv.ParseInt(fields["last_seen"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse last_seen for %q: %w", indicator, err)
	}

	return &ThreatRecord{
		Indicator:  indicator,
		Kind:       Kind(fields["kind"]),
		Confidence: confidence,
		LastSeen:   time.Unix(lastSeen, 0),
	}, nil
}

// Upsert writes the record hash; HSET overwrites field-by-field so the
// last write wins. Empty indicators are a no-op.
func (r *RedisStore) Upsert(ctx context.Context, indicator string, kind Kind, confidence float64) error {
	if indicator == "" {
		return nil
	}

	err := r.client.HSet(ctx, keyPrefix+indicator,
		"kind", string(kind),
		"confidence", strconv.FormatFloat(confidence, 'f', -1, 64),
		"last_seen", strconv.FormatInt(time.Now().Unix(), 10),
	).Err()
	if err != nil {
		return fmt.Errorf("hset %q: %w", indicator, err)
	}
	return nil
}

// Ping verifies connectivity to the redis backing.
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the client's connections.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
