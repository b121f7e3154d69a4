package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "threats.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteLookupMiss(t *testing.T) {
	s := newTestSQLite(t)

	rec, err := s.Lookup(context.Background(), "unknown.example")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec != nil {
		t.Errorf("Lookup on empty store = %+v, want nil", rec)
	}
}

func TestSQLiteUpsertAndLookup(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "secure-bank.bad", KindScamURL, 0.6); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	rec, err := s.Lookup(ctx, "secure-bank.bad")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if rec == nil {
		t.Fatal("Lookup returned nil after Upsert")
	}
	if rec.Kind != KindScamURL || rec.Confidence != 0.6 {
		t.Errorf("record = %+v, want SCAM_URL at 0.6", rec)
	}
	if rec.LastSeen.IsZero() {
		t.Error("last_seen not set")
	}
}

func TestSQLiteUpsertLastWriteWins(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "scam@example.com", KindScamEmail, 0.6); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "scam@example.com", KindScamEmail, 0.9); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Lookup(ctx, "scam@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Confidence != 0.9 {
		t.Errorf("confidence = %v, want 0.9 (last write wins)", rec.Confidence)
	}

	// Overwrites never append duplicates.
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM threats`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestSQLiteEmptyIndicatorNoop(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "", KindScamURL, 0.9); err != nil {
		t.Errorf("Upsert with empty indicator should be a no-op, got %v", err)
	}
	rec, err := s.Lookup(ctx, "")
	if err != nil || rec != nil {
		t.Errorf("Lookup(\"\") = (%+v, %v), want (nil, nil)", rec, err)
	}
}

func TestSQLiteExactMatchOnly(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	if err := s.Upsert(ctx, "secure-bank.bad", KindScamURL, 0.8); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Lookup(ctx, "bank.bad")
	if err != nil {
		t.Fatal(err)
	}
	if rec != nil {
		t.Errorf("substring lookup matched: %+v, want exact-match only", rec)
	}
}

func TestSQLiteConcurrentUpserts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_ = s.Upsert(ctx, "contested.example", KindScamURL, float64(g)/10)
			}
		}(g)
	}
	wg.Wait()

	rec, err := s.Lookup(ctx, "contested.example")
	if err != nil {
		t.Fatal(err)
	}
	if rec == nil {
		t.Fatal("record missing after concurrent upserts")
	}
	if rec.Confidence < 0 || rec.Confidence > 0.7 {
		t.Errorf("confidence = %v, want one of the written values", rec.Confidence)
	}
}
