package memory

import (
	"fmt"
	"sync"
	"testing"
)

func TestSessionsGetMiss(t *testing.T) {
	s := NewSessions(10)
	if got := s.Get("unknown"); got != nil {
		t.Errorf("Get on empty table = %+v, want nil", got)
	}
}

func TestSessionsPutGet(t *testing.T) {
	s := NewSessions(10)
	s.Put("a", &SessionState{SessionID: "a", Engaged: true})

	got := s.Get("a")
	if got == nil || !got.Engaged {
		t.Fatalf("Get(a) = %+v, want engaged state", got)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestSessionsCapacityInvariant(t *testing.T) {
	const capacity = 500
	s := NewSessions(capacity)

	// 501 distinct inserts: size stabilizes at capacity and the very
	// first session is the one evicted.
	for i := 0; i <= capacity; i++ {
		id := fmt.Sprintf("session-%d", i)
		s.Put(id, &SessionState{SessionID: id, Engaged: true})
	}

	if s.Len() != capacity {
		t.Errorf("Len = %d, want %d", s.Len(), capacity)
	}
	if s.Get("session-0") != nil {
		t.Error("session-0 should have been evicted as least-recently-used")
	}
	if s.Get("session-1") == nil {
		t.Error("session-1 should still be resident")
	}
	if s.Get(fmt.Sprintf("session-%d", capacity)) == nil {
		t.Error("newest session should be resident")
	}
}

func TestSessionsTouchProtectsFromEviction(t *testing.T) {
	s := NewSessions(3)
	for _, id := range []string{"a", "b", "c"} {
		s.Put(id, &SessionState{SessionID: id})
	}

	// Reading "a" makes it most-recently-used, so the next insert
	// evicts "b" instead.
	s.Get("a")
	s.Put("d", &SessionState{SessionID: "d"})

	if s.Get("a") == nil {
		t.Error("touched session evicted")
	}
	if s.Get("b") != nil {
		t.Error("least-recently-used session survived eviction")
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}
}

func TestSessionsPutExistingUpdates(t *testing.T) {
	s := NewSessions(2)
	s.Put("a", &SessionState{SessionID: "a", Turns: 1})
	s.Put("b", &SessionState{SessionID: "b"})
	s.Put("a", &SessionState{SessionID: "a", Turns: 2})

	if got := s.Get("a"); got == nil || got.Turns != 2 {
		t.Errorf("Get(a) = %+v, want updated state with 2 turns", got)
	}
	if s.Len() != 2 {
		t.Errorf("updating an existing key must not grow the table, Len = %d", s.Len())
	}
}

func TestSessionsTouch(t *testing.T) {
	s := NewSessions(10)

	first := s.Touch("a")
	if !first.Engaged || first.Turns != 1 {
		t.Errorf("first touch = %+v, want engaged with 1 turn", first)
	}

	second := s.Touch("a")
	if second.Turns != 2 {
		t.Errorf("second touch turns = %d, want 2", second.Turns)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestSessionsConcurrentAccess(t *testing.T) {
	s := NewSessions(50)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := fmt.Sprintf("g%d-s%d", g, i%60)
				s.Touch(id)
				s.Get(id)
			}
		}(g)
	}
	wg.Wait()

	if s.Len() > 50 {
		t.Errorf("capacity invariant violated under concurrency: Len = %d", s.Len())
	}
}
