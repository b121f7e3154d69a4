// Package memory holds the honeypot's process-wide mutable caches: the
// bounded LRU session table and the bounded recent-activity log. Both
// are explicit handles with atomic operations, never ambient globals.
package memory

import (
	"container/list"
	"sync"
	"time"
)

// SessionState is the ephemeral per-conversation engagement record.
// It lives only in the session table; eviction or restart erases it.
type SessionState struct {
	SessionID string    `json:"session_id"`
	Engaged   bool      `json:"engaged"`
	Turns     int       `json:"turns"`
	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// Sessions is a bounded, recency-ordered session table. Get and Put are
// atomic; the least-recently-used entry is evicted when an insert would
// exceed capacity, so size never passes the limit.
type Sessions struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
}

type sessionEntry struct {
	id    string
	state *SessionState
}

// DefaultMaxSessions is the session table capacity unless configured.
const DefaultMaxSessions = 500

// NewSessions creates a session table with the given capacity.
// Non-positive capacities fall back to DefaultMaxSessions.
func NewSessions(capacity int) *Sessions {
	if capacity <= 0 {
		capacity = DefaultMaxSessions
	}
	return &Sessions{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

// Get returns the state for sessionID, touching it to most-recently-used.
// Returns nil when the session is unknown.
func (s *Sessions) Get(sessionID string) *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.entries[sessionID]
	if !ok {
		return nil
	}
	s.order.MoveToFront(elem)
	return elem.Value.(*sessionEntry).state
}

// Put stores state under sessionID, touching it to most-recently-used.
// Inserting a new session at capacity evicts the least-recently-used
// entry first.
func (s *Sessions) Put(sessionID string, state *SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if elem, ok := s.entries[sessionID]; ok {
		elem.Value.(*sessionEntry).state = state
		s.order.MoveToFront(elem)
		return
	}

	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*sessionEntry).id)
		}
	}
	s.entries[sessionID] = s.order.PushFront(&sessionEntry{id: sessionID, state: state})
}

// Touch marks an engaged session's next turn: increments the turn
// counter and refreshes recency. Creates the session if absent.
func (s *Sessions) Touch(sessionID string) *SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if elem, ok := s.entries[sessionID]; ok {
		state := elem.Value.(*sessionEntry).state
		state.Turns++
		state.LastSeen = now
		s.order.MoveToFront(elem)
		return state
	}

	state := &SessionState{
		SessionID: sessionID,
		Engaged:   true,
		Turns:     1,
		FirstSeen: now,
		LastSeen:  now,
	}
	if s.order.Len() >= s.capacity {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*sessionEntry).id)
		}
	}
	s.entries[sessionID] = s.order.PushFront(&sessionEntry{id: sessionID, state: state})
	return state
}

// Len returns the number of tracked sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Capacity returns the configured maximum.
func (s *Sessions) Capacity() int {
	return s.capacity
}
