package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RajB-1003/AI-Agentic-Honeypot/pkg/intel"
)

// ActivityEntry is one engaged exchange surfaced on the dashboard.
// Entries exist only for detected threats; clean traffic is not logged.
type ActivityEntry struct {
	ID           string       `json:"id"`
	Timestamp    time.Time    `json:"timestamp"`
	SessionID    string       `json:"session_id"`
	ScammerMsg   string       `json:"scammer_msg"`
	BotResponse  string       `json:"bot_response"`
	Intelligence intel.Bundle `json:"intelligence"`
	ThreatSource string       `json:"threat_source"`
}

// Activity is a bounded newest-first log of engaged exchanges. Append
// inserts at the front and drops past capacity as one atomic step; the
// oldest entry disappears silently.
type Activity struct {
	mu       sync.Mutex
	capacity int
	entries  []ActivityEntry
}

// DefaultActivitySize is the log capacity unless configured.
const DefaultActivitySize = 50

// NewActivity creates a bounded activity log.
// Non-positive capacities fall back to DefaultActivitySize.
func NewActivity(capacity int) *Activity {
	if capacity <= 0 {
		capacity = DefaultActivitySize
	}
	return &Activity{
		capacity: capacity,
		entries:  make([]ActivityEntry, 0, capacity),
	}
}

// Append records an exchange at the front of the log, assigning an id
// and timestamp if unset.
func (a *Activity) Append(entry ActivityEntry) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries = append([]ActivityEntry{entry}, a.entries...)
	if len(a.entries) > a.capacity {
		a.entries = a.entries[:a.capacity]
	}
}

// Snapshot returns a copy of the log, newest first. The caller owns the
// returned slice.
func (a *Activity) Snapshot() []ActivityEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]ActivityEntry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Len returns the number of retained entries.
func (a *Activity) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
