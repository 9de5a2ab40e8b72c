// ABOUTME: Thread-safe bounded ring of locally-initiated workflow runs.
// ABOUTME: Newest entries first; the oldest entry is evicted at capacity.

package tracker

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds the tracker when no capacity is configured.
const DefaultMaxEntries = 200

// Record describes a single workflow run started through the bridge.
// ExecutionID may be empty when the upstream response did not expose one.
// Records are never mutated after creation.
type Record struct {
	WorkflowID  string
	ExecutionID string
	Payload     map[string]any
	StartedAt   time.Time
}

// Tracker is a bounded, concurrency-safe, most-recent-first run log.
type Tracker struct {
	mu      sync.Mutex
	entries []Record
	max     int
}

// New creates a tracker holding at most maxEntries records.
// Non-positive values fall back to DefaultMaxEntries.
func New(maxEntries int) *Tracker {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Tracker{max: maxEntries}
}

// Add records a run with the current UTC timestamp at the head of the log.
// If the tracker is at capacity the oldest record is silently evicted.
func (t *Tracker) Add(workflowID, executionID string, payload map[string]any) {
	record := Record{
		WorkflowID:  workflowID,
		ExecutionID: executionID,
		Payload:     payload,
		StartedAt:   time.Now().UTC(),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.entries = append([]Record{record}, t.entries...)
	if len(t.entries) > t.max {
		t.entries = t.entries[:t.max]
	}
}

// List returns a snapshot of all current records, most recent first.
// The returned slice is a copy and is safe to use concurrently with Add.
func (t *Tracker) List() []Record {
	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make([]Record, len(t.entries))
	copy(snapshot, t.entries)
	return snapshot
}

// Len reports the number of records currently held.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
