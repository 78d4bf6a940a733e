package control

import (
	"sync"

	"github.com/arvi-k/physlab/internal/core"
)

// Manual forwards intents queued from another goroutine. Used for direct user
// interaction: the UI thread calls Queue, the engine flushes on Drive.
type Manual struct {
	mu      sync.Mutex
	pending []core.Intent
}

func NewManual() *Manual {
	return &Manual{}
}

// Queue stores intents for the next Drive. Safe for concurrent use.
func (m *Manual) Queue(intents ...core.Intent) {
	m.mu.Lock()
	m.pending = append(m.pending, intents...)
	m.mu.Unlock()
}

// Drive flushes the stored intents into the engine queue.
func (m *Manual) Drive(snap core.Snapshot, q *core.IntentQueue) {
	m.mu.Lock()
	pending := m.pending
	m.pending = nil
	m.mu.Unlock()

	if len(pending) > 0 {
		q.Push(pending...)
	}
}
