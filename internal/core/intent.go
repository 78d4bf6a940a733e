package core

import "sync"

// Intent is one deferred user action. Intents queue at any time from any
// goroutine but apply only at the start of the next tick, on the engine
// goroutine, so mid-tick state is never visible to input. The set is closed:
// the unexported method keeps other packages from inventing new mutations.
type Intent interface {
	apply(s *Session) error
}

// SetKnob adjusts one declared tunable. Out-of-range values are rejected with
// ErrOutOfRange and leave the session untouched.
type SetKnob struct {
	Name  string
	Value float64
}

func (i SetKnob) apply(s *Session) error { return s.SetKnob(i.Name, i.Value) }

// Inject spawns Count fresh particles of one kind at random positions inside
// the bounds. Energy is clamped like any other energy write.
type Inject struct {
	Kind   Kind
	Count  int
	Energy float64
}

func (i Inject) apply(s *Session) error { return s.inject(i.Kind, i.Count, i.Energy) }

// ResetRun rewinds the session to its seeded initial state. Same seed, same
// trajectory.
type ResetRun struct{}

func (ResetRun) apply(s *Session) error { s.Reset(); return nil }

// IntentQueue is the thread-safe mailbox between input surfaces (TUI, HTTP,
// drivers) and the engine goroutine.
type IntentQueue struct {
	mu    sync.Mutex
	items []Intent
}

// Push appends intents in order. Safe for concurrent use.
func (q *IntentQueue) Push(intents ...Intent) {
	q.mu.Lock()
	q.items = append(q.items, intents...)
	q.mu.Unlock()
}

// drain returns the queued intents and empties the queue.
func (q *IntentQueue) drain() []Intent {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// Len reports the number of pending intents.
func (q *IntentQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
