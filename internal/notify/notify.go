package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arvi-k/physlab/internal/core"
)

// Alert is one session event packaged for delivery outside the engine.
type Alert struct {
	Lab         string       `json:"lab"`
	SessionID   string       `json:"session_id,omitempty"`
	Tick        uint64       `json:"tick"`
	SimTime     float64      `json:"sim_time"`
	Type        string       `json:"type"`
	Name        string       `json:"name"`
	Detail      string       `json:"detail,omitempty"`
	Phase       string       `json:"phase"`
	Observables core.ObsView `json:"observables,omitempty"`
	Timestamp   int64        `json:"timestamp"`
}

// AlertFrom packages one event with the snapshot context it fired in.
func AlertFrom(sessionID string, snap core.Snapshot, e core.Event) Alert {
	return Alert{
		Lab:         snap.Lab,
		SessionID:   sessionID,
		Tick:        e.Tick,
		SimTime:     e.Time,
		Type:        string(e.Type),
		Name:        e.Name,
		Detail:      e.Detail,
		Phase:       snap.Phase,
		Observables: snap.Observables,
		Timestamp:   time.Now().Unix(),
	}
}

// JSON returns the alert as JSON bytes
func (a Alert) JSON() ([]byte, error) {
	return json.Marshal(a)
}

// Notifier is the interface that all delivery channels must implement
type Notifier interface {
	// ID returns a unique identifier for this notifier
	ID() string

	// Type returns the type of notifier (e.g., "log", "webhook", "websocket")
	Type() string

	// Notify delivers one alert. The context carries cancellation and timeout.
	Notify(ctx context.Context, alert Alert) error

	// Close closes the notifier and releases any resources
	Close() error
}

// job is one queued delivery
type job struct {
	Alert       Alert
	NotifierIDs []string
}

// Manager owns the registered notifiers and routes alerts to them from a
// worker goroutine, so the engine tick never waits on delivery.
type Manager struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	jobs      chan job
	closed    bool
	wg        sync.WaitGroup
}

func NewManager() *Manager {
	m := &Manager{
		notifiers: make(map[string]Notifier),
		jobs:      make(chan job, 1024),
	}
	m.startWorkers(1)
	return m
}

// Register adds a notifier to the manager
func (m *Manager) Register(n Notifier) error {
	if n == nil {
		return fmt.Errorf("notifier cannot be nil")
	}

	id := n.ID()
	if id == "" {
		return fmt.Errorf("notifier ID cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.notifiers[id]; exists {
		return fmt.Errorf("notifier with ID %s already exists", id)
	}

	m.notifiers[id] = n
	return nil
}

// Unregister closes and removes a notifier
func (m *Manager) Unregister(id string) error {
	m.mu.Lock()
	n, exists := m.notifiers[id]
	m.mu.Unlock()

	if !exists {
		return fmt.Errorf("notifier with ID %s not found", id)
	}

	if err := n.Close(); err != nil {
		return fmt.Errorf("error closing notifier %s: %w", id, err)
	}

	m.mu.Lock()
	delete(m.notifiers, id)
	m.mu.Unlock()

	return nil
}

// Get retrieves a notifier by ID
func (m *Manager) Get(id string) (Notifier, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, exists := m.notifiers[id]
	return n, exists
}

// List returns all registered notifier IDs
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.notifiers))
	for id := range m.notifiers {
		ids = append(ids, id)
	}
	return ids
}

// Enqueue queues an alert for asynchronous delivery. A nil ID list addresses
// every notifier registered at enqueue time; an empty non-nil list addresses
// none. Non-blocking: when the queue is full the alert is dropped and logged,
// never stalling the caller.
func (m *Manager) Enqueue(alert Alert, notifierIDs []string) {
	if notifierIDs == nil {
		notifierIDs = m.List()
	}
	if len(notifierIDs) == 0 {
		return
	}

	m.mu.RLock()
	closed := m.closed
	m.mu.RUnlock()

	if closed {
		return
	}

	select {
	case m.jobs <- job{Alert: alert, NotifierIDs: notifierIDs}:
	default:
		log.Printf("alert queue full, dropping alert: event=%s", alert.Name)
	}
}

func (m *Manager) startWorkers(n int) {
	for range n {
		m.wg.Add(1)
		go m.worker()
	}
}

func (m *Manager) worker() {
	defer m.wg.Done()
	for j := range m.jobs {
		m.dispatch(j)
	}
}

func (m *Manager) dispatch(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, id := range j.NotifierIDs {
		m.notifyWithRetry(ctx, id, j.Alert)
	}
}

// notifyWithRetry attempts delivery with exponential backoff
func (m *Manager) notifyWithRetry(ctx context.Context, notifierID string, alert Alert) {
	m.mu.RLock()
	n, ok := m.notifiers[notifierID]
	m.mu.RUnlock()

	if !ok {
		log.Printf("alert failed: notifier=%s error=notifier not found", notifierID)
		return
	}

	const maxRetries = 3
	backoff := 100 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := n.Notify(ctx, alert)
		if err == nil {
			return
		}

		log.Printf("alert failed: notifier=%s attempt=%d error=%v", notifierID, attempt+1, err)

		if attempt == maxRetries {
			log.Printf("alert dropped after %d attempts: notifier=%s", maxRetries+1, notifierID)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
			backoff *= 2
		}
	}
}

// Notify delivers an alert synchronously to the given notifiers.
func (m *Manager) Notify(ctx context.Context, alert Alert, notifierIDs []string) error {
	if len(notifierIDs) == 0 {
		return nil
	}

	var errs []error
	for _, id := range notifierIDs {
		m.mu.RLock()
		n, exists := m.notifiers[id]
		m.mu.RUnlock()

		if !exists {
			errs = append(errs, fmt.Errorf("notifier %s not found", id))
			continue
		}

		if err := n.Notify(ctx, alert); err != nil {
			errs = append(errs, fmt.Errorf("notifier %s failed: %w", id, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("alert errors: %v", errs)
	}
	return nil
}

// Watch returns an observer that forwards a session's events to the given
// notifiers; a nil list fans out to whatever is registered when the event
// fires. With no types listed, threshold, phase and milestone events are
// forwarded; reactions and decays fire far too often to alert on.
func (m *Manager) Watch(sessionID string, notifierIDs []string, types ...core.EventType) core.ObserverFunc {
	if len(types) == 0 {
		types = []core.EventType{core.EventThreshold, core.EventPhase, core.EventMilestone}
	}
	wanted := make(map[core.EventType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	return func(snap core.Snapshot) {
		for _, e := range snap.Events {
			if wanted[e.Type] {
				m.Enqueue(AlertFrom(sessionID, snap, e), notifierIDs)
			}
		}
	}
}

// Close shuts down the workers and closes every registered notifier
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	close(m.jobs)
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	var errs []error
	for id, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, fmt.Errorf("error closing notifier %s: %w", id, err))
		}
	}
	m.notifiers = make(map[string]Notifier)
	m.mu.Unlock()

	if len(errs) > 0 {
		return fmt.Errorf("errors closing notifiers: %v", errs)
	}
	return nil
}
