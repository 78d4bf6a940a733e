package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arvi-k/physlab/internal/control"
	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/labs"
	"github.com/arvi-k/physlab/internal/metrics"
	"github.com/arvi-k/physlab/internal/notify"
)

const (
	// DefaultTickRate paces server sessions when the request does not pick
	// a rate.
	DefaultTickRate = 60.0

	// broadcastEvery divides the tick rate down to the spectator stream
	// rate: at 60 Hz simulation this is a 10 Hz frame stream.
	broadcastEvery = 6
)

// ErrSessionNotFound is returned for session IDs with no live session.
var ErrSessionNotFound = errors.New("server: session not found")

// SessionInfo is the wire summary of one live session.
type SessionInfo struct {
	ID        string    `json:"id"`
	Lab       string    `json:"lab"`
	Seed      int64     `json:"seed"`
	Rate      float64   `json:"rate"`
	Phase     string    `json:"phase"`
	Tick      uint64    `json:"tick"`
	SimTime   float64   `json:"sim_time"`
	Terminal  bool      `json:"terminal"`
	CreatedAt time.Time `json:"created_at"`
}

// liveSession is one session being ticked against the wall clock. The run
// goroutine owns the core.Session; handlers only ever touch the cached
// snapshot, the manual driver's mailbox, and the cancel func.
type liveSession struct {
	id        string
	lab       labs.Lab
	seed      int64
	rate      float64
	createdAt time.Time

	sess    *core.Session
	manual  *control.Manual
	metrics []core.Metric
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	last   core.Snapshot
	events []core.Event
}

func (ls *liveSession) snapshot() core.Snapshot {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	return ls.last
}

func (ls *liveSession) info() SessionInfo {
	snap := ls.snapshot()
	return SessionInfo{
		ID:        ls.id,
		Lab:       ls.lab.Name,
		Seed:      ls.seed,
		Rate:      ls.rate,
		Phase:     snap.Phase,
		Tick:      snap.Tick,
		SimTime:   snap.Time,
		Terminal:  snap.Terminal,
		CreatedAt: ls.createdAt,
	}
}

// Manager owns the live sessions: one wall-clock goroutine each, snapshots
// fanned out through the hub, phase and threshold events forwarded as
// alerts, finished runs archived to the repo.
type Manager struct {
	hub    *Hub
	repo   *RunRepo
	alerts *notify.Manager
	log    *Logger

	mu       sync.Mutex
	sessions map[string]*liveSession
}

// NewManager creates a session manager. repo may be nil, in which case
// finished runs are discarded instead of archived; a nil alerts manager
// disables alerting.
func NewManager(hub *Hub, repo *RunRepo, alerts *notify.Manager, log *Logger) *Manager {
	return &Manager{
		hub:      hub,
		repo:     repo,
		alerts:   alerts,
		log:      log,
		sessions: make(map[string]*liveSession),
	}
}

// Create builds a session for the lab, applies the initial knob settings, and
// starts ticking it at the given rate (DefaultTickRate when rate <= 0). The
// zero seed means the lab's default.
func (m *Manager) Create(labName string, seed int64, rate float64, knobs map[string]float64) (SessionInfo, error) {
	lab, err := labs.Get(labName)
	if err != nil {
		return SessionInfo{}, err
	}
	if seed == 0 {
		seed = lab.Seed
	}
	if rate <= 0 {
		rate = DefaultTickRate
	}

	sess, err := lab.NewSession(seed)
	if err != nil {
		return SessionInfo{}, err
	}
	for name, v := range knobs {
		if err := sess.SetKnob(name, v); err != nil {
			return SessionInfo{}, fmt.Errorf("knob %s: %w", name, err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	ls := &liveSession{
		id:        uuid.NewString(),
		lab:       lab,
		seed:      seed,
		rate:      rate,
		createdAt: time.Now(),
		sess:      sess,
		manual:    control.NewManual(),
		cancel:    cancel,
		done:      make(chan struct{}),
		last:      sess.Snapshot(),
	}

	for _, name := range ls.last.ObsNames {
		ls.metrics = append(ls.metrics, metrics.NewPeak(name))
	}
	ls.metrics = append(ls.metrics,
		metrics.NewFlaps(),
		metrics.NewEventCount(core.EventReaction),
		metrics.NewEventRate(core.EventReaction))
	for _, mt := range ls.metrics {
		sess.AddMetric(mt)
	}

	sess.SetDriver(ls.manual)
	sess.AddObserver(m.streamObserver(ls))
	if m.alerts != nil {
		sess.AddObserver(m.alerts.Watch(ls.id, nil))
	}

	m.mu.Lock()
	m.sessions[ls.id] = ls
	m.mu.Unlock()

	go m.run(ctx, ls)

	m.log.Infof("session %s created: lab=%s seed=%d rate=%g", ls.id, lab.Name, seed, rate)
	return ls.info(), nil
}

// streamObserver caches each snapshot for the REST handlers, feeds the
// spectator stream at a divided rate, and stops the clock once the phase
// machine parks in a terminal phase.
func (m *Manager) streamObserver(ls *liveSession) core.ObserverFunc {
	return func(snap core.Snapshot) {
		ls.mu.Lock()
		ls.last = snap
		ls.events = append(ls.events, snap.Events...)
		ls.mu.Unlock()

		if snap.Tick%broadcastEvery == 0 || snap.Terminal {
			if payload, err := json.Marshal(snap); err == nil {
				m.hub.Broadcast(ls.id, payload)
			}
		}
		if snap.Terminal {
			ls.cancel()
		}
	}
}

// run ticks the session until its context is canceled, then archives it.
// The session stays visible (with its final snapshot) until deleted.
func (m *Manager) run(ctx context.Context, ls *liveSession) {
	defer close(ls.done)

	if err := ls.sess.RunLive(ctx, ls.rate); err != nil && !errors.Is(err, context.Canceled) {
		m.log.Errorf("session %s stopped: %v", ls.id, err)
	}

	m.archive(ls)
	m.hub.CloseRoom(ls.id)
}

func (m *Manager) archive(ls *liveSession) {
	if m.repo == nil || ls.sess.Tick() == 0 {
		return
	}

	vals := make(map[string]float64, len(ls.metrics))
	for _, mt := range ls.metrics {
		vals[mt.Name()] = mt.Value()
	}
	ls.mu.Lock()
	events := ls.events
	ls.events = nil
	ls.mu.Unlock()

	rec := RunRecord{
		ID:        ls.id,
		Lab:       ls.lab.Name,
		Seed:      ls.seed,
		Rate:      ls.rate,
		SimTime:   ls.sess.SimTime(),
		Ticks:     ls.sess.Tick(),
		Driver:    "manual",
		Phase:     ls.sess.Phase(),
		Terminal:  ls.sess.InTerminal(),
		Metrics:   vals,
		CreatedAt: ls.createdAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.repo.Archive(ctx, rec, events); err != nil {
		m.log.Errorf("failed to archive session %s: %v", ls.id, err)
		return
	}
	m.log.Infof("session %s archived: phase=%s ticks=%d", ls.id, rec.Phase, rec.Ticks)

	if m.alerts != nil {
		snap := ls.snapshot()
		m.alerts.Enqueue(notify.AlertFrom(ls.id, snap, core.Event{
			Tick:   snap.Tick,
			Time:   snap.Time,
			Type:   core.EventMilestone,
			Name:   "run-completed",
			Detail: fmt.Sprintf("archived in phase %s after %d ticks", rec.Phase, rec.Ticks),
		}), nil)
	}
}

func (m *Manager) get(id string) (*liveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ls, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// Info returns the summary of one live session.
func (m *Manager) Info(id string) (SessionInfo, error) {
	ls, err := m.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	return ls.info(), nil
}

// Snapshot returns the latest cached snapshot of one live session.
func (m *Manager) Snapshot(id string) (core.Snapshot, error) {
	ls, err := m.get(id)
	if err != nil {
		return core.Snapshot{}, err
	}
	return ls.snapshot(), nil
}

// List returns summaries of every live session, in no particular order.
func (m *Manager) List() []SessionInfo {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SessionInfo, 0, len(m.sessions))
	for _, ls := range m.sessions {
		out = append(out, ls.info())
	}
	return out
}

// Queue hands intents to the session's driver for its next tick.
func (m *Manager) Queue(id string, intents ...core.Intent) error {
	ls, err := m.get(id)
	if err != nil {
		return err
	}
	ls.manual.Queue(intents...)
	return nil
}

// Stop cancels a session's clock, waits for it to archive, and forgets it.
// Stopping a session that already parked in a terminal phase just removes it.
func (m *Manager) Stop(id string) error {
	ls, err := m.get(id)
	if err != nil {
		return err
	}
	ls.cancel()
	<-ls.done

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.log.Infof("session %s removed", id)
	return nil
}

// Shutdown stops every live session and waits for their archives to land.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*liveSession, 0, len(m.sessions))
	for _, ls := range m.sessions {
		all = append(all, ls)
	}
	m.sessions = make(map[string]*liveSession)
	m.mu.Unlock()

	for _, ls := range all {
		ls.cancel()
		<-ls.done
	}
}
