package core

import (
	"context"
	"fmt"
	"math"
	"time"
)

// DefaultMaxDelta caps the per-tick delta so a stalled host (debugger pause,
// suspended laptop) resumes with one bounded step instead of a catch-up spiral.
const DefaultMaxDelta = 0.25

const maxFaults = 64

// Driver adjusts a running session: it sees the last snapshot and queues
// intents for the next tick. The nil driver leaves the session alone.
type Driver interface {
	Drive(snap Snapshot, q *IntentQueue)
}

// Metric accumulates a scalar over a run, fed one snapshot per tick.
type Metric interface {
	Name() string
	Observe(snap Snapshot)
	Value() float64
	Reset()
}

// Session is one isolated simulation instance. Not thread-safe: a single
// goroutine calls Step/Run; other goroutines reach in only through Queue.
type Session struct {
	def  Definition
	seed int64

	rng     RNG
	store   *ParticleStore
	obs     *ObservableSet
	rules   Rules
	phases  *PhaseMachine
	effects *EffectQueue
	field   Field
	cont    Containment
	bounds  Rect

	knobs     map[string]KnobSpec
	knobOrder []string
	knobVals  map[string]float64

	intents   *IntentQueue
	driver    Driver
	observers []Observer
	metrics   []Metric

	tick     uint64
	simTime  float64
	maxDelta float64
	stats    FieldStats
	pending  []Event
	faults   []error
	last     Snapshot
}

// NewSession builds a session from a lab definition and a seed. The same
// definition and seed always produce the same tick-by-tick trajectory.
func NewSession(def Definition, seed int64) (*Session, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	obs, err := NewObservableSet(def.Observables...)
	if err != nil {
		return nil, err
	}
	pm, err := NewPhaseMachine(def.Phases, def.Table)
	if err != nil {
		return nil, err
	}

	s := &Session{
		def:      def,
		seed:     seed,
		rng:      NewRNG(seed),
		store:    NewParticleStore(),
		obs:      obs,
		rules:    cloneRules(def.Rules),
		phases:   pm,
		effects:  NewEffectQueue(),
		field:    def.Field,
		cont:     def.Containment,
		bounds:   def.Bounds,
		knobs:    make(map[string]KnobSpec, len(def.Knobs)),
		knobVals: make(map[string]float64, len(def.Knobs)),
		intents:  &IntentQueue{},
		maxDelta: DefaultMaxDelta,
	}
	s.store.Seed(s.rng, s.bounds, def.Population)

	// Phase entry bookkeeping first, lab hooks after, so a hook that reads
	// events sees its own phase entry recorded.
	pm.OnEnter(func(from, to Phase) {
		s.pending = append(s.pending, Event{
			Tick:   s.tick,
			Time:   s.simTime,
			Type:   EventPhase,
			Name:   pm.PhaseName(to),
			Detail: pm.PhaseName(from) + " to " + pm.PhaseName(to),
		})
		s.effects.Spawn(EffectRing, s.cont.Center, s.simTime)
	})
	for _, h := range def.Hooks {
		if h.OnExit {
			pm.OnExit(func(from, to Phase) {
				if from == h.Phase {
					h.Do(s)
				}
			})
		} else {
			pm.OnEnter(func(from, to Phase) {
				if to == h.Phase {
					h.Do(s)
				}
			})
		}
	}

	for _, k := range def.Knobs {
		s.knobs[k.Name] = k
		s.knobOrder = append(s.knobOrder, k.Name)
		s.knobVals[k.Name] = k.Default
		k.Apply(s, k.Default)
	}

	s.refreshDerived()
	s.last = s.snapshot(nil)
	return s, nil
}

func cloneRules(r Rules) Rules {
	return Rules{
		Pair:     append([]PairRule(nil), r.Pair...),
		Solo:     append([]SoloRule(nil), r.Solo...),
		Triggers: append([]Trigger(nil), r.Triggers...),
	}
}

// Queue enqueues intents for the next tick. Safe from any goroutine.
func (s *Session) Queue(intents ...Intent) { s.intents.Push(intents...) }

// SetDriver installs the per-tick driver. Pass nil to detach.
func (s *Session) SetDriver(d Driver) { s.driver = d }

// AddObserver registers a snapshot consumer.
func (s *Session) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// AddMetric registers a run metric.
func (s *Session) AddMetric(m Metric) { s.metrics = append(s.metrics, m) }

// Step advances the simulation by dt seconds, capped at the configured
// maximum delta. Stage order is fixed: intents, field, reactions, drift,
// phase machine, effect expiry, snapshot.
func (s *Session) Step(dt float64) {
	if dt <= 0 {
		return
	}
	if dt > s.maxDelta {
		dt = s.maxDelta
	}
	s.tick++
	s.simTime += dt
	s.pending = s.pending[:0]

	if s.driver != nil {
		s.driver.Drive(s.last, s.intents)
	}
	for _, in := range s.intents.drain() {
		if err := in.apply(s); err != nil {
			s.fault("intent", err)
		}
	}
	if s.tick == 0 {
		// A queued reset rewound the run; the reset state is the new tick 0.
		return
	}

	fs := s.field.Apply(dt, s.store, s.cont, s.obs.View(), s.bounds, s.rng)
	s.stats.Escaped += fs.Escaped
	s.stats.Expired += fs.Expired
	s.stats.Wrapped += fs.Wrapped

	events, requests := s.rules.Apply(dt, s.store, s.obs, s.effects, s.rng, s.simTime, s.tick)

	s.obs.StepDrift(dt)
	s.refreshDerived()

	s.phases.Step(s.obs.View(), requests)

	s.effects.Expire(s.simTime)

	s.last = s.snapshot(append(events, s.pending...))
	for _, m := range s.metrics {
		m.Observe(s.last)
	}
	for _, o := range s.observers {
		o.OnTick(s.last)
	}
}

func (s *Session) refreshDerived() {
	for _, dv := range s.def.Derived {
		s.obs.Set(dv.Name, dv.From(s.store))
	}
}

func (s *Session) snapshot(events []Event) Snapshot {
	snap := Snapshot{
		Lab:         s.def.Lab,
		Tick:        s.tick,
		Time:        s.simTime,
		Phase:       s.phases.Name(),
		Terminal:    s.phases.Terminal(),
		Observables: s.obs.View(),
		ObsNames:    s.obs.Names(),
		Particles:   append([]Particle(nil), s.store.particles...),
		Events:      events,
		Bounds:      s.bounds,
		Containment: s.cont,
		Escaped:     uint64(s.stats.Escaped),
	}
	if n := s.effects.Len(); n > 0 {
		snap.Effects = make([]Effect, 0, n)
		for e := range s.effects.Live() {
			snap.Effects = append(snap.Effects, e)
		}
	}
	if len(s.knobVals) > 0 {
		snap.Knobs = make(ObsView, len(s.knobVals))
		for k, v := range s.knobVals {
			snap.Knobs[k] = v
		}
	}
	for _, p := range snap.Particles {
		snap.counts[p.Kind]++
	}
	return snap
}

// RunConfig shapes a headless run: a fixed tick rate for a fixed number of
// ticks, sampling the observables every SampleEvery ticks (default every
// tick).
type RunConfig struct {
	Rate           float64
	Ticks          int
	SampleEvery    int
	StopAtTerminal bool
}

// Result collects everything a finished run produced.
type Result struct {
	Lab     string
	Seed    int64
	Ticks   uint64
	SimTime float64
	Final   Snapshot
	Series  *Series
	Events  []Event
	Metrics map[string]float64
	Faults  []error
}

// Run executes cfg.Ticks fixed-dt ticks as fast as the host allows,
// accumulating the series, events and metric values. Cancellation is honored
// between ticks, so the state is always at a tick boundary.
func (s *Session) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if cfg.Rate <= 0 {
		return nil, fmt.Errorf("core: tick rate must be positive, got %g", cfg.Rate)
	}
	if cfg.Ticks <= 0 {
		return nil, fmt.Errorf("core: tick count must be positive, got %d", cfg.Ticks)
	}
	every := cfg.SampleEvery
	if every <= 0 {
		every = 1
	}
	dt := 1 / cfg.Rate

	for _, m := range s.metrics {
		m.Reset()
	}

	res := &Result{
		Lab:    s.def.Lab,
		Seed:   s.seed,
		Series: NewSeries(s.obs.Names()),
	}
	res.Series.Append(s.simTime, s.obs.Values())

	for i := 0; i < cfg.Ticks; i++ {
		select {
		case <-ctx.Done():
			s.finish(res)
			return res, ctx.Err()
		default:
		}

		s.Step(dt)

		if s.tick%uint64(every) == 0 {
			res.Series.Append(s.simTime, s.obs.Values())
		}
		res.Events = append(res.Events, s.last.Events...)

		if cfg.StopAtTerminal && s.phases.Terminal() {
			break
		}
	}

	s.finish(res)
	return res, nil
}

func (s *Session) finish(res *Result) {
	res.Ticks = s.tick
	res.SimTime = s.simTime
	res.Final = s.last
	res.Metrics = make(map[string]float64, len(s.metrics))
	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	res.Faults = append([]error(nil), s.faults...)
}

// RunLive ticks the session against the wall clock at the given rate until
// the context is canceled. Late ticks step with the real elapsed delta,
// capped, so a stalled host does not spiral.
func (s *Session) RunLive(ctx context.Context, rate float64) error {
	if rate <= 0 {
		return fmt.Errorf("core: tick rate must be positive, got %g", rate)
	}
	ticker := time.NewTicker(time.Duration(float64(time.Second) / rate))
	defer ticker.Stop()

	prev := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.Step(now.Sub(prev).Seconds())
			prev = now
		}
	}
}

// Reset rewinds to the seeded initial state: same seed, same trajectory.
// Knobs return to their defaults.
func (s *Session) Reset() {
	s.rng = NewRNG(s.seed)
	s.store = NewParticleStore()
	s.store.Seed(s.rng, s.bounds, s.def.Population)
	s.obs.Reset()
	s.rules = cloneRules(s.def.Rules)
	s.phases.Reset()
	s.effects.Clear()
	s.field = s.def.Field
	s.cont = s.def.Containment
	s.tick = 0
	s.simTime = 0
	s.stats = FieldStats{}
	s.pending = nil
	s.faults = nil
	for _, m := range s.metrics {
		m.Reset()
	}
	for _, name := range s.knobOrder {
		k := s.knobs[name]
		s.knobVals[name] = k.Default
		k.Apply(s, k.Default)
	}
	s.refreshDerived()
	s.last = s.snapshot(nil)
}

// Accessors. Snapshot returns the last completed tick's view.

func (s *Session) Lab() string          { return s.def.Lab }
func (s *Session) Seed() int64          { return s.seed }
func (s *Session) Tick() uint64         { return s.tick }
func (s *Session) SimTime() float64     { return s.simTime }
func (s *Session) Snapshot() Snapshot   { return s.last }
func (s *Session) Bounds() Rect         { return s.bounds }
func (s *Session) Phase() string        { return s.phases.Name() }
func (s *Session) InTerminal() bool     { return s.phases.Terminal() }
func (s *Session) PhaseNames() []string { return s.phases.Phases() }

// Faults returns intent errors recorded so far, newest last.
func (s *Session) Faults() []error { return append([]error(nil), s.faults...) }

func (s *Session) fault(stage string, err error) {
	te := &TickError{Tick: s.tick, SimTime: s.simTime, Stage: stage, Wrapped: err}
	if len(s.faults) >= maxFaults {
		copy(s.faults, s.faults[1:])
		s.faults = s.faults[:maxFaults-1]
	}
	s.faults = append(s.faults, te)
}

// Knobs lists the declared tunables in declaration order.
func (s *Session) Knobs() []KnobSpec {
	out := make([]KnobSpec, 0, len(s.knobOrder))
	for _, name := range s.knobOrder {
		out = append(out, s.knobs[name])
	}
	return out
}

// KnobValue returns the current value of one knob.
func (s *Session) KnobValue(name string) (float64, error) {
	v, ok := s.knobVals[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownKnob, name)
	}
	return v, nil
}

// SetKnob validates against the declared range and applies the value. The
// session state is untouched on error.
func (s *Session) SetKnob(name string, v float64) error {
	k, ok := s.knobs[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKnob, name)
	}
	if v < k.Min || v > k.Max {
		return fmt.Errorf("%w: %s=%g outside [%g, %g]", ErrOutOfRange, name, v, k.Min, k.Max)
	}
	s.knobVals[name] = v
	k.Apply(s, v)
	return nil
}

// Setters used by knob apply funcs and phase hooks.

func (s *Session) SetContainmentStrength(v float64) { s.cont.Strength = v }
func (s *Session) SetContainmentRadius(v float64)   { s.cont.Radius = v }
func (s *Session) SetGravityScale(v float64)        { s.field.GravityScale = v }

func (s *Session) SetJitter(k Kind, v float64) {
	if int(k) < len(s.field.Jitter) {
		s.field.Jitter[k] = v
	}
}

func (s *Session) SetMaxSpeed(k Kind, v float64) {
	if int(k) < len(s.field.MaxSpeed) {
		s.field.MaxSpeed[k] = v
	}
}

func (s *Session) SetPairRate(rule string, v float64) error { return s.rules.SetPairRate(rule, v) }
func (s *Session) SetSoloRate(rule string, v float64) error { return s.rules.SetSoloRate(rule, v) }

func (s *Session) SetDrift(obs string, baseline, rate float64) error {
	return s.obs.SetDrift(obs, baseline, rate)
}

func (s *Session) SetObservable(name string, v float64)       { s.obs.Set(name, v) }
func (s *Session) NudgeObservable(name string, delta float64) { s.obs.Add(name, delta) }

// Milestone records a lab-defined event on the current tick.
func (s *Session) Milestone(name, detail string) {
	s.pending = append(s.pending, Event{
		Tick:   s.tick,
		Time:   s.simTime,
		Type:   EventMilestone,
		Name:   name,
		Detail: detail,
	})
}

func (s *Session) inject(k Kind, count int, energy float64) error {
	if k >= numKinds {
		return fmt.Errorf("%w: kind(%d)", ErrUnknownKind, uint8(k))
	}
	if count <= 0 {
		return fmt.Errorf("%w: inject count %d", ErrOutOfRange, count)
	}
	for i := 0; i < count; i++ {
		p := Particle{
			Kind: k,
			Pos: Vec2{
				X: s.bounds.Min.X + s.rng.Float64()*s.bounds.Width(),
				Y: s.bounds.Min.Y + s.rng.Float64()*s.bounds.Height(),
			},
			Vel: Vec2{X: s.def.Population.Speed}.Rotate(s.rng.Float64() * 2 * math.Pi),
		}
		p.SetEnergy(energy)
		if k == KindEmission {
			p.TTL = s.def.Population.EmissionTTL
		}
		s.store.Add(p)
	}
	return nil
}
