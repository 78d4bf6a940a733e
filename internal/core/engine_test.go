package core

import (
	"context"
	"errors"
	"testing"
)

// testDef is a compact but complete lab: a fusion-flavored rule set with a
// heater knob, a derived flux observable, an ignition trigger and a phase
// ladder ending in a terminal spent phase.
func testDef() Definition {
	var field Field
	field.Jitter[KindPrimary] = 1.2
	field.MaxSpeed[KindPrimary] = 40
	field.Mover = NewEuler()

	return Definition{
		Lab:         "testlab",
		Bounds:      Rect{Min: Vec2{0, 0}, Max: Vec2{200, 200}},
		Containment: Containment{Center: Vec2{100, 100}, Radius: 60, Strength: 50},
		Field:       field,
		Rules: Rules{
			Pair: []PairRule{{
				Name:         "fuse",
				Kind:         KindPrimary,
				Proximity:    18,
				BaseRate:     6,
				Products:     []Kind{KindSecondary, KindEmission},
				ProductSpeed: 30,
				ProductTTL:   1.5,
				Release:      []Delta{{Obs: "temperature", Amount: 12}},
				Effect:       EffectFlash,
			}},
			Triggers: []Trigger{{
				Name:          "ignition",
				When:          func(v ObsView) bool { return v.Get("temperature") >= 400 },
				RequestTo:     2,
				RequestsPhase: true,
			}},
		},
		Observables: []Observable{
			{Name: "temperature", Value: 20, Min: 0, Max: 1000, Baseline: 20, Drift: 5},
			{Name: "fuel", Value: 100, Min: 0, Max: 100},
			{Name: "flux", Min: 0, Max: 500},
		},
		Phases: []PhaseSpec{
			{Name: "idle"},
			{Name: "heating"},
			{Name: "reacting"},
			{Name: "spent", Terminal: true},
		},
		Table: []Transition{
			{From: 0, To: 1, Guards: []Guard{ObservableAbove("temperature", 100)}},
			{From: 1, To: 0, Guards: []Guard{ObservableBelow("temperature", 60)}},
			{From: 1, To: 2, OnRequest: true},
			{From: 2, To: 3, Guards: []Guard{ObservableBelow("fuel", 1)}},
		},
		Population: Population{
			Count: 60,
			Dist:  map[Kind]float64{KindPrimary: 1},
			Speed: 10, Energy: 50,
		},
		Derived: []DerivedObs{{
			Name: "flux",
			From: func(st *ParticleStore) float64 { return float64(st.CountKind(KindEmission)) },
		}},
		Hooks: []PhaseHook{{
			Phase: 2,
			Do:    func(s *Session) { _ = s.SetDrift("fuel", 0, 2) },
		}},
		Knobs: []KnobSpec{
			{
				Name: "heater", Min: 0, Max: 100, Default: 0,
				Apply: func(s *Session, v float64) {
					_ = s.SetDrift("temperature", 20+v*9.8, 5+v)
				},
			},
			{
				Name: "containment", Min: 0, Max: 100, Default: 50,
				Apply: func(s *Session, v float64) { s.SetContainmentStrength(v) },
			},
		},
	}
}

// quickEndDef reaches its terminal phase within a couple of simulated
// seconds: fuel drains by drift alone.
func quickEndDef() Definition {
	var f Field
	f.Mover = NewEuler()
	return Definition{
		Lab:    "quickend",
		Bounds: Rect{Min: Vec2{0, 0}, Max: Vec2{100, 100}},
		Field:  f,
		Observables: []Observable{
			{Name: "fuel", Value: 5, Min: 0, Max: 10, Baseline: 0, Drift: 3},
		},
		Phases: []PhaseSpec{{Name: "burning"}, {Name: "spent", Terminal: true}},
		Table: []Transition{
			{From: 0, To: 1, Guards: []Guard{ObservableBelow("fuel", 0.5)}},
		},
		Population: Population{Count: 4, Dist: map[Kind]float64{KindPrimary: 1}, Speed: 2},
	}
}

func TestNewSessionValidates(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Definition)
	}{
		{"empty lab", func(d *Definition) { d.Lab = "" }},
		{"empty bounds", func(d *Definition) { d.Bounds = Rect{} }},
		{"unknown release", func(d *Definition) {
			d.Rules.Pair[0].Release = []Delta{{Obs: "pressure", Amount: 1}}
		}},
		{"unknown derived", func(d *Definition) { d.Derived[0].Name = "pressure" }},
		{"duplicate knob", func(d *Definition) { d.Knobs[1].Name = "heater" }},
		{"knob default outside range", func(d *Definition) { d.Knobs[0].Default = 500 }},
		{"knob empty range", func(d *Definition) { d.Knobs[0].Min = 100 }},
		{"negative population", func(d *Definition) { d.Population.Count = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def := testDef()
			tt.mutate(&def)
			if _, err := NewSession(def, 1); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSessionInitialSnapshot(t *testing.T) {
	sess, err := NewSession(testDef(), 42)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	snap := sess.Snapshot()
	if snap.Tick != 0 || snap.Time != 0 {
		t.Errorf("initial snapshot at tick %d time %f", snap.Tick, snap.Time)
	}
	if snap.Phase != "idle" {
		t.Errorf("initial phase %q", snap.Phase)
	}
	if snap.Count(KindPrimary) != 60 {
		t.Errorf("population %d, want 60", snap.Count(KindPrimary))
	}
	if snap.Obs("temperature") != 20 {
		t.Errorf("temperature %f, want 20", snap.Obs("temperature"))
	}
	if v, err := sess.KnobValue("containment"); err != nil || v != 50 {
		t.Errorf("containment default %f (%v), want 50", v, err)
	}
}

func TestSessionDeterminism(t *testing.T) {
	a, err := NewSession(testDef(), 42)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	b, err := NewSession(testDef(), 42)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	for i := 0; i < 300; i++ {
		a.Step(1.0 / 60)
		b.Step(1.0 / 60)
	}

	sa, sb := a.Snapshot(), b.Snapshot()
	if sa.Tick != sb.Tick || sa.Phase != sb.Phase {
		t.Fatalf("runs diverged: tick %d/%d phase %s/%s", sa.Tick, sb.Tick, sa.Phase, sb.Phase)
	}
	if len(sa.Particles) != len(sb.Particles) {
		t.Fatalf("particle counts diverged: %d vs %d", len(sa.Particles), len(sb.Particles))
	}
	for i := range sa.Particles {
		if sa.Particles[i] != sb.Particles[i] {
			t.Fatalf("particle slot %d diverged: %+v vs %+v", i, sa.Particles[i], sb.Particles[i])
		}
	}
	for _, name := range sa.ObsNames {
		if sa.Obs(name) != sb.Obs(name) {
			t.Errorf("observable %q diverged: %f vs %f", name, sa.Obs(name), sb.Obs(name))
		}
	}
}

func TestSessionSeedsDiverge(t *testing.T) {
	a, _ := NewSession(testDef(), 1)
	b, _ := NewSession(testDef(), 2)

	for i := 0; i < 60; i++ {
		a.Step(1.0 / 60)
		b.Step(1.0 / 60)
	}

	sa, sb := a.Snapshot(), b.Snapshot()
	same := len(sa.Particles) == len(sb.Particles)
	if same {
		for i := range sa.Particles {
			if sa.Particles[i] != sb.Particles[i] {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("different seeds produced identical trajectories")
	}
}

func TestSessionKnobBoundary(t *testing.T) {
	sess, _ := NewSession(testDef(), 1)

	if err := sess.SetKnob("heater", 80); err != nil {
		t.Fatalf("valid knob rejected: %v", err)
	}
	if v, _ := sess.KnobValue("heater"); v != 80 {
		t.Errorf("knob value %f, want 80", v)
	}

	if err := sess.SetKnob("heater", 101); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
	if v, _ := sess.KnobValue("heater"); v != 80 {
		t.Errorf("rejected write changed value to %f", v)
	}

	if err := sess.SetKnob("afterburner", 1); !errors.Is(err, ErrUnknownKnob) {
		t.Errorf("expected ErrUnknownKnob, got %v", err)
	}
	if _, err := sess.KnobValue("afterburner"); !errors.Is(err, ErrUnknownKnob) {
		t.Errorf("expected ErrUnknownKnob, got %v", err)
	}
}

func TestSessionIntentTiming(t *testing.T) {
	sess, _ := NewSession(testDef(), 1)

	sess.Queue(SetKnob{Name: "heater", Value: 60})
	if v, _ := sess.KnobValue("heater"); v != 0 {
		t.Fatalf("intent applied before the tick boundary: %f", v)
	}

	sess.Step(1.0 / 60)
	if v, _ := sess.KnobValue("heater"); v != 60 {
		t.Errorf("intent not applied at tick start: %f", v)
	}
}

func TestSessionInvalidIntentFaults(t *testing.T) {
	sess, _ := NewSession(testDef(), 1)
	sess.Queue(SetKnob{Name: "heater", Value: 9999})
	sess.Step(1.0 / 60)

	faults := sess.Faults()
	if len(faults) != 1 {
		t.Fatalf("expected 1 fault, got %d", len(faults))
	}
	if !errors.Is(faults[0], ErrOutOfRange) {
		t.Errorf("fault does not unwrap to ErrOutOfRange: %v", faults[0])
	}
	var te *TickError
	if !errors.As(faults[0], &te) || te.Stage != "intent" {
		t.Errorf("fault not a tick error with intent stage: %v", faults[0])
	}
	if v, _ := sess.KnobValue("heater"); v != 0 {
		t.Errorf("rejected intent mutated knob: %f", v)
	}
}

func TestSessionInject(t *testing.T) {
	sess, _ := NewSession(quickEndDef(), 1)
	before := sess.Snapshot().Total()

	sess.Queue(Inject{Kind: KindByproduct, Count: 5, Energy: 30})
	sess.Step(1.0 / 60)

	snap := sess.Snapshot()
	if got := snap.Count(KindByproduct); got != 5 {
		t.Errorf("injected byproducts: %d, want 5", got)
	}
	if got := snap.Total(); got != before+5 {
		t.Errorf("total %d, want %d", got, before+5)
	}

	sess.Queue(Inject{Kind: Kind(9), Count: 1})
	sess.Step(1.0 / 60)
	if len(sess.Faults()) == 0 {
		t.Error("invalid inject kind not faulted")
	}
}

func TestSessionKnobDrivesPhases(t *testing.T) {
	sess, _ := NewSession(testDef(), 42)

	if err := sess.SetKnob("heater", 100); err != nil {
		t.Fatal(err)
	}

	// Heating at ~105 units/s crosses the 100 threshold within 2s.
	for i := 0; i < 120 && sess.Phase() == "idle"; i++ {
		sess.Step(1.0 / 60)
	}
	if sess.Phase() != "heating" {
		t.Fatalf("phase %q after heating, want heating", sess.Phase())
	}

	// The ignition trigger requests the reacting phase at 400.
	for i := 0; i < 600 && sess.Phase() == "heating"; i++ {
		sess.Step(1.0 / 60)
	}
	if sess.Phase() != "reacting" {
		t.Fatalf("phase %q after ignition, want reacting", sess.Phase())
	}

	// The reacting entry hook starts the fuel burn.
	for i := 0; i < 120; i++ {
		sess.Step(1.0 / 60)
	}
	if fuel := sess.Snapshot().Obs("fuel"); fuel >= 100 {
		t.Errorf("fuel not burning in reacting phase: %f", fuel)
	}
}

func TestSessionPhaseEventAndEffect(t *testing.T) {
	sess, _ := NewSession(quickEndDef(), 7)

	var phaseEvents []Event
	for i := 0; i < 600 && !sess.InTerminal(); i++ {
		sess.Step(1.0 / 60)
		phaseEvents = append(phaseEvents, sess.Snapshot().EventsOf(EventPhase)...)
	}

	if !sess.InTerminal() {
		t.Fatal("session never reached the terminal phase")
	}
	if len(phaseEvents) != 1 {
		t.Fatalf("expected exactly 1 phase event, got %d", len(phaseEvents))
	}
	if phaseEvents[0].Name != "spent" {
		t.Errorf("phase event %q, want spent", phaseEvents[0].Name)
	}

	// The entry ring is still live on the transition tick.
	foundRing := false
	for _, e := range sess.Snapshot().Effects {
		if e.Kind == EffectRing {
			foundRing = true
		}
	}
	if !foundRing {
		t.Error("phase entry ring missing from the transition snapshot")
	}
}

func TestSessionTerminalKeepsTicking(t *testing.T) {
	sess, _ := NewSession(quickEndDef(), 7)
	for i := 0; i < 600 && !sess.InTerminal(); i++ {
		sess.Step(1.0 / 60)
	}
	at := sess.Tick()

	sess.Step(1.0 / 60)
	if sess.Tick() != at+1 {
		t.Errorf("clock stopped in terminal phase")
	}
	if sess.Phase() != "spent" {
		t.Errorf("terminal phase exited to %q", sess.Phase())
	}
}

func TestSessionMaxDeltaCap(t *testing.T) {
	sess, _ := NewSession(quickEndDef(), 1)
	sess.Step(10)

	if got := sess.SimTime(); got != DefaultMaxDelta {
		t.Errorf("uncapped delta: sim time %f, want %f", got, DefaultMaxDelta)
	}
}

func TestSessionDerivedObservable(t *testing.T) {
	sess, _ := NewSession(testDef(), 42)
	if err := sess.SetKnob("heater", 100); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 900; i++ {
		sess.Step(1.0 / 60)
	}

	snap := sess.Snapshot()
	if got, want := snap.Obs("flux"), float64(snap.Count(KindEmission)); got != want {
		t.Errorf("flux %f does not track emission count %f", got, want)
	}
}

func TestSessionReset(t *testing.T) {
	sess, _ := NewSession(testDef(), 42)

	digest := func() Snapshot {
		for i := 0; i < 200; i++ {
			sess.Step(1.0 / 60)
		}
		return sess.Snapshot()
	}

	first := digest()
	sess.Reset()

	if sess.Tick() != 0 || sess.Phase() != "idle" {
		t.Fatalf("reset left tick %d phase %q", sess.Tick(), sess.Phase())
	}
	if got := sess.Snapshot().Obs("temperature"); got != 20 {
		t.Fatalf("reset observable: %f, want 20", got)
	}

	second := digest()
	if len(first.Particles) != len(second.Particles) {
		t.Fatalf("replay diverged: %d vs %d particles", len(first.Particles), len(second.Particles))
	}
	for i := range first.Particles {
		if first.Particles[i] != second.Particles[i] {
			t.Fatalf("replay particle %d diverged", i)
		}
	}
	for _, name := range first.ObsNames {
		if first.Obs(name) != second.Obs(name) {
			t.Errorf("replay observable %q diverged: %f vs %f", name, first.Obs(name), second.Obs(name))
		}
	}
}

func TestSessionResetIntent(t *testing.T) {
	sess, _ := NewSession(testDef(), 1)
	for i := 0; i < 100; i++ {
		sess.Step(1.0 / 60)
	}

	sess.Queue(ResetRun{})
	sess.Step(1.0 / 60)

	if sess.Tick() != 0 {
		t.Errorf("reset intent left tick %d", sess.Tick())
	}
	if got := sess.Snapshot().Obs("temperature"); got != 20 {
		t.Errorf("reset intent left temperature %f", got)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	sess, _ := NewSession(testDef(), 1)
	sess.Step(1.0 / 60)

	snap := sess.Snapshot()
	if len(snap.Particles) == 0 {
		t.Fatal("empty snapshot")
	}
	snap.Particles[0].Energy = -999
	snap.Observables["temperature"] = -999

	again := sess.Snapshot()
	if again.Particles[0].Energy == -999 {
		t.Error("snapshot particle mutation leaked into the session")
	}
	if again.Obs("temperature") == -999 {
		t.Error("snapshot observable mutation leaked into the session")
	}
}

type countMetric struct{ n int }

func (m *countMetric) Name() string     { return "ticks.observed" }
func (m *countMetric) Observe(Snapshot) { m.n++ }
func (m *countMetric) Value() float64   { return float64(m.n) }
func (m *countMetric) Reset()           { m.n = 0 }

func TestSessionRun(t *testing.T) {
	sess, _ := NewSession(testDef(), 42)
	metric := &countMetric{}
	sess.AddMetric(metric)

	res, err := sess.Run(context.Background(), RunConfig{Rate: 60, Ticks: 240})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if res.Lab != "testlab" || res.Seed != 42 {
		t.Errorf("result identity: %s/%d", res.Lab, res.Seed)
	}
	if res.Ticks != 240 {
		t.Errorf("ticks %d, want 240", res.Ticks)
	}
	if res.Series.Len() != 241 {
		t.Errorf("series samples %d, want 241", res.Series.Len())
	}
	if got := res.Metrics["ticks.observed"]; got != 240 {
		t.Errorf("metric %f, want 240", got)
	}
	if temp := res.Series.Column("temperature"); len(temp) != 241 {
		t.Errorf("temperature column length %d", len(temp))
	}
}

func TestSessionRunConfigValidation(t *testing.T) {
	sess, _ := NewSession(quickEndDef(), 1)

	tests := []struct {
		name string
		cfg  RunConfig
	}{
		{"zero rate", RunConfig{Rate: 0, Ticks: 10}},
		{"negative rate", RunConfig{Rate: -60, Ticks: 10}},
		{"zero ticks", RunConfig{Rate: 60, Ticks: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := sess.Run(context.Background(), tt.cfg); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSessionRunStopAtTerminal(t *testing.T) {
	sess, _ := NewSession(quickEndDef(), 1)

	res, err := sess.Run(context.Background(), RunConfig{
		Rate: 60, Ticks: 1200, StopAtTerminal: true,
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !res.Final.Terminal {
		t.Error("run did not end terminal")
	}
	if res.Ticks >= 1200 {
		t.Errorf("run did not stop early: %d ticks", res.Ticks)
	}
}

func TestSessionRunCanceled(t *testing.T) {
	sess, _ := NewSession(quickEndDef(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := sess.Run(ctx, RunConfig{Rate: 60, Ticks: 100})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if res == nil || res.Ticks != 0 {
		t.Errorf("canceled run advanced state: %+v", res)
	}
}

type recordingDriver struct{ target float64 }

func (d *recordingDriver) Drive(snap Snapshot, q *IntentQueue) {
	if snap.Knobs.Get("heater") != d.target {
		q.Push(SetKnob{Name: "heater", Value: d.target})
	}
}

func TestSessionDriver(t *testing.T) {
	sess, _ := NewSession(testDef(), 1)
	sess.SetDriver(&recordingDriver{target: 42})

	sess.Step(1.0 / 60)
	if v, _ := sess.KnobValue("heater"); v != 42 {
		t.Errorf("driver intent not applied: %f", v)
	}
}
