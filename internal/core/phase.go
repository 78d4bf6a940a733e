package core

import "fmt"

// Phase indexes a session's ordered phase set. Labs declare their own named
// constants (heating, stabilizing, reacting... or idle, armed, detonating...)
// against the specs they register.
type Phase uint8

// PhaseSpec declares one phase. Terminal phases have no outgoing transitions;
// leaving one requires an explicit external reset.
type PhaseSpec struct {
	Name     string
	Terminal bool
}

// Guard is one observable-threshold predicate. Transitions carry a
// conjunction of guards.
type Guard struct {
	Obs       string
	Above     bool // true: value >= Threshold; false: value < Threshold
	Threshold float64
}

// ObservableAbove guards on value >= threshold (forward transitions).
func ObservableAbove(obs string, threshold float64) Guard {
	return Guard{Obs: obs, Above: true, Threshold: threshold}
}

// ObservableBelow guards on value strictly below threshold (backward
// transitions). Hysteresis lives in the gap between the two thresholds.
func ObservableBelow(obs string, threshold float64) Guard {
	return Guard{Obs: obs, Above: false, Threshold: threshold}
}

func (g Guard) holds(v ObsView) bool {
	if g.Above {
		return v.Get(g.Obs) >= g.Threshold
	}
	return v.Get(g.Obs) < g.Threshold
}

// Transition is one row of the phase table. OnRequest rows additionally
// require a matching phase request raised by a trigger this tick.
type Transition struct {
	From      Phase
	To        Phase
	Guards    []Guard
	OnRequest bool
}

// PhaseMachine owns the discrete phase of one session. It is the only
// component allowed to mutate the phase; it evaluates the table once per
// tick, after the reaction model, first matching row wins.
type PhaseMachine struct {
	specs   []PhaseSpec
	table   []Transition
	current Phase

	onEnter []func(from, to Phase)
	onExit  []func(from, to Phase)
}

// NewPhaseMachine validates the table: referenced phases exist, terminal
// phases have no outgoing rows, and every direct forward/backward pair on
// the same observable keeps the backward threshold strictly below the
// forward one (no single-tick oscillation at the boundary value).
func NewPhaseMachine(specs []PhaseSpec, table []Transition) (*PhaseMachine, error) {
	if len(specs) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 phases, got %d", ErrBadPhaseTable, len(specs))
	}
	n := Phase(len(specs))
	for _, t := range table {
		if t.From >= n || t.To >= n {
			return nil, fmt.Errorf("%w: transition references phase out of range", ErrBadPhaseTable)
		}
		if specs[t.From].Terminal {
			return nil, fmt.Errorf("%w: terminal phase %q has outgoing transition", ErrBadPhaseTable, specs[t.From].Name)
		}
		if t.From == t.To {
			return nil, fmt.Errorf("%w: self transition on %q", ErrBadPhaseTable, specs[t.From].Name)
		}
	}
	for _, fwd := range table {
		for _, back := range table {
			if fwd.From != back.To || fwd.To != back.From {
				continue
			}
			for _, gf := range fwd.Guards {
				if !gf.Above {
					continue
				}
				for _, gb := range back.Guards {
					if gb.Above || gb.Obs != gf.Obs {
						continue
					}
					if gb.Threshold >= gf.Threshold {
						return nil, fmt.Errorf("%w: %q<->%q on %q lacks hysteresis (back %.3g >= fwd %.3g)",
							ErrBadPhaseTable, specs[fwd.From].Name, specs[fwd.To].Name, gf.Obs, gb.Threshold, gf.Threshold)
					}
				}
			}
		}
	}
	return &PhaseMachine{specs: specs, table: table}, nil
}

// OnEnter registers a hook fired exactly once per phase entry.
func (m *PhaseMachine) OnEnter(fn func(from, to Phase)) {
	m.onEnter = append(m.onEnter, fn)
}

// OnExit registers a hook fired when a phase is left.
func (m *PhaseMachine) OnExit(fn func(from, to Phase)) {
	m.onExit = append(m.onExit, fn)
}

// Step evaluates the table against the post-reaction observable view and the
// tick's phase requests. Returns whether a transition fired.
func (m *PhaseMachine) Step(view ObsView, requests []Phase) bool {
	if m.specs[m.current].Terminal {
		return false
	}
	for _, t := range m.table {
		if t.From != m.current {
			continue
		}
		if t.OnRequest && !phaseRequested(requests, t.To) {
			continue
		}
		ok := true
		for _, g := range t.Guards {
			if !g.holds(view) {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}

		from := m.current
		for _, fn := range m.onExit {
			fn(from, t.To)
		}
		m.current = t.To
		// Entry hooks fire exactly once per entry: only a transition
		// reaches this point, and re-entering later is a new transition.
		for _, fn := range m.onEnter {
			fn(from, t.To)
		}
		return true
	}
	return false
}

func phaseRequested(requests []Phase, p Phase) bool {
	for _, r := range requests {
		if r == p {
			return true
		}
	}
	return false
}

// Current returns the active phase.
func (m *PhaseMachine) Current() Phase {
	return m.current
}

// Name returns the active phase's name.
func (m *PhaseMachine) Name() string {
	return m.specs[m.current].Name
}

// PhaseName resolves any phase index to its name.
func (m *PhaseMachine) PhaseName(p Phase) string {
	if int(p) < len(m.specs) {
		return m.specs[p].Name
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Terminal reports whether the active phase is terminal.
func (m *PhaseMachine) Terminal() bool {
	return m.specs[m.current].Terminal
}

// Phases lists the declared phase names in order.
func (m *PhaseMachine) Phases() []string {
	names := make([]string, len(m.specs))
	for i, s := range m.specs {
		names[i] = s.Name
	}
	return names
}

// Reset returns to the initial (first declared) phase without firing hooks.
func (m *PhaseMachine) Reset() {
	m.current = 0
}
