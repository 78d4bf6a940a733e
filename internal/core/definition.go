package core

import "fmt"

// KnobSpec declares one user-tunable parameter: its valid range and how it
// lands on the session. Values outside [Min, Max] are rejected at the intent
// boundary and never reach the engine.
type KnobSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64
	Apply   func(s *Session, v float64)
}

// DerivedObs recomputes an observable from the particle population every tick
// (neutron flux from emission count, activity from remaining nuclei...).
// Population exhaustion reaches the phase machine as a derived zero.
type DerivedObs struct {
	Name string
	From func(store *ParticleStore) float64
}

// PhaseHook attaches lab behavior to a phase entry or exit (retarget a drift,
// boost a rule). Entry hooks fire exactly once per entry, re-armed on exit.
type PhaseHook struct {
	Phase  Phase
	OnExit bool
	Do     func(s *Session)
}

// Definition is the complete data description of one lab: everything a
// Session needs to build an isolated simulation instance.
type Definition struct {
	Lab         string
	Bounds      Rect
	Containment Containment
	Field       Field
	Rules       Rules
	Observables []Observable
	Phases      []PhaseSpec
	Table       []Transition
	Population  Population
	Derived     []DerivedObs
	Hooks       []PhaseHook
	Knobs       []KnobSpec
}

// Validate checks the parts that do not need a built session. Observable and
// phase table validation happens again, structurally, in NewSession.
func (d *Definition) Validate() error {
	if d.Lab == "" {
		return fmt.Errorf("%w: empty lab name", ErrInvalidDefinition)
	}
	if d.Bounds.Width() <= 0 || d.Bounds.Height() <= 0 {
		return fmt.Errorf("%w: empty bounds", ErrInvalidDefinition)
	}
	if d.Population.Count < 0 {
		return fmt.Errorf("%w: negative population", ErrInvalidDefinition)
	}

	declared := make(map[string]bool, len(d.Observables))
	for _, o := range d.Observables {
		declared[o.Name] = true
	}
	for _, dv := range d.Derived {
		if !declared[dv.Name] {
			return fmt.Errorf("%w: derived %q", ErrUnknownObservable, dv.Name)
		}
	}
	for _, pr := range d.Rules.Pair {
		for _, rel := range pr.Release {
			if !declared[rel.Obs] {
				return fmt.Errorf("%w: rule %q releases %q", ErrUnknownObservable, pr.Name, rel.Obs)
			}
		}
	}
	for _, sr := range d.Rules.Solo {
		for _, rel := range sr.Release {
			if !declared[rel.Obs] {
				return fmt.Errorf("%w: rule %q releases %q", ErrUnknownObservable, sr.Name, rel.Obs)
			}
		}
	}

	seen := make(map[string]bool, len(d.Knobs))
	for _, k := range d.Knobs {
		if k.Name == "" || k.Apply == nil {
			return fmt.Errorf("%w: knob missing name or apply", ErrInvalidDefinition)
		}
		if seen[k.Name] {
			return fmt.Errorf("%w: duplicate knob %q", ErrInvalidDefinition, k.Name)
		}
		seen[k.Name] = true
		if k.Min >= k.Max {
			return fmt.Errorf("%w: knob %q has empty range", ErrInvalidDefinition, k.Name)
		}
		if k.Default < k.Min || k.Default > k.Max {
			return fmt.Errorf("%w: knob %q default outside range", ErrInvalidDefinition, k.Name)
		}
	}
	return nil
}
