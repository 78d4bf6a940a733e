package core

import (
	"fmt"
	"math"
)

// Observable is one named scalar of aggregate simulation state (temperature,
// pressure, stability, fuel, dose, yield...). Every mutation clamps into
// [Min, Max]; drift moves the value toward Baseline at Drift units per second
// when no reaction touches it.
type Observable struct {
	Name     string
	Value    float64
	Min      float64
	Max      float64
	Baseline float64
	Drift    float64
}

// ObservableSet holds a session's observables in declaration order. It is the
// sole input to phase transitions.
type ObservableSet struct {
	obs     []Observable
	idx     map[string]int
	initial []Observable
}

func NewObservableSet(obs ...Observable) (*ObservableSet, error) {
	s := &ObservableSet{
		obs: make([]Observable, 0, len(obs)),
		idx: make(map[string]int, len(obs)),
	}
	for _, o := range obs {
		if o.Name == "" {
			return nil, fmt.Errorf("%w: observable with empty name", ErrInvalidDefinition)
		}
		if _, dup := s.idx[o.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate observable %q", ErrInvalidDefinition, o.Name)
		}
		if o.Min >= o.Max {
			return nil, fmt.Errorf("%w: observable %q has empty range [%g, %g]", ErrInvalidDefinition, o.Name, o.Min, o.Max)
		}
		o.Value = clamp(o.Value, o.Min, o.Max)
		o.Baseline = clamp(o.Baseline, o.Min, o.Max)
		s.idx[o.Name] = len(s.obs)
		s.obs = append(s.obs, o)
	}
	s.initial = append([]Observable(nil), s.obs...)
	return s, nil
}

// Names returns observable names in declaration order.
func (s *ObservableSet) Names() []string {
	names := make([]string, len(s.obs))
	for i, o := range s.obs {
		names[i] = o.Name
	}
	return names
}

// Values returns current values in declaration order, aligned with Names.
func (s *ObservableSet) Values() []float64 {
	vals := make([]float64, len(s.obs))
	for i, o := range s.obs {
		vals[i] = o.Value
	}
	return vals
}

// Get returns the current value, or 0 for unknown names.
func (s *ObservableSet) Get(name string) float64 {
	if i, ok := s.idx[name]; ok {
		return s.obs[i].Value
	}
	return 0
}

// Range returns the declared [min, max] of an observable.
func (s *ObservableSet) Range(name string) (min, max float64, err error) {
	i, ok := s.idx[name]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownObservable, name)
	}
	return s.obs[i].Min, s.obs[i].Max, nil
}

// Set assigns and clamps. Unknown names are ignored; the reaction model only
// references declared names, validated when the definition is built.
func (s *ObservableSet) Set(name string, v float64) {
	if i, ok := s.idx[name]; ok {
		o := &s.obs[i]
		o.Value = clamp(v, o.Min, o.Max)
	}
}

// Add applies a delta and clamps. NaN and Inf degrade to the nearest bound
// rather than propagating.
func (s *ObservableSet) Add(name string, delta float64) {
	i, ok := s.idx[name]
	if !ok {
		return
	}
	o := &s.obs[i]
	v := o.Value + delta
	if math.IsNaN(v) {
		v = o.Min
	}
	if math.IsInf(v, 1) {
		v = o.Max
	}
	if math.IsInf(v, -1) {
		v = o.Min
	}
	o.Value = clamp(v, o.Min, o.Max)
}

// SetDrift retargets an observable's drift: rate units per second toward
// baseline. Used by phase entry hooks (fuel burn in the maintain band) and
// knobs (coolant strength).
func (s *ObservableSet) SetDrift(name string, baseline, rate float64) error {
	i, ok := s.idx[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownObservable, name)
	}
	o := &s.obs[i]
	o.Baseline = clamp(baseline, o.Min, o.Max)
	o.Drift = rate
	return nil
}

// StepDrift moves every observable toward its baseline by rate*dt, clamped,
// never overshooting. This is stage 4 of the reaction order.
func (s *ObservableSet) StepDrift(dt float64) {
	for i := range s.obs {
		o := &s.obs[i]
		if o.Drift == 0 || o.Value == o.Baseline {
			continue
		}
		step := math.Abs(o.Drift) * dt
		if gap := math.Abs(o.Baseline - o.Value); step > gap {
			step = gap
		}
		if o.Value > o.Baseline {
			step = -step
		}
		o.Value = clamp(o.Value+step, o.Min, o.Max)
	}
}

// Reset restores every observable to its declared initial state.
func (s *ObservableSet) Reset() {
	copy(s.obs, s.initial)
}

// View returns an immutable copy of the current values. Components receive a
// view for the tick, never live references.
func (s *ObservableSet) View() ObsView {
	v := make(ObsView, len(s.obs))
	for _, o := range s.obs {
		v[o.Name] = o.Value
	}
	return v
}

// ObsView is the per-tick snapshot of observable values handed to guards,
// rate shapers, and renderers.
type ObsView map[string]float64

// Get returns the value, or 0 for unknown names.
func (v ObsView) Get(name string) float64 {
	return v[name]
}
