package core

// Snapshot is the read-only view of one completed tick. Every slice and map
// inside is a copy: renderers, recorders and the live stream may hold a
// Snapshot as long as they like without racing the engine.
type Snapshot struct {
	Lab         string      `json:"lab"`
	Tick        uint64      `json:"tick"`
	Time        float64     `json:"time"`
	Phase       string      `json:"phase"`
	Terminal    bool        `json:"terminal,omitempty"`
	Observables ObsView     `json:"observables"`
	ObsNames    []string    `json:"-"`
	Particles   []Particle  `json:"particles"`
	Effects     []Effect    `json:"effects,omitempty"`
	Events      []Event     `json:"events,omitempty"`
	Bounds      Rect        `json:"bounds"`
	Containment Containment `json:"containment"`
	Knobs       ObsView     `json:"knobs,omitempty"`
	Escaped     uint64      `json:"escaped,omitempty"`
	counts      [numKinds]int
}

// Count returns the live population of one kind at snapshot time.
func (s Snapshot) Count(k Kind) int {
	if int(k) >= len(s.counts) {
		return 0
	}
	return s.counts[k]
}

// Total returns the live population across all kinds.
func (s Snapshot) Total() int {
	n := 0
	for _, c := range s.counts {
		n += c
	}
	return n
}

// Obs is shorthand for Observables.Get with a zero default.
func (s Snapshot) Obs(name string) float64 {
	return s.Observables.Get(name)
}

// EventsOf filters this tick's events by type.
func (s Snapshot) EventsOf(t EventType) []Event {
	var out []Event
	for _, e := range s.Events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Observer receives the snapshot after every tick. Implementations must not
// block: a slow consumer stalls the clock for every other consumer. The live
// stream and renderers drop frames instead.
type Observer interface {
	OnTick(snap Snapshot)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) OnTick(snap Snapshot) { f(snap) }
