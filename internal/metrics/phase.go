package metrics

import (
	"github.com/arvi-k/physlab/internal/core"
)

// PhaseTime accumulates sim-seconds spent in one named phase.
type PhaseTime struct {
	name    string
	phase   string
	total   float64
	prevT   float64
	samples int
}

func NewPhaseTime(phase string) *PhaseTime {
	return &PhaseTime{
		name:  "time_" + phase,
		phase: phase,
	}
}

func (p *PhaseTime) Name() string { return p.name }

func (p *PhaseTime) Observe(snap core.Snapshot) {
	if p.samples > 0 && snap.Phase == p.phase {
		p.total += snap.Time - p.prevT
	}
	p.prevT = snap.Time
	p.samples++
}

func (p *PhaseTime) Value() float64 {
	return p.total
}

func (p *PhaseTime) Reset() {
	p.total = 0
	p.prevT = 0
	p.samples = 0
}

// Flaps counts phase transitions. A well-tuned hysteresis band keeps this
// low; a machine oscillating across one boundary drives it up.
type Flaps struct {
	name  string
	count int
}

func NewFlaps() *Flaps {
	return &Flaps{name: "flaps"}
}

func (f *Flaps) Name() string { return f.name }

func (f *Flaps) Observe(snap core.Snapshot) {
	f.count += len(snap.EventsOf(core.EventPhase))
}

func (f *Flaps) Value() float64 {
	return float64(f.count)
}

func (f *Flaps) Reset() {
	f.count = 0
}
