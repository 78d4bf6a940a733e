package metrics

import (
	"github.com/arvi-k/physlab/internal/core"
)

type EventCount struct {
	name  string
	etype core.EventType
	count int
}

func NewEventCount(etype core.EventType) *EventCount {
	return &EventCount{
		name:  string(etype) + "_count",
		etype: etype,
	}
}

func (e *EventCount) Name() string { return e.name }

func (e *EventCount) Observe(snap core.Snapshot) {
	e.count += len(snap.EventsOf(e.etype))
}

func (e *EventCount) Value() float64 {
	return float64(e.count)
}

func (e *EventCount) Reset() {
	e.count = 0
}

// EventRate reports events of one type per sim-second over the observed span.
type EventRate struct {
	name    string
	etype   core.EventType
	count   int
	firstT  float64
	lastT   float64
	samples int
}

func NewEventRate(etype core.EventType) *EventRate {
	return &EventRate{
		name:  string(etype) + "_rate",
		etype: etype,
	}
}

func (e *EventRate) Name() string { return e.name }

func (e *EventRate) Observe(snap core.Snapshot) {
	if e.samples == 0 {
		e.firstT = snap.Time
	}
	e.lastT = snap.Time
	e.count += len(snap.EventsOf(e.etype))
	e.samples++
}

func (e *EventRate) Value() float64 {
	span := e.lastT - e.firstT
	if span <= 0 {
		return 0
	}
	return float64(e.count) / span
}

func (e *EventRate) Reset() {
	e.count = 0
	e.firstT = 0
	e.lastT = 0
	e.samples = 0
}
