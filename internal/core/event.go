package core

// EventType tags discrete things that happened during a tick.
type EventType string

const (
	EventReaction  EventType = "reaction"  // pairwise rule fired
	EventDecay     EventType = "decay"     // singleton rule fired
	EventThreshold EventType = "threshold" // detection trigger satisfied
	EventPhase     EventType = "phase"     // phase entered
	EventMilestone EventType = "milestone" // lab-defined marker
)

// Event is one discrete occurrence, exported with the snapshot of the tick it
// happened in and consumed by notifiers, recorders, and metrics. Events never
// feed back into simulation state.
type Event struct {
	Tick   uint64    `json:"tick"`
	Time   float64   `json:"time"`
	Type   EventType `json:"type"`
	Name   string    `json:"name"`
	Detail string    `json:"detail,omitempty"`
}
