package core

import "iter"

// EffectKind is the closed set of transient visual markers.
type EffectKind uint8

const (
	EffectFlash EffectKind = iota // reaction point flash
	EffectBurst                   // expanding burst (detonation, fission)
	EffectBeam                    // origin-to-target line (detection, emission path)
	EffectRing                    // containment pulse
	EffectDecayMark               // decay site marker
)

// MarshalJSON emits the effect name for the live stream.
func (k EffectKind) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k EffectKind) String() string {
	switch k {
	case EffectFlash:
		return "flash"
	case EffectBurst:
		return "burst"
	case EffectBeam:
		return "beam"
	case EffectRing:
		return "ring"
	case EffectDecayMark:
		return "decay"
	}
	return "effect"
}

// Duration returns the fixed lifetime in simulated seconds for the kind.
func (k EffectKind) Duration() float64 {
	switch k {
	case EffectFlash:
		return 0.3
	case EffectBurst:
		return 0.6
	case EffectBeam:
		return 0.25
	case EffectRing:
		return 0.5
	case EffectDecayMark:
		return 0.4
	}
	return 0.3
}

// Effect is a purely presentational record. One-way: simulation spawns
// effects, effects never influence simulation state.
type Effect struct {
	Kind      EffectKind `json:"kind"`
	Origin    Vec2       `json:"origin"`
	Target    Vec2       `json:"target"`
	HasTarget bool       `json:"hasTarget,omitempty"`
	Born      float64    `json:"born"`
	Duration  float64    `json:"duration"`
}

// Age returns 0..1 progress through the effect's lifetime at time now.
func (e Effect) Age(now float64) float64 {
	if e.Duration <= 0 {
		return 1
	}
	return clamp01((now - e.Born) / e.Duration)
}

// EffectQueue owns the live effects of one session.
type EffectQueue struct {
	effects []Effect
}

func NewEffectQueue() *EffectQueue {
	return &EffectQueue{effects: make([]Effect, 0, 64)}
}

// Spawn appends an effect with its kind's fixed duration, stamped at now.
func (q *EffectQueue) Spawn(kind EffectKind, origin Vec2, now float64) {
	q.effects = append(q.effects, Effect{
		Kind:     kind,
		Origin:   origin,
		Born:     now,
		Duration: kind.Duration(),
	})
}

// SpawnAt appends a directed effect (origin to target).
func (q *EffectQueue) SpawnAt(kind EffectKind, origin, target Vec2, now float64) {
	q.effects = append(q.effects, Effect{
		Kind:      kind,
		Origin:    origin,
		Target:    target,
		HasTarget: true,
		Born:      now,
		Duration:  kind.Duration(),
	})
}

// Expire drops effects whose duration has elapsed. An effect spawned at T
// with duration D survives snapshots through T+D inclusive.
func (q *EffectQueue) Expire(now float64) {
	live := q.effects[:0]
	for _, e := range q.effects {
		if now <= e.Born+e.Duration {
			live = append(live, e)
		}
	}
	q.effects = live
}

// Live returns a lazy, restartable sequence of current effects.
func (q *EffectQueue) Live() iter.Seq[Effect] {
	return func(yield func(Effect) bool) {
		for _, e := range q.effects {
			if !yield(e) {
				return
			}
		}
	}
}

func (q *EffectQueue) Len() int {
	return len(q.effects)
}

// Clear drops everything; used by session reset.
func (q *EffectQueue) Clear() {
	q.effects = q.effects[:0]
}
