package core

import "math"

// Containment is the soft radial trap pulling particles back toward a center.
// Zero or one per session; drivers may retune Strength/Radius between ticks,
// the field reads it only at tick start.
type Containment struct {
	Center   Vec2    `json:"center"`
	Radius   float64 `json:"radius"`
	Strength float64 `json:"strength"`
}

// Active reports whether the restoring force applies.
func (c Containment) Active() bool {
	return c.Radius > 0 && c.Strength > 0
}

// containmentGain converts the 0-100 strength knob into acceleration per unit
// of excess distance.
const containmentGain = 0.01

// PerKind holds one value per particle kind, indexed by [Kind]. Definitions
// usually write it keyed: PerKind{KindPrimary: 1.5}.
type PerKind = [numKinds]float64

// KindSet marks a subset of particle kinds, indexed by [Kind].
type KindSet = [numKinds]bool

// Field computes per-particle velocity adjustments each tick: bounded angular
// jitter, a soft containment restoring force, a gravity term with per-kind
// exemptions, and a per-kind speed clamp. Per-kind constants are indexed by
// Kind so a new kind fails loudly at the definition stage, not silently here.
type Field struct {
	Jitter   [numKinds]float64 // max angular perturbation, rad/s
	MaxSpeed [numKinds]float64 // hard speed cap, units/s (0 = uncapped)
	Gravity  Vec2              // base gravity acceleration, units/s²

	// GravityScale multiplies Gravity; knob-adjustable.
	GravityScale float64

	// Exempt kinds ignore gravity (radiation escapes, matter does not).
	Exempt [numKinds]bool

	// SoftZone is the fraction of the containment radius beyond which the
	// restoring force engages. The boundary is soft: particles may
	// transiently exceed the radius.
	SoftZone float64

	// Heat returns the temperature-derived speed multiplier for the tick
	// (nil = 1). Values above 1 grow velocities until MaxSpeed caps them.
	Heat func(ObsView) float64

	Mover Mover
}

// FieldStats reports lifecycle outcomes of one field pass.
type FieldStats struct {
	Escaped int // emission particles removed at the outer boundary
	Expired int // particles whose TTL elapsed
	Wrapped int // particles re-entered near the containment center
}

// Apply moves every particle by dt and enforces the boundary policy: a
// particle crossing the outer rect wraps to a re-entry point near the
// containment center, except emission particles, which are removed (radiated
// away). Positions are always in-bounds when Apply returns.
func (f *Field) Apply(dt float64, store *ParticleStore, c Containment, obs ObsView, bounds Rect, rng RNG) FieldStats {
	heat := 1.0
	if f.Heat != nil {
		heat = f.Heat(obs)
	}
	mover := f.Mover
	if mover == nil {
		mover = NewEuler()
	}

	center := bounds.Center()
	if c.Active() {
		center = c.Center
	}
	reentry := min(bounds.Width(), bounds.Height()) * 0.05

	var stats FieldStats
	var dead []uint64

	store.ForEach(func(p *Particle) {
		if p.Mortal() {
			p.TTL -= dt
			if p.TTL <= 0 {
				dead = append(dead, p.ID)
				stats.Expired++
				return
			}
		}

		if j := f.Jitter[p.Kind]; j > 0 {
			p.Vel = p.Vel.Rotate((rng.Float64()*2 - 1) * j * dt)
		}

		var acc Vec2
		if c.Active() {
			delta := c.Center.Sub(p.Pos)
			zone := f.SoftZone * c.Radius
			if dist := delta.Len(); dist > zone {
				acc = acc.Add(delta.Norm().Scale((dist - zone) * c.Strength * containmentGain))
			}
		}
		if !f.Exempt[p.Kind] {
			acc = acc.Add(f.Gravity.Scale(f.GravityScale))
		}

		if heat != 1 {
			p.Vel = p.Vel.Scale(1 + (heat-1)*dt)
		}

		mover.Move(p, acc, dt)

		if ms := f.MaxSpeed[p.Kind]; ms > 0 {
			p.Vel = p.Vel.ClampLen(ms)
		}

		if !bounds.Contains(p.Pos) {
			if p.Kind == KindEmission {
				dead = append(dead, p.ID)
				stats.Escaped++
				return
			}
			off := Vec2{X: reentry, Y: 0}.Rotate(rng.Float64() * 2 * math.Pi)
			p.Pos = Vec2{
				X: clamp(center.X+off.X, bounds.Min.X, bounds.Max.X),
				Y: clamp(center.Y+off.Y, bounds.Min.Y, bounds.Max.Y),
			}
			stats.Wrapped++
		}
	})

	for _, id := range dead {
		store.Remove(id)
	}
	return stats
}
