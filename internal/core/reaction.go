package core

import (
	"fmt"
	"math"
)

// Delta is one observable adjustment released by a successful reaction.
// Releases are ordered slices, not maps: clamping makes application order
// observable, and determinism requires a fixed order.
type Delta struct {
	Obs    string
	Amount float64
}

// PairRule is a pairwise reaction (fusion-style): unordered pairs of Kind
// within Proximity react with probability BaseRate*RateScale(obs)*dt, clamped
// to 1 and evaluated against a single draw. Success consumes both reactants
// and spawns the documented fixed Products at their midpoint.
type PairRule struct {
	Name      string
	Kind      Kind
	Proximity float64
	BaseRate  float64 // per candidate pair, per simulated second

	// RateScale shapes the rate from the tick's observable view
	// (temperature/pressure curves); nil means 1.
	RateScale func(ObsView) float64

	Products      []Kind
	ProductEnergy float64 // 0 = mean of the reactant energies
	ProductSpeed  float64
	ProductTTL    float64 // applied to emission products

	Release []Delta
	Effect  EffectKind
}

// SoloRule is an independent per-particle reaction (decay/absorption-style).
// Half-life labs pass Rate = ln2/halfLife.
type SoloRule struct {
	Name string
	Kind Kind
	Rate float64 // per particle, per simulated second

	RateScale func(ObsView) float64

	Remove    bool // consume the particle on success
	Into      []Kind
	IntoTTL   float64
	IntoSpeed float64

	Release []Delta
	Effect  EffectKind
}

// Trigger is a detection/threshold check over observables. It never touches
// particles; while its predicate holds it raises a phase-transition request,
// and on the rising edge it emits a threshold event.
type Trigger struct {
	Name string
	When func(ObsView) bool

	RequestTo     Phase
	RequestsPhase bool

	fired bool
}

// Rules is the per-session reaction model, evaluated in a fixed order each
// tick: pair scans, solo scans, triggers, observable drift. A particle
// consumed by an earlier stage is excluded from later stages the same tick.
type Rules struct {
	Pair     []PairRule
	Solo     []SoloRule
	Triggers []Trigger

	batch *Batch
}

// Apply runs stages 1-3 (pair, solo, triggers) and returns the events raised
// and any phase requests. Stage 4 (drift) is obs.StepDrift, run by the
// session after Apply so that reaction releases land before decay.
func (r *Rules) Apply(dt float64, store *ParticleStore, obs *ObservableSet, effects *EffectQueue, rng RNG, now float64, tick uint64) ([]Event, []Phase) {
	if r.batch == nil {
		r.batch = NewBatch()
	}
	view := obs.View()

	var events []Event
	var requests []Phase

	for pi := range r.Pair {
		rule := &r.Pair[pi]
		scale := 1.0
		if rule.RateScale != nil {
			scale = rule.RateScale(view)
		}
		prob := clamp01(rule.BaseRate * scale * dt)
		if prob <= 0 {
			continue
		}
		proxSq := rule.Proximity * rule.Proximity

		var cands []Particle
		for p := range store.OfKind(rule.Kind) {
			cands = append(cands, p)
		}

		for i := 0; i < len(cands); i++ {
			if r.batch.Consumed(cands[i].ID) {
				continue
			}
			for j := i + 1; j < len(cands); j++ {
				if r.batch.Consumed(cands[i].ID) {
					break
				}
				if r.batch.Consumed(cands[j].ID) {
					continue
				}
				if cands[i].Pos.Sub(cands[j].Pos).LenSq() > proxSq {
					continue
				}
				if rng.Float64() >= prob {
					continue
				}

				r.batch.Consume(cands[i].ID)
				r.batch.Consume(cands[j].ID)

				mid := cands[i].Pos.Mid(cands[j].Pos)
				energy := rule.ProductEnergy
				if energy == 0 {
					energy = (cands[i].Energy + cands[j].Energy) / 2
				}
				for _, k := range rule.Products {
					r.spawnProduct(rng, k, mid, rule.ProductSpeed, energy, rule.ProductTTL)
				}
				for _, d := range rule.Release {
					obs.Add(d.Obs, d.Amount)
				}
				effects.Spawn(rule.Effect, mid, now)
				events = append(events, Event{
					Tick: tick, Time: now, Type: EventReaction, Name: rule.Name,
					Detail: fmt.Sprintf("%s + %s -> %d product(s)", rule.Kind, rule.Kind, len(rule.Products)),
				})
			}
		}
	}

	for si := range r.Solo {
		rule := &r.Solo[si]
		scale := 1.0
		if rule.RateScale != nil {
			scale = rule.RateScale(view)
		}
		prob := clamp01(rule.Rate * scale * dt)
		if prob <= 0 {
			continue
		}

		for p := range store.OfKind(rule.Kind) {
			if r.batch.Consumed(p.ID) {
				continue
			}
			if rng.Float64() >= prob {
				continue
			}
			if rule.Remove {
				r.batch.Consume(p.ID)
			}
			for _, k := range rule.Into {
				r.spawnProduct(rng, k, p.Pos, rule.IntoSpeed, p.Energy, rule.IntoTTL)
			}
			for _, d := range rule.Release {
				obs.Add(d.Obs, d.Amount)
			}
			effects.Spawn(rule.Effect, p.Pos, now)
			events = append(events, Event{
				Tick: tick, Time: now, Type: EventDecay, Name: rule.Name,
				Detail: fmt.Sprintf("%s id=%d", p.Kind, p.ID),
			})
		}
	}

	store.Apply(r.batch)

	tview := obs.View()
	for ti := range r.Triggers {
		trg := &r.Triggers[ti]
		hold := trg.When != nil && trg.When(tview)
		if hold {
			if trg.RequestsPhase {
				requests = append(requests, trg.RequestTo)
			}
			if !trg.fired {
				events = append(events, Event{
					Tick: tick, Time: now, Type: EventThreshold, Name: trg.Name,
				})
			}
		}
		trg.fired = hold
	}

	return events, requests
}

func (r *Rules) spawnProduct(rng RNG, k Kind, at Vec2, speed, energy, ttl float64) {
	p := Particle{
		Kind:   k,
		Pos:    at,
		Energy: clamp(energy, EnergyMin, EnergyMax),
	}
	if speed > 0 {
		p.Vel = Vec2{X: speed, Y: 0}.Rotate(rng.Float64() * 2 * math.Pi)
	}
	if k == KindEmission && ttl > 0 {
		p.TTL = ttl
	}
	r.batch.Spawn(p)
}

// Reset clears trigger edge state; used by session reset.
func (r *Rules) Reset() {
	for i := range r.Triggers {
		r.Triggers[i].fired = false
	}
	if r.batch != nil {
		r.batch.consumed = r.batch.consumed[:0]
		r.batch.spawned = r.batch.spawned[:0]
		clear(r.batch.consumedSet)
	}
}

// SetPairRate retunes a pair rule's base rate by name; used by knobs.
func (r *Rules) SetPairRate(name string, rate float64) error {
	for i := range r.Pair {
		if r.Pair[i].Name == name {
			r.Pair[i].BaseRate = rate
			return nil
		}
	}
	return fmt.Errorf("core: unknown pair rule %q", name)
}

// SetSoloRate retunes a solo rule's rate by name; used by knobs.
func (r *Rules) SetSoloRate(name string, rate float64) error {
	for i := range r.Solo {
		if r.Solo[i].Name == name {
			r.Solo[i].Rate = rate
			return nil
		}
	}
	return fmt.Errorf("core: unknown solo rule %q", name)
}
