package labs

import "github.com/arvi-k/physlab/internal/core"

const (
	dtIdle core.Phase = iota
	dtArmed
	dtDetonating
	dtAftermath
)

// dtBaseRate is the resting criticality rate; the detonating phase boosts it
// a hundredfold for as long as the phase holds.
const dtBaseRate = 0.6

func init() {
	register(Lab{
		Name:    "detonation",
		Tagline: "compress the core past critical density and ride the prompt cascade",
		Kinds: map[core.Kind]string{
			core.KindPrimary:   "fissile core",
			core.KindByproduct: "fragment",
			core.KindEmission:  "prompt neutron",
		},
		Seed:  23,
		build: detonationDefinition,
	})
}

func detonationDefinition() core.Definition {
	center := stageCenter()

	return core.Definition{
		Lab:    "detonation",
		Bounds: stage,
		Containment: core.Containment{
			Center:   center,
			Radius:   120,
			Strength: 25,
		},
		Field: core.Field{
			Jitter: core.PerKind{
				core.KindPrimary:   0.8,
				core.KindByproduct: 1.0,
				core.KindEmission:  0.2,
			},
			MaxSpeed: core.PerKind{
				core.KindPrimary:   100,
				core.KindByproduct: 140,
				core.KindEmission:  260,
			},
			SoftZone: 0.6,
			Mover:    core.NewEuler(),
		},
		Rules: core.Rules{
			Pair: []core.PairRule{{
				Name:      "criticality",
				Kind:      core.KindPrimary,
				Proximity: 20,
				BaseRate:  dtBaseRate,
				// A dispersed core barely reacts; a compressed one chains.
				RateScale: func(v core.ObsView) float64 {
					return v.Get("density") / 50
				},
				Products:     []core.Kind{core.KindByproduct, core.KindEmission, core.KindEmission},
				ProductSpeed: 180,
				ProductTTL:   1.8,
				Release:      []core.Delta{{Obs: "yield", Amount: 2}},
				Effect:       core.EffectBurst,
			}},
			Triggers: []core.Trigger{{
				// Fires as soon as yield accumulates, but the request only
				// lands while the core is armed: the table has no
				// idle -> detonating row.
				Name: "criticality-spike",
				When: func(v core.ObsView) bool {
					return v.Get("yield") >= 40
				},
				RequestTo:     dtDetonating,
				RequestsPhase: true,
			}},
		},
		Observables: []core.Observable{
			{Name: "yield", Min: 0, Max: 1000},
			{Name: "density", Min: 0, Max: 100},
			{Name: "mass", Min: 0, Max: 300},
		},
		Phases: []core.PhaseSpec{
			{Name: "idle"},
			{Name: "armed"},
			{Name: "detonating"},
			{Name: "aftermath", Terminal: true},
		},
		Table: []core.Transition{
			{From: dtIdle, To: dtArmed, Guards: []core.Guard{core.ObservableAbove("density", 60)}},
			{From: dtArmed, To: dtIdle, Guards: []core.Guard{core.ObservableBelow("density", 40)}},
			{From: dtArmed, To: dtDetonating, OnRequest: true, Guards: []core.Guard{core.ObservableAbove("yield", 40)}},
			{From: dtDetonating, To: dtAftermath, Guards: []core.Guard{core.ObservableAbove("yield", 400)}},
			{From: dtDetonating, To: dtAftermath, Guards: []core.Guard{core.ObservableBelow("mass", 10)}},
			{From: dtDetonating, To: dtAftermath, Guards: []core.Guard{core.ObservableBelow("density", 25)}},
		},
		Population: core.Population{
			Count:       80,
			Dist:        map[core.Kind]float64{core.KindPrimary: 1},
			Speed:       35,
			Energy:      80,
			EmissionTTL: 1.8,
		},
		Derived: []core.DerivedObs{
			{
				// Share of the core packed inside three quarters of the
				// containment radius.
				Name: "density",
				From: func(st *core.ParticleStore) float64 {
					total, packed := 0, 0
					for p := range st.OfKind(core.KindPrimary) {
						total++
						if p.Pos.Sub(center).Len() <= 90 {
							packed++
						}
					}
					if total == 0 {
						return 0
					}
					return 100 * float64(packed) / float64(total)
				},
			},
			{
				Name: "mass",
				From: func(st *core.ParticleStore) float64 {
					return float64(st.CountKind(core.KindPrimary))
				},
			},
		},
		Hooks: []core.PhaseHook{
			{
				Phase: dtDetonating,
				Do: func(s *core.Session) {
					s.SetPairRate("criticality", dtBaseRate*100)
				},
			},
			{
				Phase:  dtDetonating,
				OnExit: true,
				Do: func(s *core.Session) {
					s.SetPairRate("criticality", dtBaseRate)
				},
			},
		},
		Knobs: []core.KnobSpec{
			{
				Name: "compression", Min: 0, Max: 100, Default: 10,
				Apply: func(s *core.Session, v float64) {
					s.SetContainmentStrength(2.5 * v)
				},
			},
			{
				// A heavier tamper slows the core, holding it dense longer.
				Name: "tamper", Min: 0, Max: 100, Default: 50,
				Apply: func(s *core.Session, v float64) {
					s.SetMaxSpeed(core.KindPrimary, 40+(100-v)*1.2)
				},
			},
		},
	}
}
