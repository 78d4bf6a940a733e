package labs

import "github.com/arvi-k/physlab/internal/core"

// Phase ladder of the fusion lab. The reactor climbs with temperature,
// ignition is requested by a trigger rather than granted by heat alone, and
// the only way out of sustained burn is an empty tank.
const (
	fuHeating core.Phase = iota
	fuStabilizing
	fuReacting
	fuSustained
	fuExhausted
)

func init() {
	register(Lab{
		Name:    "fusion",
		Tagline: "heat a confined plasma to ignition and keep it burning until the fuel runs out",
		Kinds: map[core.Kind]string{
			core.KindPrimary:   "deuterium ion",
			core.KindByproduct: "helium ash",
			core.KindEmission:  "neutron",
		},
		Seed:  7,
		build: fusionDefinition,
	})
}

func fusionDefinition() core.Definition {
	center := stageCenter()
	const coreRadius = 150.0

	return core.Definition{
		Lab:    "fusion",
		Bounds: stage,
		Containment: core.Containment{
			Center:   center,
			Radius:   coreRadius,
			Strength: 50,
		},
		Field: core.Field{
			Jitter: core.PerKind{
				core.KindPrimary:   1.5,
				core.KindByproduct: 1.0,
				core.KindEmission:  0.2,
			},
			MaxSpeed: core.PerKind{
				core.KindPrimary:   120,
				core.KindByproduct: 80,
				core.KindEmission:  260,
			},
			SoftZone: 0.7,
			// Hotter plasma, faster ions. MaxSpeed caps the growth.
			Heat: func(v core.ObsView) float64 {
				return 1 + v.Get("temperature")/400
			},
			Mover: core.NewVerlet(),
		},
		Rules: core.Rules{
			Pair: []core.PairRule{{
				Name:      "fusion",
				Kind:      core.KindPrimary,
				Proximity: 22,
				BaseRate:  0.9,
				// Cold plasma does not fuse; above the threshold the
				// cross-section grows roughly linearly with temperature.
				RateScale: func(v core.ObsView) float64 {
					t := v.Get("temperature")
					if t < 150 {
						return 0
					}
					return min((t-150)/200, 3.0)
				},
				Products:     []core.Kind{core.KindByproduct, core.KindEmission},
				ProductSpeed: 140,
				ProductTTL:   2.5,
				Release:      []core.Delta{{Obs: "temperature", Amount: 6}},
				Effect:       core.EffectFlash,
			}},
			Triggers: []core.Trigger{
				{
					Name: "ignition",
					When: func(v core.ObsView) bool {
						return v.Get("temperature") >= 500
					},
					RequestTo:     fuSustained,
					RequestsPhase: true,
				},
				{
					Name: "first-neutrons",
					When: func(v core.ObsView) bool {
						return v.Get("flux") >= 1
					},
				},
			},
		},
		Observables: []core.Observable{
			{Name: "temperature", Value: 20, Min: 0, Max: 1000, Baseline: 20, Drift: 5},
			{Name: "fuel", Value: 100, Min: 0, Max: 100},
			{Name: "flux", Min: 0, Max: 500},
			{Name: "stability", Value: 100, Min: 0, Max: 100},
		},
		Phases: []core.PhaseSpec{
			{Name: "heating"},
			{Name: "stabilizing"},
			{Name: "reacting"},
			{Name: "sustained"},
			{Name: "exhausted", Terminal: true},
		},
		Table: []core.Transition{
			{From: fuHeating, To: fuStabilizing, Guards: []core.Guard{core.ObservableAbove("temperature", 150)}},
			{From: fuStabilizing, To: fuHeating, Guards: []core.Guard{core.ObservableBelow("temperature", 100)}},
			{From: fuStabilizing, To: fuReacting, Guards: []core.Guard{core.ObservableAbove("temperature", 300)}},
			{From: fuReacting, To: fuStabilizing, Guards: []core.Guard{core.ObservableBelow("temperature", 250)}},
			{From: fuReacting, To: fuSustained, OnRequest: true, Guards: []core.Guard{core.ObservableAbove("temperature", 500)}},
			{From: fuSustained, To: fuReacting, Guards: []core.Guard{core.ObservableBelow("temperature", 400)}},
			{From: fuSustained, To: fuExhausted, Guards: []core.Guard{core.ObservableBelow("fuel", 0.001)}},
		},
		Population: core.Population{
			Count:       100,
			Dist:        map[core.Kind]float64{core.KindPrimary: 1},
			Speed:       40,
			Energy:      50,
			EmissionTTL: 2.5,
		},
		Derived: []core.DerivedObs{
			{
				Name: "flux",
				From: func(st *core.ParticleStore) float64 {
					return float64(st.CountKind(core.KindEmission))
				},
			},
			{
				// Fraction of matter held inside the core radius. An empty
				// vessel counts as perfectly stable.
				Name: "stability",
				From: func(st *core.ParticleStore) float64 {
					total, inside := 0, 0
					for p := range st.Query(func(p core.Particle) bool { return p.Kind != core.KindEmission }) {
						total++
						if p.Pos.Sub(center).Len() <= coreRadius {
							inside++
						}
					}
					if total == 0 {
						return 100
					}
					return 100 * float64(inside) / float64(total)
				},
			},
		},
		Hooks: []core.PhaseHook{
			{
				// Sustained burn drains the tank at a fixed 2 units/s,
				// overriding any injection while the band holds.
				Phase: fuSustained,
				Do: func(s *core.Session) {
					s.SetDrift("fuel", 0, 2)
				},
			},
			{
				Phase:  fuSustained,
				OnExit: true,
				Do: func(s *core.Session) {
					v, _ := s.KnobValue("injection")
					s.SetDrift("fuel", 100, v)
				},
			},
		},
		Knobs: []core.KnobSpec{
			{
				Name: "heater", Min: 0, Max: 100, Default: 40,
				Apply: func(s *core.Session, v float64) {
					s.SetDrift("temperature", 20+v*9.8, 10+v)
				},
			},
			{
				Name: "containment", Min: 0, Max: 100, Default: 50,
				Apply: func(s *core.Session, v float64) {
					s.SetContainmentStrength(v)
				},
			},
			{
				// Refills the tank outside the sustained band; the burn
				// hook owns the fuel drift while ignition holds.
				Name: "injection", Min: 0, Max: 1.5, Default: 0,
				Apply: func(s *core.Session, v float64) {
					s.SetDrift("fuel", 100, v)
				},
			},
		},
	}
}
