package labs

import "github.com/arvi-k/physlab/internal/core"

const (
	chIdle core.Phase = iota
	chCritical
	chSupercritical
	chBurnout
)

func init() {
	register(Lab{
		Name:    "chain",
		Tagline: "a fissile sample and a handful of seed neutrons; keep it critical without burning out",
		Kinds: map[core.Kind]string{
			core.KindPrimary:   "fissile nucleus",
			core.KindSecondary: "daughter nucleus",
			core.KindEmission:  "neutron",
		},
		Seed:  11,
		build: chainDefinition,
	})
}

func chainDefinition() core.Definition {
	return core.Definition{
		Lab:    "chain",
		Bounds: stage,
		Containment: core.Containment{
			Center:   stageCenter(),
			Radius:   220,
			Strength: 15,
		},
		Field: core.Field{
			Jitter: core.PerKind{
				core.KindPrimary:   0.3,
				core.KindSecondary: 0.3,
				core.KindEmission:  0.1,
			},
			MaxSpeed: core.PerKind{
				core.KindPrimary:   25,
				core.KindSecondary: 25,
				core.KindEmission:  240,
			},
			SoftZone: 0.8,
			Mover:    core.NewEuler(),
		},
		Rules: core.Rules{
			Solo: []core.SoloRule{
				{
					// Mean-field coupling: each nucleus fissions at a rate
					// proportional to the live neutron count, so the chain
					// feeds itself through the flux observable.
					Name: "fission",
					Kind: core.KindPrimary,
					Rate: 0.025,
					RateScale: func(v core.ObsView) float64 {
						return v.Get("flux")
					},
					Remove:    true,
					Into:      []core.Kind{core.KindSecondary, core.KindEmission, core.KindEmission},
					IntoTTL:   4,
					IntoSpeed: 200,
					Release:   []core.Delta{{Obs: "yield", Amount: 2}},
					Effect:    core.EffectBurst,
				},
				{
					Name:   "absorption",
					Kind:   core.KindEmission,
					Rate:   0.7,
					Remove: true,
					Effect: core.EffectDecayMark,
				},
			},
			Triggers: []core.Trigger{{
				Name: "prompt-critical",
				When: func(v core.ObsView) bool {
					return v.Get("flux") >= 200
				},
			}},
		},
		Observables: []core.Observable{
			{Name: "flux", Min: 0, Max: 400},
			{Name: "mass", Min: 0, Max: 300},
			{Name: "yield", Min: 0, Max: 1000},
		},
		Phases: []core.PhaseSpec{
			{Name: "idle"},
			{Name: "critical"},
			{Name: "supercritical"},
			{Name: "burnout", Terminal: true},
		},
		Table: []core.Transition{
			{From: chIdle, To: chCritical, Guards: []core.Guard{core.ObservableAbove("flux", 20)}},
			{From: chCritical, To: chIdle, Guards: []core.Guard{core.ObservableBelow("flux", 10)}},
			{From: chCritical, To: chSupercritical, Guards: []core.Guard{core.ObservableAbove("flux", 120)}},
			{From: chSupercritical, To: chCritical, Guards: []core.Guard{core.ObservableBelow("flux", 80)}},
			{From: chSupercritical, To: chBurnout, Guards: []core.Guard{core.ObservableBelow("mass", 5)}},
		},
		Population: core.Population{
			Count:       70,
			Dist:        map[core.Kind]float64{core.KindPrimary: 0.9, core.KindEmission: 0.1},
			Speed:       30,
			Energy:      60,
			EmissionTTL: 4,
		},
		Derived: []core.DerivedObs{
			{
				Name: "flux",
				From: func(st *core.ParticleStore) float64 {
					return float64(st.CountKind(core.KindEmission))
				},
			},
			{
				Name: "mass",
				From: func(st *core.ParticleStore) float64 {
					return float64(st.CountKind(core.KindPrimary))
				},
			},
		},
		Knobs: []core.KnobSpec{
			{
				Name: "moderator", Min: 0, Max: 100, Default: 35,
				Apply: func(s *core.Session, v float64) {
					s.SetSoloRate("absorption", 0.02*v)
				},
			},
			{
				Name: "reflector", Min: 0, Max: 100, Default: 20,
				Apply: func(s *core.Session, v float64) {
					s.SetSoloRate("fission", 0.01+v*0.00075)
				},
			},
		},
	}
}
