package labs

import "github.com/arvi-k/physlab/internal/core"

const (
	irPristine core.Phase = iota
	irStressed
	irDamaged
	irFailed
)

func init() {
	register(Lab{
		Name:    "irradiation",
		Tagline: "a material sample under a steady beam; anneal the damage or watch it fail",
		Kinds: map[core.Kind]string{
			core.KindPrimary:   "lattice site",
			core.KindSecondary: "displaced site",
			core.KindByproduct: "void",
			core.KindEmission:  "spallation fragment",
		},
		Seed:  31,
		build: irradiationDefinition,
	})
}

func irradiationDefinition() core.Definition {
	return core.Definition{
		Lab:    "irradiation",
		Bounds: stage,
		Field: core.Field{
			Jitter: core.PerKind{
				core.KindSecondary: 0.2,
				core.KindByproduct: 0.1,
				core.KindEmission:  0.3,
			},
			MaxSpeed: core.PerKind{
				core.KindPrimary:   4,
				core.KindSecondary: 8,
				core.KindByproduct: 6,
				core.KindEmission:  220,
			},
			// Knocked-out fragments fall; the lattice itself stays put.
			Gravity:      core.Vec2{X: 0, Y: 120},
			GravityScale: 1,
			Exempt: core.KindSet{
				core.KindPrimary:   true,
				core.KindSecondary: true,
				core.KindByproduct: true,
			},
			Mover: core.NewEuler(),
		},
		Rules: core.Rules{
			Solo: []core.SoloRule{
				{
					Name: "displacement",
					Kind: core.KindPrimary,
					Rate: 0.002,
					RateScale: func(v core.ObsView) float64 {
						return v.Get("beam")
					},
					Remove:    true,
					Into:      []core.Kind{core.KindSecondary, core.KindEmission},
					IntoTTL:   1.2,
					IntoSpeed: 180,
					Release: []core.Delta{
						{Obs: "integrity", Amount: -0.8},
						{Obs: "dose", Amount: 0.5},
					},
					Effect: core.EffectDecayMark,
				},
				{
					Name: "fracture",
					Kind: core.KindSecondary,
					Rate: 0.001,
					RateScale: func(v core.ObsView) float64 {
						return v.Get("beam")
					},
					Remove:  true,
					Into:    []core.Kind{core.KindByproduct},
					Release: []core.Delta{{Obs: "integrity", Amount: -0.4}},
					Effect:  core.EffectFlash,
				},
			},
			Triggers: []core.Trigger{{
				Name: "dose-limit",
				When: func(v core.ObsView) bool {
					return v.Get("dose") >= 150
				},
			}},
		},
		Observables: []core.Observable{
			{Name: "integrity", Value: 100, Min: 0, Max: 100},
			{Name: "dose", Min: 0, Max: 200},
			{Name: "beam", Min: 0, Max: 100},
		},
		Phases: []core.PhaseSpec{
			{Name: "pristine"},
			{Name: "stressed"},
			{Name: "damaged"},
			{Name: "failed", Terminal: true},
		},
		// Damage moves integrity down; annealing can claw it back, so every
		// non-terminal step has a return path above the forward threshold.
		Table: []core.Transition{
			{From: irPristine, To: irStressed, Guards: []core.Guard{core.ObservableBelow("integrity", 85)}},
			{From: irStressed, To: irPristine, Guards: []core.Guard{core.ObservableAbove("integrity", 92)}},
			{From: irStressed, To: irDamaged, Guards: []core.Guard{core.ObservableBelow("integrity", 55)}},
			{From: irDamaged, To: irStressed, Guards: []core.Guard{core.ObservableAbove("integrity", 62)}},
			{From: irDamaged, To: irFailed, Guards: []core.Guard{core.ObservableBelow("integrity", 15)}},
		},
		Population: core.Population{
			Count:       120,
			Dist:        map[core.Kind]float64{core.KindPrimary: 1},
			Speed:       0,
			Energy:      50,
			EmissionTTL: 1.2,
		},
		Hooks: []core.PhaseHook{{
			// Structural failure trips the beam interlock.
			Phase: irFailed,
			Do: func(s *core.Session) {
				s.SetDrift("beam", 0, 1000)
			},
		}},
		Knobs: []core.KnobSpec{
			{
				// The drift holds the beam observable at the setpoint, which
				// the damage rules read as their rate scale.
				Name: "beam", Min: 0, Max: 100, Default: 30,
				Apply: func(s *core.Session, v float64) {
					s.SetDrift("beam", v, 1000)
				},
			},
			{
				Name: "annealing", Min: 0, Max: 10, Default: 0,
				Apply: func(s *core.Session, v float64) {
					s.SetDrift("integrity", 100, v)
				},
			},
		},
	}
}
