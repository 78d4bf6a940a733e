package labs

import (
	"math"

	"github.com/arvi-k/physlab/internal/core"
)

const (
	dcHot core.Phase = iota
	dcActive
	dcQuiet
	dcInert
)

// Half-lives of the two unstable species, in simulated seconds.
const (
	dcParentHalfLife       = 8.0
	dcIntermediateHalfLife = 30.0
)

func init() {
	register(Lab{
		Name:    "decay",
		Tagline: "watch a two-step decay chain cool from hot to inert while managing the dose",
		Kinds: map[core.Kind]string{
			core.KindPrimary:   "parent isotope",
			core.KindSecondary: "intermediate isotope",
			core.KindByproduct: "stable isotope",
			core.KindEmission:  "alpha particle",
		},
		Seed:  19,
		build: decayDefinition,
	})
}

func decayDefinition() core.Definition {
	return core.Definition{
		Lab:    "decay",
		Bounds: stage,
		Field: core.Field{
			Jitter: core.PerKind{
				core.KindPrimary:   0.6,
				core.KindSecondary: 0.6,
				core.KindByproduct: 0.4,
				core.KindEmission:  0.1,
			},
			MaxSpeed: core.PerKind{
				core.KindPrimary:   20,
				core.KindSecondary: 20,
				core.KindByproduct: 15,
				core.KindEmission:  180,
			},
			Mover: core.NewEuler(),
		},
		Rules: core.Rules{
			Solo: []core.SoloRule{
				{
					Name:      "alpha-decay",
					Kind:      core.KindPrimary,
					Rate:      math.Ln2 / dcParentHalfLife,
					Remove:    true,
					Into:      []core.Kind{core.KindSecondary, core.KindEmission},
					IntoTTL:   2,
					IntoSpeed: 160,
					Release:   []core.Delta{{Obs: "dose", Amount: 0.5}},
					Effect:    core.EffectDecayMark,
				},
				{
					Name:      "beta-decay",
					Kind:      core.KindSecondary,
					Rate:      math.Ln2 / dcIntermediateHalfLife,
					Remove:    true,
					Into:      []core.Kind{core.KindByproduct, core.KindEmission},
					IntoTTL:   2,
					IntoSpeed: 120,
					Release:   []core.Delta{{Obs: "dose", Amount: 0.2}},
					Effect:    core.EffectFlash,
				},
			},
			Triggers: []core.Trigger{{
				Name: "dose-alarm",
				When: func(v core.ObsView) bool {
					return v.Get("dose") >= 100
				},
			}},
		},
		Observables: []core.Observable{
			{Name: "activity", Min: 0, Max: 100},
			{Name: "dose", Min: 0, Max: 300},
		},
		Phases: []core.PhaseSpec{
			{Name: "hot"},
			{Name: "active"},
			{Name: "quiet"},
			{Name: "inert", Terminal: true},
		},
		// Activity only falls, so the ladder is one-way.
		Table: []core.Transition{
			{From: dcHot, To: dcActive, Guards: []core.Guard{core.ObservableBelow("activity", 3)}},
			{From: dcActive, To: dcQuiet, Guards: []core.Guard{core.ObservableBelow("activity", 1)}},
			{From: dcQuiet, To: dcInert, Guards: []core.Guard{core.ObservableBelow("activity", 0.05)}},
		},
		Population: core.Population{
			Count:       80,
			Dist:        map[core.Kind]float64{core.KindPrimary: 1},
			Speed:       12,
			Energy:      40,
			EmissionTTL: 2,
		},
		Derived: []core.DerivedObs{{
			// Expected decays per second from the remaining unstable nuclei.
			Name: "activity",
			From: func(st *core.ParticleStore) float64 {
				parents := float64(st.CountKind(core.KindPrimary))
				inter := float64(st.CountKind(core.KindSecondary))
				return parents*math.Ln2/dcParentHalfLife + inter*math.Ln2/dcIntermediateHalfLife
			},
		}},
		Knobs: []core.KnobSpec{
			{
				Name: "shielding", Min: 0, Max: 100, Default: 0,
				Apply: func(s *core.Session, v float64) {
					s.SetDrift("dose", 0, v*0.05)
				},
			},
			{
				Name: "agitation", Min: 0, Max: 100, Default: 12,
				Apply: func(s *core.Session, v float64) {
					s.SetJitter(core.KindPrimary, v*0.05)
					s.SetJitter(core.KindSecondary, v*0.05)
				},
			},
		},
	}
}
