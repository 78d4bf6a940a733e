package analysis

import (
	"strings"

	"github.com/arvi-k/physlab/internal/core"
)

// Residence summarizes where a run spent its time and how it moved between
// phases.
type Residence struct {
	Seconds     map[string]float64
	Transitions map[string]map[string]int
	Total       float64
}

// PhaseResidence rebuilds the phase timeline of a finished run from its
// event log. The starting phase is recovered from the first transition; a
// run that never moved spent everything in its final phase.
func PhaseResidence(res *core.Result) *Residence {
	r := &Residence{
		Seconds:     make(map[string]float64),
		Transitions: make(map[string]map[string]int),
		Total:       res.SimTime,
	}

	var moves []core.Event
	for _, e := range res.Events {
		if e.Type == core.EventPhase {
			moves = append(moves, e)
		}
	}

	if len(moves) == 0 {
		r.Seconds[res.Final.Phase] = res.SimTime
		return r
	}

	cur := transitionFrom(moves[0])
	prevT := 0.0
	for _, e := range moves {
		r.Seconds[cur] += e.Time - prevT
		from := transitionFrom(e)
		to := e.Name
		if r.Transitions[from] == nil {
			r.Transitions[from] = make(map[string]int)
		}
		r.Transitions[from][to]++
		cur = to
		prevT = e.Time
	}
	r.Seconds[cur] += res.SimTime - prevT
	return r
}

// Fraction returns the share of the run spent in one phase.
func (r *Residence) Fraction(phase string) float64 {
	if r.Total <= 0 {
		return 0
	}
	return r.Seconds[phase] / r.Total
}

// transitionFrom recovers the source phase from an entry event's detail
// ("heating to reacting").
func transitionFrom(e core.Event) string {
	if i := strings.Index(e.Detail, " to "); i >= 0 {
		return e.Detail[:i]
	}
	return e.Name
}
