package optim

import (
	"context"
	"errors"
	"math"

	"github.com/arvi-k/physlab/internal/core"
)

// GridSearch exhaustively tries every combination of knob values and keeps
// the one that scores best on a named run metric.
type GridSearch struct {
	knobNames []string
	ranges    [][]float64
}

func NewGridSearch(knobs []string, ranges [][]float64) *GridSearch {
	return &GridSearch{knobNames: knobs, ranges: ranges}
}

// Linspace returns n evenly spaced values across [min, max].
func Linspace(min, max float64, n int) []float64 {
	if n <= 1 {
		return []float64{min}
	}
	vals := make([]float64, n)
	step := (max - min) / float64(n-1)
	for i := range vals {
		vals[i] = min + float64(i)*step
	}
	return vals
}

// Search runs every combination through runTrial and returns the knob
// settings with the best value of metricName. Failed trials are skipped; an
// error comes back only when nothing succeeded.
func (g *GridSearch) Search(
	ctx context.Context,
	runTrial func(knobs map[string]float64) (*core.Result, error),
	metricName string,
	maximize bool,
) (map[string]float64, float64, error) {

	best := math.Inf(1)
	if maximize {
		best = math.Inf(-1)
	}
	var bestKnobs map[string]float64

	g.searchRecursive(ctx, 0, make(map[string]float64), runTrial, metricName, maximize, &best, &bestKnobs)

	if bestKnobs == nil {
		return nil, 0, errors.New("optim: no trial produced a result")
	}
	return bestKnobs, best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	runTrial func(map[string]float64) (*core.Result, error),
	metricName string,
	maximize bool,
	best *float64,
	bestKnobs *map[string]float64,
) {
	if ctx.Err() != nil {
		return
	}

	if depth == len(g.knobNames) {
		result, err := runTrial(current)
		if err != nil {
			return
		}

		val, ok := result.Metrics[metricName]
		if !ok {
			return
		}

		better := val < *best
		if maximize {
			better = val > *best
		}
		if better {
			*best = val
			*bestKnobs = make(map[string]float64)
			for k, v := range current {
				(*bestKnobs)[k] = v
			}
		}
		return
	}

	knobName := g.knobNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64)
		for k, v := range current {
			next[k] = v
		}
		next[knobName] = val

		g.searchRecursive(ctx, depth+1, next, runTrial, metricName, maximize, best, bestKnobs)
	}
}
