package analysis

import "math"

type Stats struct {
	Min  float64
	Max  float64
	Mean float64
	Std  float64
	Last float64
	N    int
}

// SeriesStats summarizes one sampled column.
func SeriesStats(vals []float64) Stats {
	if len(vals) == 0 {
		return Stats{}
	}

	s := Stats{Min: vals[0], Max: vals[0], Last: vals[len(vals)-1], N: len(vals)}
	sum := 0.0
	for _, v := range vals {
		if v < s.Min {
			s.Min = v
		}
		if v > s.Max {
			s.Max = v
		}
		sum += v
	}
	s.Mean = sum / float64(s.N)

	if s.N > 1 {
		varsum := 0.0
		for _, v := range vals {
			d := v - s.Mean
			varsum += d * d
		}
		s.Std = math.Sqrt(varsum / float64(s.N-1))
	}
	return s
}
