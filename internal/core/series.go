package core

// Series accumulates sampled observable values over a run, row per sample,
// column per observable in declaration order. Analysis and export consume it.
type Series struct {
	Names []string
	Times []float64
	Rows  [][]float64
}

func NewSeries(names []string) *Series {
	return &Series{Names: append([]string(nil), names...)}
}

// Append records one sample. The values slice is copied.
func (s *Series) Append(t float64, vals []float64) {
	s.Times = append(s.Times, t)
	s.Rows = append(s.Rows, append([]float64(nil), vals...))
}

func (s *Series) Len() int { return len(s.Times) }

// Column extracts one observable's trace, or nil for unknown names.
func (s *Series) Column(name string) []float64 {
	col := -1
	for i, n := range s.Names {
		if n == name {
			col = i
			break
		}
	}
	if col < 0 {
		return nil
	}
	out := make([]float64, len(s.Rows))
	for i, row := range s.Rows {
		out[i] = row[col]
	}
	return out
}

// Last returns the final sampled value of one observable, or 0.
func (s *Series) Last(name string) float64 {
	col := s.Column(name)
	if len(col) == 0 {
		return 0
	}
	return col[len(col)-1]
}
