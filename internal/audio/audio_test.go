package audio

import (
	"math"
	"testing"

	"github.com/arvi-k/physlab/internal/core"
)

func TestOnTickTracksObservableAndClicks(t *testing.T) {
	s := NewSonifier("temperature")
	s.OnTick(core.Snapshot{
		Observables: core.ObsView{"temperature": 412.5},
		Events: []core.Event{
			{Type: core.EventDecay, Name: "alpha"},
			{Type: core.EventReaction, Name: "fuse"},
			{Type: core.EventPhase, Name: "heating"},
		},
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level != 412.5 {
		t.Fatalf("level = %v, want 412.5", s.level)
	}
	// Phase events are silent; only decay and reaction click.
	if s.pending != 2 {
		t.Fatalf("pending clicks = %d, want 2", s.pending)
	}
}

func TestOnTickDefaultsToFirstObservable(t *testing.T) {
	s := NewSonifier("")
	s.OnTick(core.Snapshot{
		ObsNames:    []string{"pressure", "yield"},
		Observables: core.ObsView{"pressure": 77, "yield": 3},
	})
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.level != 77 {
		t.Fatalf("level = %v, want the first declared observable", s.level)
	}
}

func TestOnTickCapsPendingClicks(t *testing.T) {
	s := NewSonifier("x")
	burst := make([]core.Event, 50)
	for i := range burst {
		burst[i] = core.Event{Type: core.EventDecay}
	}
	s.OnTick(core.Snapshot{Events: burst})
	s.OnTick(core.Snapshot{Events: burst})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != 64 {
		t.Fatalf("pending = %d, want capped at 64", s.pending)
	}
}

// The callback must be drivable without an open stream: tests and headless
// environments have no audio device.
func TestProcessWithoutStream(t *testing.T) {
	s := NewSonifier("temperature")
	s.OnTick(core.Snapshot{
		Observables: core.ObsView{"temperature": 800},
		Events:      []core.Event{{Type: core.EventDecay}},
	})

	out := [][]float32{make([]float32, BufferSize), make([]float32, BufferSize)}
	for i := 0; i < 4; i++ {
		s.process(out)
	}

	var peak float32
	for _, v := range out[0] {
		if a := float32(math.Abs(float64(v))); a > peak {
			peak = a
		}
	}
	if peak == 0 {
		t.Fatal("synth produced silence")
	}
	if peak > 1 {
		t.Fatalf("synth clipped: peak %v", peak)
	}
}

func TestSpectrumShape(t *testing.T) {
	s := NewSonifier("")
	out := [][]float32{make([]float32, BufferSize), make([]float32, BufferSize)}
	s.process(out)

	spec := s.Spectrum(64)
	if len(spec) != 64 {
		t.Fatalf("len(spec) = %d, want 64", len(spec))
	}
	for i, v := range spec {
		if v < 0 || v > 1 {
			t.Fatalf("bin %d = %v, want normalized to [0,1]", i, v)
		}
	}

	// A pad built from ~100-220Hz voices concentrates energy in the low bins
	// (bin width is SampleRate/BufferSize ≈ 43Hz).
	low, high := 0.0, 0.0
	for i := 0; i < 8; i++ {
		low += spec[i]
	}
	for i := 56; i < 64; i++ {
		high += spec[i]
	}
	if low <= high {
		t.Fatalf("expected low-frequency energy to dominate: low %v high %v", low, high)
	}
}

func TestTriangleWave(t *testing.T) {
	tests := []struct {
		phase float64
		want  float64
	}{
		{0, 1},
		{0.25, 0},
		{0.5, -1},
		{0.75, 0},
		{1.0, 1},
		{2.25, 0},
	}
	for _, tt := range tests {
		if got := triangle(tt.phase); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("triangle(%v) = %v, want %v", tt.phase, got, tt.want)
		}
	}
}

func TestLowPassConverges(t *testing.T) {
	state := 0.0
	var out float64
	// A constant input must converge to itself through the filter.
	for i := 0; i < 100000; i++ {
		out, state = lpf(1.0, 500, 1.0/float64(SampleRate), state)
	}
	if math.Abs(out-1.0) > 1e-3 {
		t.Fatalf("filter did not converge: %v", out)
	}
}

func TestWavetableMatchesMath(t *testing.T) {
	// Sweep a few cycles either side of zero; the table must track math.Sin
	// and math.Cos within its interpolation error.
	for x := -13.0; x < 13.0; x += 0.0137 {
		if got, want := lut.Sin(x), math.Sin(x); math.Abs(got-want) > 1e-5 {
			t.Fatalf("Sin(%v) = %v, want %v", x, got, want)
		}
		if got, want := lut.Cos(x), math.Cos(x); math.Abs(got-want) > 1e-5 {
			t.Fatalf("Cos(%v) = %v, want %v", x, got, want)
		}
	}
}

func TestWavetableWraps(t *testing.T) {
	// One full turn lands back on the same sample.
	for _, x := range []float64{0, 0.5, 1.9, 4.4} {
		a, b := lut.Sin(x), lut.Sin(x+2*math.Pi)
		if math.Abs(a-b) > 1e-9 {
			t.Errorf("Sin(%v) = %v but Sin(+2π) = %v", x, a, b)
		}
	}
}
