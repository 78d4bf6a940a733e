package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// Spectrum is the one-sided power spectrum of a sampled observable.
type Spectrum struct {
	Freqs []float64 // cycles per sim-second
	Power []float64
}

// PowerSpectrum computes the spectrum of vals sampled at rate samples per
// sim-second. The mean is removed and a Hann window applied, so the DC bin
// carries no interesting mass and leakage from the finite record stays low.
// Returns nil for records too short to say anything.
func PowerSpectrum(vals []float64, rate float64) *Spectrum {
	n := len(vals)
	if n < 4 || rate <= 0 {
		return nil
	}

	mean := 0.0
	for _, v := range vals {
		mean += v
	}
	mean /= float64(n)

	w := window.Hann(n)
	buf := make([]float64, n)
	for i, v := range vals {
		buf[i] = (v - mean) * w[i]
	}

	coeffs := fft.FFTReal(buf)
	half := n / 2
	s := &Spectrum{
		Freqs: make([]float64, half),
		Power: make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Freqs[k] = float64(k) * rate / float64(n)
		s.Power[k] = cmplx.Abs(coeffs[k])
	}
	return s
}

// DominantPeriod returns the period in sim-seconds of the strongest non-DC
// component, or 0 when the record has no oscillation worth reporting.
func (s *Spectrum) DominantPeriod() float64 {
	if s == nil || len(s.Power) < 2 {
		return 0
	}

	best := 1
	total := 0.0
	for k := 1; k < len(s.Power); k++ {
		total += s.Power[k]
		if s.Power[k] > s.Power[best] {
			best = k
		}
	}
	if total == 0 || s.Freqs[best] == 0 {
		return 0
	}
	// A real line concentrates mass; a flat record spreads it evenly.
	if s.Power[best] < 2*total/float64(len(s.Power)-1) {
		return 0
	}
	return 1 / s.Freqs[best]
}
