package audio

import "math"

// wavetable trades memory for the transcendental calls in the synth hot
// path: the pad takes five LFO lookups per output sample at 44.1kHz. One
// 4096-entry cycle puts neighboring entries about 0.0015 rad apart, and
// lerping between them stays well below anything audible.
type wavetable struct {
	sin, cos []float64
}

var lut = newWavetable(4096)

func newWavetable(size int) *wavetable {
	t := &wavetable{
		sin: make([]float64, size),
		cos: make([]float64, size),
	}
	step := 2 * math.Pi / float64(size)
	for i := range t.sin {
		t.sin[i], t.cos[i] = math.Sincos(float64(i) * step)
	}
	return t
}

// lookup folds the angle into [0, 2π) — the synth clock grows without
// bound — then lerps between the two surrounding entries, the last entry
// wrapping back onto the first.
func lookup(tab []float64, x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	pos := x / (2 * math.Pi) * float64(len(tab))
	i := int(pos)
	if i >= len(tab) { // an angle just under 2π can round up
		return tab[0]
	}
	j := i + 1
	if j == len(tab) {
		j = 0
	}
	return tab[i] + (tab[j]-tab[i])*(pos-float64(i))
}

func (t *wavetable) Sin(x float64) float64 { return lookup(t.sin, x) }

func (t *wavetable) Cos(x float64) float64 { return lookup(t.cos, x) }
