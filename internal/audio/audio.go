// Package audio sonifies a running session: a slow ambient pad whose filter
// opens with the tracked observable, and Geiger-style clicks for decay and
// reaction events. Output only; the synth never feeds back into the
// simulation.
package audio

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/mjibson/go-dsp/fft"

	"github.com/arvi-k/physlab/internal/core"
)

const (
	SampleRate = 44100
	BufferSize = 1024
)

// Pad harmony: Gm7 add9 (G2, Bb2, D3, F3, A3).
var padFreqs = []float64{98.00, 116.54, 146.83, 174.61, 220.00}

// Sonifier renders the session soundtrack. Shared state between the session
// goroutine and the audio callback is confined to level/pending/recent under
// mu; everything else belongs to the callback.
type Sonifier struct {
	stream *portaudio.Stream

	mu       sync.Mutex
	track    string
	level    float64   // latest tracked observable value
	pending  int       // Geiger clicks waiting to fire
	recent   []float64 // ring of recent output samples for Spectrum
	recentAt int

	// Synthesis state, callback goroutine only.
	clock       float64
	levelSmooth float64
	filter      [2]float64
	delay       [2][]float64
	delayHead   int
	queued      int
	clickEnv    float64
	sinceClick  int
	noise       uint64

	Active bool
}

// NewSonifier builds a sonifier tracking the named observable. An empty name
// tracks whatever observable the lab declares first.
func NewSonifier(track string) *Sonifier {
	// 0.6 second ping-pong delay for a larger space
	delayLen := int(float64(SampleRate) * 0.6)
	return &Sonifier{
		track:  track,
		recent: make([]float64, BufferSize),
		delay:  [2][]float64{make([]float64, delayLen), make([]float64, delayLen)},
		noise:  0x9e3779b97f4a7c15,
	}
}

// Start opens the default output device. Output only (0 in, 2 out): duplex
// streams are flaky on Linux when input and output devices differ.
func (s *Sonifier) Start() error {
	s.mu.Lock()
	// clicks queued while stopped would replay as one long burst
	s.pending = 0
	s.queued = 0
	s.mu.Unlock()

	portaudio.Initialize()
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, BufferSize, s.process)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("audio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("audio: start stream: %w", err)
	}
	s.stream = stream
	s.Active = true
	return nil
}

// Stop tears the stream down. Safe to call without a successful Start.
func (s *Sonifier) Stop() {
	if s.stream != nil {
		s.stream.Stop()
		s.stream.Close()
		s.stream = nil
	}
	portaudio.Terminate()
	s.Active = false
}

// OnTick implements core.Observer: the tracked observable drives the pad
// filter, decay and reaction events queue clicks. Cheap enough to sit
// directly on the session.
func (s *Sonifier) OnTick(snap core.Snapshot) {
	clicks := len(snap.EventsOf(core.EventDecay)) + len(snap.EventsOf(core.EventReaction))
	name := s.track
	if name == "" && len(snap.ObsNames) > 0 {
		name = snap.ObsNames[0]
	}
	s.mu.Lock()
	s.level = snap.Obs(name)
	s.pending += clicks
	if s.pending > 64 {
		// a saturated click queue reads as a solid buzz anyway
		s.pending = 64
	}
	s.mu.Unlock()
}

// Spectrum returns normalized FFT magnitudes of the most recent output
// buffer, oldest bin first. Drives the spectrum strip in the GUI HUD.
func (s *Sonifier) Spectrum(bins int) []float64 {
	buf := make([]float64, BufferSize)
	s.mu.Lock()
	n := copy(buf, s.recent[s.recentAt:])
	copy(buf[n:], s.recent[:s.recentAt])
	s.mu.Unlock()

	for i := range buf {
		window := 0.5 * (1 - lut.Cos(2*math.Pi*float64(i)/float64(BufferSize-1)))
		buf[i] *= window
	}
	spec := fft.FFTReal(buf)
	if bins > len(spec)/2 {
		bins = len(spec) / 2
	}
	out := make([]float64, bins)
	peak := 0.0
	for i := range out {
		out[i] = cmplx.Abs(spec[i+1]) // skip DC
		if out[i] > peak {
			peak = out[i]
		}
	}
	// Fixed floor keeps silence flat instead of amplifying noise.
	norm := math.Max(peak, 40.0)
	for i := range out {
		out[i] = math.Min(1, out[i]/norm)
	}
	return out
}

// Triangle wave: smooth, flute-like, no harsh buzz.
func triangle(phase float64) float64 {
	p := phase - math.Floor(phase)
	return 4.0*math.Abs(p-0.5) - 1.0
}

// One-pole low pass filter.
func lpf(sample, cutoff, dt, state float64) (float64, float64) {
	rc := 1.0 / (2.0 * math.Pi * cutoff)
	alpha := dt / (rc + dt)
	out := state + alpha*(sample-state)
	return out, out
}

func (s *Sonifier) white() float64 {
	s.noise ^= s.noise << 13
	s.noise ^= s.noise >> 7
	s.noise ^= s.noise << 17
	return float64(int64(s.noise)) / float64(math.MaxInt64)
}

func (s *Sonifier) process(out [][]float32) {
	s.mu.Lock()
	target := s.level
	s.queued += s.pending
	s.pending = 0
	s.mu.Unlock()

	// Slow morphing so the filter never jumps.
	s.levelSmooth = s.levelSmooth*0.995 + target*0.005

	// The tracked observable opens the filter: 300Hz at rest, 1200Hz hot.
	cutoff := 300.0 + math.Min(s.levelSmooth*0.9, 900.0)
	dt := 1.0 / float64(SampleRate)
	vol := 0.252

	block := make([]float64, len(out[0]))

	for i := 0; i < len(out[0]); i++ {
		sampleL, sampleR := 0.0, 0.0
		for j, f := range padFreqs {
			// Slight detune between channels widens the pad.
			oscL := triangle(s.clock * (f * 0.999))
			oscR := triangle(s.clock * (f * 1.001))

			g := 1.0 / float64(len(padFreqs))

			// Very slow LFO (breathing)
			lfo := lut.Sin(s.clock*0.2 + float64(j))

			sampleL += oscL * g * (0.7 + 0.3*lfo)
			sampleR += oscR * g * (0.7 + 0.3*lfo)
		}

		var outL, outR float64
		outL, s.filter[0] = lpf(sampleL, cutoff, dt, s.filter[0])
		outR, s.filter[1] = lpf(sampleR, cutoff, dt, s.filter[1])

		// Fire queued clicks at least 10ms apart so bursts stay distinct.
		s.sinceClick++
		if s.queued > 0 && s.sinceClick > SampleRate/100 {
			s.clickEnv = 1
			s.queued--
			s.sinceClick = 0
		}
		click := 0.0
		if s.clickEnv > 1e-4 {
			click = s.clickEnv * s.white()
			s.clickEnv *= 0.993
		}

		// Clicks bypass the filter so they stay sharp, but feed the delay.
		delayL := s.delay[0][s.delayHead]
		delayR := s.delay[1][s.delayHead]

		// Feedback cross-talk (ping pong) smears the stereo image.
		mixL := outL + click*0.9 + delayL*0.3 + delayR*0.1
		mixR := outR + click*0.9 + delayR*0.3 + delayL*0.1

		s.delay[0][s.delayHead] = mixL * 0.7
		s.delay[1][s.delayHead] = mixR * 0.7
		s.delayHead = (s.delayHead + 1) % len(s.delay[0])

		out[0][i] = float32(mixL * vol)
		out[1][i] = float32(mixR * vol)
		block[i] = mixL

		s.clock += dt
	}

	s.mu.Lock()
	for _, v := range block {
		s.recent[s.recentAt] = v
		s.recentAt = (s.recentAt + 1) % len(s.recent)
	}
	s.mu.Unlock()
}
