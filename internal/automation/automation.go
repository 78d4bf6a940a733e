package automation

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/arvi-k/physlab/internal/control"
	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/labs"
	"github.com/arvi-k/physlab/internal/metrics"
)

// Scenario defines a scripted sequence of runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is a single run in a scenario
type ScenarioStep struct {
	Lab            string               `yaml:"lab"`
	Seed           int64                `yaml:"seed"`
	Rate           float64              `yaml:"rate"`
	Duration       float64              `yaml:"duration"`
	Knobs          map[string]float64   `yaml:"knobs,omitempty"`
	Drive          []control.ScriptStep `yaml:"drive,omitempty"`
	SampleEvery    int                  `yaml:"sample_every,omitempty"`
	StopAtTerminal bool                 `yaml:"stop_at_terminal,omitempty"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// newStepSession builds a seeded session with the step's knobs applied and a
// peak metric per observable plus a flap counter attached.
func newStepSession(lab string, seed int64, knobs map[string]float64) (*core.Session, error) {
	l, err := labs.Get(lab)
	if err != nil {
		return nil, err
	}

	sess, err := l.NewSession(seed)
	if err != nil {
		return nil, err
	}

	for name, value := range knobs {
		if err := sess.SetKnob(name, value); err != nil {
			return nil, fmt.Errorf("knob %s: %w", name, err)
		}
	}

	for _, name := range sess.Snapshot().ObsNames {
		sess.AddMetric(metrics.NewPeak(name))
	}
	sess.AddMetric(metrics.NewFlaps())
	sess.AddMetric(metrics.NewEventCount(core.EventReaction))

	return sess, nil
}

// RunScenario executes all steps in a scenario
func RunScenario(ctx context.Context, scenario *Scenario) ([]*core.Result, error) {
	results := make([]*core.Result, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		fmt.Printf("Running step %d/%d: %s\n", i+1, len(scenario.Steps), step.Lab)

		sess, err := newStepSession(step.Lab, step.Seed, step.Knobs)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		if len(step.Drive) > 0 {
			sess.SetDriver(control.NewScripted(step.Drive))
		}

		rate := step.Rate
		if rate <= 0 {
			rate = 60
		}

		result, err := sess.Run(ctx, core.RunConfig{
			Rate:           rate,
			Ticks:          int(step.Duration * rate),
			SampleEvery:    step.SampleEvery,
			StopAtTerminal: step.StopAtTerminal,
		})
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		results = append(results, result)
	}

	return results, nil
}

// Sweep runs one lab repeatedly across a range of values for one knob
type Sweep struct {
	Lab      string
	Knob     string
	Min      float64
	Max      float64
	Steps    int
	Seed     int64
	Rate     float64
	Duration float64
	Knobs    map[string]float64 // held fixed across the sweep
}

// SweepPoint holds the outcome of one sweep value
type SweepPoint struct {
	Value    float64
	Phase    string
	Terminal bool
	SimTime  float64
	Metrics  map[string]float64
}

// RunSweep executes a knob sweep
func RunSweep(ctx context.Context, sweep *Sweep) ([]SweepPoint, error) {
	if sweep.Steps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.Steps)
	}

	rate := sweep.Rate
	if rate <= 0 {
		rate = 60
	}

	points := make([]SweepPoint, 0, sweep.Steps)
	step := (sweep.Max - sweep.Min) / float64(sweep.Steps-1)

	for i := 0; i < sweep.Steps; i++ {
		value := sweep.Min + float64(i)*step

		sess, err := newStepSession(sweep.Lab, sweep.Seed, sweep.Knobs)
		if err != nil {
			return nil, err
		}
		if err := sess.SetKnob(sweep.Knob, value); err != nil {
			return nil, fmt.Errorf("%s=%.4f: %w", sweep.Knob, value, err)
		}

		result, err := sess.Run(ctx, core.RunConfig{
			Rate:           rate,
			Ticks:          int(sweep.Duration * rate),
			SampleEvery:    10,
			StopAtTerminal: true,
		})
		if err != nil {
			return points, err
		}

		points = append(points, SweepPoint{
			Value:    value,
			Phase:    result.Final.Phase,
			Terminal: result.Final.Terminal,
			SimTime:  result.SimTime,
			Metrics:  result.Metrics,
		})

		fmt.Printf("Sweep %d/%d: %s=%.4f -> %s\n", i+1, sweep.Steps, sweep.Knob, value, result.Final.Phase)
	}

	return points, nil
}

// MonteCarlo runs one configuration across many seeds
type MonteCarlo struct {
	Lab      string
	Trials   int
	Seed     int64 // base seed; trial n runs with Seed+n, 0 means wall clock
	Rate     float64
	Duration float64
	Knobs    map[string]float64
}

// Trial holds the outcome of one seeded run
type Trial struct {
	ID       int
	Seed     int64
	Phase    string
	Terminal bool
	SimTime  float64
	Metrics  map[string]float64
}

// RunMonteCarlo executes cfg.Trials independent runs, fanned out across
// goroutines. Every trial owns its session and rng, so concurrency cannot
// disturb per-seed replay; results land in seed order regardless of which
// trial finishes first.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarlo) ([]Trial, error) {
	base := cfg.Seed
	if base == 0 {
		base = time.Now().UnixNano()
	}

	rate := cfg.Rate
	if rate <= 0 {
		rate = 60
	}

	trials := make([]Trial, cfg.Trials)
	errs := make([]error, cfg.Trials)
	var done atomic.Int64

	var wg sync.WaitGroup
	for n := 0; n < cfg.Trials; n++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			seed := base + int64(n)

			sess, err := newStepSession(cfg.Lab, seed, cfg.Knobs)
			if err != nil {
				errs[n] = err
				return
			}

			result, err := sess.Run(ctx, core.RunConfig{
				Rate:           rate,
				Ticks:          int(cfg.Duration * rate),
				SampleEvery:    10,
				StopAtTerminal: true,
			})
			if err != nil {
				errs[n] = fmt.Errorf("trial %d (seed %d): %w", n, seed, err)
				return
			}

			trials[n] = Trial{
				ID:       n,
				Seed:     seed,
				Phase:    result.Final.Phase,
				Terminal: result.Final.Terminal,
				SimTime:  result.SimTime,
				Metrics:  result.Metrics,
			}

			if c := done.Add(1); c%10 == 0 {
				fmt.Printf("Monte Carlo: %d/%d trials complete\n", c, cfg.Trials)
			}
		}(n)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return trials, nil
}

// PhaseHistogram counts trials by final phase
func PhaseHistogram(trials []Trial) map[string]int {
	hist := make(map[string]int)
	for _, t := range trials {
		hist[t.Phase]++
	}
	return hist
}

// TerminalCount splits trials into finished and still-running
func TerminalCount(trials []Trial) (terminal int, running int) {
	for _, t := range trials {
		if t.Terminal {
			terminal++
		} else {
			running++
		}
	}
	return
}
