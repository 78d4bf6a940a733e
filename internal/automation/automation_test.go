package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	doc := `name: ignition-drill
description: heat up, then cut power
steps:
  - lab: fusion
    seed: 7
    duration: 2
    knobs:
      heater: 80
    drive:
      - at: 1.0
        knobs:
          heater: 0
  - lab: decay
    duration: 1
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	scenario, err := LoadScenario(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if scenario.Name != "ignition-drill" {
		t.Errorf("bad name %s", scenario.Name)
	}
	if len(scenario.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(scenario.Steps))
	}
	if scenario.Steps[0].Knobs["heater"] != 80 {
		t.Errorf("bad knob value %f", scenario.Steps[0].Knobs["heater"])
	}
	if len(scenario.Steps[0].Drive) != 1 {
		t.Errorf("expected 1 drive step, got %d", len(scenario.Steps[0].Drive))
	}
}

func TestRunScenario(t *testing.T) {
	scenario := &Scenario{
		Name: "smoke",
		Steps: []ScenarioStep{
			{Lab: "fusion", Seed: 1, Rate: 60, Duration: 0.5},
			{Lab: "decay", Seed: 2, Rate: 60, Duration: 0.5},
		},
	}

	results, err := RunScenario(context.Background(), scenario)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Lab != "fusion" || results[1].Lab != "decay" {
		t.Errorf("bad labs: %s, %s", results[0].Lab, results[1].Lab)
	}
	if results[0].Ticks != 30 {
		t.Errorf("expected 30 ticks, got %d", results[0].Ticks)
	}
	if _, ok := results[0].Metrics["flaps"]; !ok {
		t.Error("expected flaps metric attached")
	}
}

func TestRunScenario_UnknownLab(t *testing.T) {
	scenario := &Scenario{Steps: []ScenarioStep{{Lab: "warpdrive", Duration: 1}}}
	if _, err := RunScenario(context.Background(), scenario); err == nil {
		t.Error("expected error for unknown lab")
	}
}

func TestRunScenario_BadKnob(t *testing.T) {
	scenario := &Scenario{
		Steps: []ScenarioStep{
			{Lab: "fusion", Duration: 1, Knobs: map[string]float64{"warp": 9}},
		},
	}
	if _, err := RunScenario(context.Background(), scenario); err == nil {
		t.Error("expected error for unknown knob")
	}
}

func TestRunSweep(t *testing.T) {
	sweep := &Sweep{
		Lab:      "fusion",
		Knob:     "heater",
		Min:      0,
		Max:      100,
		Steps:    3,
		Seed:     1,
		Rate:     60,
		Duration: 0.2,
	}

	points, err := RunSweep(context.Background(), sweep)
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].Value != 0 || points[1].Value != 50 || points[2].Value != 100 {
		t.Errorf("bad sweep values: %v, %v, %v", points[0].Value, points[1].Value, points[2].Value)
	}
	for _, p := range points {
		if p.Phase == "" {
			t.Error("expected a final phase per point")
		}
	}
}

func TestRunSweep_TooFewSteps(t *testing.T) {
	if _, err := RunSweep(context.Background(), &Sweep{Lab: "fusion", Knob: "heater", Steps: 1}); err == nil {
		t.Error("expected error for single-step sweep")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	cfg := &MonteCarlo{
		Lab:      "decay",
		Trials:   3,
		Seed:     100,
		Rate:     60,
		Duration: 0.2,
	}

	trials, err := RunMonteCarlo(context.Background(), cfg)
	if err != nil {
		t.Fatalf("monte carlo failed: %v", err)
	}
	if len(trials) != 3 {
		t.Fatalf("expected 3 trials, got %d", len(trials))
	}
	for n, trial := range trials {
		if trial.Seed != 100+int64(n) {
			t.Errorf("trial %d: expected seed %d, got %d", n, 100+n, trial.Seed)
		}
	}

	hist := PhaseHistogram(trials)
	total := 0
	for _, c := range hist {
		total += c
	}
	if total != 3 {
		t.Errorf("histogram should cover all trials, got %d", total)
	}
}

func TestRunMonteCarloReplays(t *testing.T) {
	// The fan-out must not disturb per-seed replay: two identical batches
	// produce identical trials, index by index.
	cfg := &MonteCarlo{
		Lab:      "decay",
		Trials:   4,
		Seed:     7,
		Rate:     60,
		Duration: 0.2,
	}

	a, err := RunMonteCarlo(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := RunMonteCarlo(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	for n := range a {
		if a[n].Seed != b[n].Seed {
			t.Errorf("trial %d: seeds %d vs %d", n, a[n].Seed, b[n].Seed)
		}
		if a[n].Phase != b[n].Phase {
			t.Errorf("trial %d: phases %q vs %q", n, a[n].Phase, b[n].Phase)
		}
		if a[n].SimTime != b[n].SimTime {
			t.Errorf("trial %d: sim times %v vs %v", n, a[n].SimTime, b[n].SimTime)
		}
	}
}

func TestTerminalCount(t *testing.T) {
	trials := []Trial{
		{Terminal: true},
		{Terminal: false},
		{Terminal: true},
	}
	terminal, running := TerminalCount(trials)
	if terminal != 2 || running != 1 {
		t.Errorf("expected 2/1, got %d/%d", terminal, running)
	}
}
