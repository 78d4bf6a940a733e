package control

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/arvi-k/physlab/internal/core"
)

// ScriptStep is one timed entry in a scripted run. Everything listed in a
// step fires together once sim time reaches At.
type ScriptStep struct {
	At     float64            `yaml:"at"`
	Knobs  map[string]float64 `yaml:"knobs,omitempty"`
	Inject *InjectSpec        `yaml:"inject,omitempty"`
	Reset  bool               `yaml:"reset,omitempty"`
}

type InjectSpec struct {
	Kind   string  `yaml:"kind"`
	Count  int     `yaml:"count"`
	Energy float64 `yaml:"energy"`
}

// Scripted replays a timeline of steps against the session clock. Each step
// fires exactly once; steps are ordered by At regardless of input order.
type Scripted struct {
	steps []ScriptStep
	next  int
}

func NewScripted(steps []ScriptStep) *Scripted {
	sorted := make([]ScriptStep, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At < sorted[j].At
	})
	return &Scripted{steps: sorted}
}

// LoadScript reads a step timeline from a YAML file.
func LoadScript(path string) (*Scripted, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var steps []ScriptStep
	if err := yaml.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}
	for i, step := range steps {
		if step.Inject != nil {
			if _, err := core.ParseKind(step.Inject.Kind); err != nil {
				return nil, fmt.Errorf("script step %d: %w", i, err)
			}
		}
	}
	return NewScripted(steps), nil
}

func (s *Scripted) Drive(snap core.Snapshot, q *core.IntentQueue) {
	for s.next < len(s.steps) && snap.Time >= s.steps[s.next].At {
		step := s.steps[s.next]
		s.next++

		for name, value := range step.Knobs {
			q.Push(core.SetKnob{Name: name, Value: value})
		}
		if step.Inject != nil {
			kind, err := core.ParseKind(step.Inject.Kind)
			if err != nil {
				continue
			}
			q.Push(core.Inject{Kind: kind, Count: step.Inject.Count, Energy: step.Inject.Energy})
		}
		if step.Reset {
			q.Push(core.ResetRun{})
		}
	}
}

// Rewind restarts the timeline from the first step.
func (s *Scripted) Rewind() {
	s.next = 0
}

// Done reports whether every step has fired.
func (s *Scripted) Done() bool {
	return s.next >= len(s.steps)
}
