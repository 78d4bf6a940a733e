package core

import "testing"

func TestEffectLifecycle(t *testing.T) {
	q := NewEffectQueue()
	q.Spawn(EffectFlash, Vec2{10, 10}, 1.0)

	d := EffectFlash.Duration()
	if d <= 0 {
		t.Fatalf("flash duration %f", d)
	}

	// Present from birth through birth+duration inclusive.
	q.Expire(1.0)
	if q.Len() != 1 {
		t.Fatal("effect expired at birth")
	}
	q.Expire(1.0 + d)
	if q.Len() != 1 {
		t.Fatal("effect expired at the last covered instant")
	}
	q.Expire(1.0 + d + 0.001)
	if q.Len() != 0 {
		t.Fatal("effect survived past its duration")
	}
}

func TestEffectAge(t *testing.T) {
	e := Effect{Born: 2, Duration: 0.5}

	tests := []struct {
		now  float64
		want float64
	}{
		{1.0, 0},
		{2.0, 0},
		{2.25, 0.5},
		{2.5, 1},
		{9.0, 1},
	}
	for _, tt := range tests {
		if got := e.Age(tt.now); got != tt.want {
			t.Errorf("age at %f = %f, want %f", tt.now, got, tt.want)
		}
	}
}

func TestEffectDirected(t *testing.T) {
	q := NewEffectQueue()
	q.SpawnAt(EffectBeam, Vec2{0, 0}, Vec2{30, 40}, 0)
	q.Spawn(EffectRing, Vec2{5, 5}, 0)

	var beams, rings int
	for e := range q.Live() {
		switch e.Kind {
		case EffectBeam:
			beams++
			if !e.HasTarget || e.Target != (Vec2{30, 40}) {
				t.Errorf("beam target lost: %+v", e)
			}
		case EffectRing:
			rings++
			if e.HasTarget {
				t.Error("undirected ring carries a target")
			}
		}
	}
	if beams != 1 || rings != 1 {
		t.Errorf("expected 1 beam and 1 ring, got %d/%d", beams, rings)
	}
}

func TestEffectKindNames(t *testing.T) {
	kinds := []EffectKind{EffectFlash, EffectBurst, EffectBeam, EffectRing, EffectDecayMark}
	seen := map[string]bool{}
	for _, k := range kinds {
		name := k.String()
		if name == "" || seen[name] {
			t.Errorf("kind %d has bad or duplicate name %q", k, name)
		}
		seen[name] = true
		if k.Duration() <= 0 {
			t.Errorf("kind %q has non-positive duration", name)
		}
	}
}
