package viz

import (
	"testing"

	"github.com/arvi-k/physlab/internal/core"
)

var testStage = core.Rect{Min: core.Vec2{X: 0, Y: 0}, Max: core.Vec2{X: 800, Y: 600}}

// 80x30 cells = 160x120 sub-pixels over an 800x600 stage: scale 0.2 on both
// axes, no centering offset. Keeps expected pixel positions easy to read.
func testView() *FieldView {
	return NewFieldView(80, 30, testStage)
}

func TestFieldViewPixelMapping(t *testing.T) {
	v := testView()

	tests := []struct {
		name   string
		world  core.Vec2
		px, py int
	}{
		{"origin", core.Vec2{X: 0, Y: 0}, 0, 0},
		{"center", core.Vec2{X: 400, Y: 300}, 80, 60},
		{"quarter", core.Vec2{X: 200, Y: 150}, 40, 30},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := v.Pixel(tt.world)
			if x != tt.px || y != tt.py {
				t.Fatalf("Pixel(%v) = (%d,%d), want (%d,%d)", tt.world, x, y, tt.px, tt.py)
			}
		})
	}
}

func TestFieldViewRenderParticle(t *testing.T) {
	v := testView()
	v.Render(core.Snapshot{
		Bounds: testStage,
		Particles: []core.Particle{
			{ID: 1, Kind: core.KindPrimary, Pos: core.Vec2{X: 400, Y: 300}},
		},
	})
	if !pixelOn(v.Canvas, 80, 60) {
		t.Fatal("particle at stage center not plotted")
	}
}

func TestFieldViewRenderContainment(t *testing.T) {
	v := testView()
	v.Render(core.Snapshot{
		Bounds: testStage,
		Containment: core.Containment{
			Center:   core.Vec2{X: 400, Y: 300},
			Radius:   200,
			Strength: 50,
		},
	})

	// Ring radius 200 maps to 40 sub-pixels around (80,60).
	for _, p := range [][2]int{{120, 60}, {40, 60}, {80, 100}, {80, 20}} {
		if !pixelOn(v.Canvas, p[0], p[1]) {
			t.Errorf("containment ring point (%d,%d) not set", p[0], p[1])
		}
	}

	// Inactive containment draws nothing.
	v.Render(core.Snapshot{Bounds: testStage})
	for _, row := range v.Canvas.Grid {
		for _, cell := range row {
			if cell != 0x2800 {
				t.Fatal("inactive containment left marks on the canvas")
			}
		}
	}
}

func TestFieldViewRenderBeam(t *testing.T) {
	v := testView()
	v.Render(core.Snapshot{
		Bounds: testStage,
		Time:   0.1,
		Effects: []core.Effect{
			{
				Kind:      core.EffectBeam,
				Origin:    core.Vec2{X: 100, Y: 300},
				Target:    core.Vec2{X: 700, Y: 300},
				HasTarget: true,
				Born:      0,
				Duration:  0.25,
			},
		},
	})
	for _, p := range [][2]int{{20, 60}, {140, 60}, {80, 60}} {
		if !pixelOn(v.Canvas, p[0], p[1]) {
			t.Errorf("beam point (%d,%d) not set", p[0], p[1])
		}
	}
}

func TestFieldViewRenderBurst(t *testing.T) {
	v := testView()
	v.Render(core.Snapshot{
		Bounds: testStage,
		Time:   0.3,
		Effects: []core.Effect{
			{Kind: core.EffectBurst, Origin: core.Vec2{X: 400, Y: 300}, Born: 0, Duration: 0.6},
		},
	})

	// Half-way through its life the shockwave has radius 1+int(0.5*60*0.2)=7.
	if !pixelOn(v.Canvas, 87, 60) {
		t.Fatal("burst ring not at expected radius")
	}
	if pixelOn(v.Canvas, 80, 60) {
		t.Fatal("burst center should be hollow")
	}
}

func TestFieldViewRenderOffStage(t *testing.T) {
	v := testView()
	// Off-stage positions must be clipped, not panic.
	v.Render(core.Snapshot{
		Bounds: testStage,
		Particles: []core.Particle{
			{ID: 1, Kind: core.KindEmission, Pos: core.Vec2{X: -500, Y: -500}},
			{ID: 2, Kind: core.KindPrimary, Pos: core.Vec2{X: 5000, Y: 5000}},
		},
		Effects: []core.Effect{
			{Kind: core.EffectFlash, Origin: core.Vec2{X: -100, Y: 900}, Born: 0, Duration: 0.3},
		},
	})
}

func TestFieldViewClearsBetweenFrames(t *testing.T) {
	v := testView()
	v.Render(core.Snapshot{
		Bounds:    testStage,
		Particles: []core.Particle{{ID: 1, Kind: core.KindPrimary, Pos: core.Vec2{X: 400, Y: 300}}},
	})
	if !pixelOn(v.Canvas, 80, 60) {
		t.Fatal("first frame missing")
	}
	v.Render(core.Snapshot{
		Bounds:    testStage,
		Particles: []core.Particle{{ID: 1, Kind: core.KindPrimary, Pos: core.Vec2{X: 200, Y: 150}}},
	})
	if pixelOn(v.Canvas, 80, 60) {
		t.Fatal("stale particle from previous frame")
	}
	if !pixelOn(v.Canvas, 40, 30) {
		t.Fatal("moved particle not plotted")
	}
}
