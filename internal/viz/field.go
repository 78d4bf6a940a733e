package viz

import (
	"math"

	"github.com/arvi-k/physlab/internal/core"
)

// Visual reach of transient effects, in world units. Effects scale with the
// same factor as the stage so they read the same on any canvas size.
const (
	burstReach = 60.0 // final shockwave radius
	ringBase   = 12.0 // containment pulse start radius
	ringGrow   = 28.0 // containment pulse expansion over its lifetime
)

// FieldView maps the simulation stage onto a braille canvas and renders
// snapshots: containment ring, live particles, transient effects. The stage
// rect is fit to the full canvas preserving aspect ratio.
type FieldView struct {
	Canvas *Canvas
	bounds core.Rect
	scale  float64
	offX   float64
	offY   float64
}

// NewFieldView builds a view with a w x h cell canvas; the sub-pixel
// resolution is 2w x 4h.
func NewFieldView(w, h int, bounds core.Rect) *FieldView {
	v := &FieldView{Canvas: NewCanvas(w, h), bounds: bounds}
	pw, ph := float64(w*2), float64(h*4)
	v.scale = math.Min(pw/bounds.Width(), ph/bounds.Height())
	v.offX = (pw - bounds.Width()*v.scale) / 2
	v.offY = (ph - bounds.Height()*v.scale) / 2
	return v
}

// Pixel converts a stage position to sub-pixel canvas coordinates.
func (v *FieldView) Pixel(p core.Vec2) (int, int) {
	x := (p.X-v.bounds.Min.X)*v.scale + v.offX
	y := (p.Y-v.bounds.Min.Y)*v.scale + v.offY
	return int(x), int(y)
}

// Render clears the canvas and draws one snapshot.
func (v *FieldView) Render(snap core.Snapshot) {
	v.Canvas.Clear()
	v.drawContainment(snap.Containment)
	for _, p := range snap.Particles {
		v.drawParticle(p)
	}
	for _, e := range snap.Effects {
		v.drawEffect(e, snap.Time)
	}
}

func (v *FieldView) drawContainment(c core.Containment) {
	if !c.Active() {
		return
	}
	x, y := v.Pixel(c.Center)
	v.Canvas.DrawCircle(x, y, int(c.Radius*v.scale))
}

// drawParticle plots a disc sized by the display radius; at typical scales
// most particles collapse to a single dot.
func (v *FieldView) drawParticle(p core.Particle) {
	x, y := v.Pixel(p.Pos)
	r := int(p.Radius() * v.scale)
	if r <= 0 {
		v.Canvas.Set(x, y)
		return
	}
	v.Canvas.FillCircle(x, y, r)
}

func (v *FieldView) drawEffect(e core.Effect, now float64) {
	age := e.Age(now)
	x, y := v.Pixel(e.Origin)
	switch e.Kind {
	case core.EffectFlash:
		arm := 2
		if age > 0.5 {
			arm = 1
		}
		v.Canvas.DrawLine(x-arm, y, x+arm, y)
		v.Canvas.DrawLine(x, y-arm, x, y+arm)
	case core.EffectBurst:
		v.Canvas.DrawCircle(x, y, 1+int(age*burstReach*v.scale))
	case core.EffectBeam:
		if e.HasTarget {
			tx, ty := v.Pixel(e.Target)
			v.Canvas.DrawLine(x, y, tx, ty)
		} else {
			v.Canvas.Set(x, y)
		}
	case core.EffectRing:
		v.Canvas.DrawCircle(x, y, int((ringBase+age*ringGrow)*v.scale))
	case core.EffectDecayMark:
		v.Canvas.Set(x, y)
		v.Canvas.Set(x+1, y+1)
		v.Canvas.Set(x-1, y-1)
		v.Canvas.Set(x+1, y-1)
		v.Canvas.Set(x-1, y+1)
	}
}
