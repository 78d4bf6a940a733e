package gui

import (
	"fmt"
	"strings"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/arvi-k/physlab/internal/core"
)

// Particle palette indexed by kind. Brightness tracks energy in kindColor.
var kindColors = [...]rl.Color{
	rl.NewColor(0, 229, 255, 255),   // primary: cyan
	rl.NewColor(255, 170, 64, 255),  // secondary: amber
	rl.NewColor(150, 150, 165, 255), // byproduct: slate
	rl.NewColor(255, 246, 150, 255), // emission: pale yellow
}

// Effect geometry in stage units.
const (
	burstReach = 60.0
	ringBase   = 12.0
	ringGrow   = 28.0
)

// kindColor dims toward 45% as energy drains, so cooling particles fade
// without vanishing.
func kindColor(k core.Kind, energy float64) rl.Color {
	c := kindColors[int(k)%len(kindColors)]
	f := 0.45 + 0.55*energy/core.EnergyMax
	if f > 1 {
		f = 1
	}
	return rl.NewColor(uint8(float64(c.R)*f), uint8(float64(c.G)*f), uint8(float64(c.B)*f), 255)
}

func (a *App) toScreen(p core.Vec2) rl.Vector2 {
	return rl.NewVector2(
		a.offX+float32(p.X-a.bounds.Min.X)*a.scale,
		a.offY+float32(p.Y-a.bounds.Min.Y)*a.scale,
	)
}

func (a *App) drawSim() {
	w := int32(float32(a.bounds.Width()) * a.scale)
	h := int32(float32(a.bounds.Height()) * a.scale)
	rl.DrawRectangleLines(int32(a.offX), int32(a.offY), w, h, ColFrame)

	if c := a.Snap.Containment; c.Active() {
		center := a.toScreen(c.Center)
		rl.DrawCircleLines(int32(center.X), int32(center.Y), float32(c.Radius)*a.scale, rl.Fade(ColAccent, 0.35))
	}

	// effects under particles
	for _, e := range a.Snap.Effects {
		a.drawEffect(e)
	}
	for _, p := range a.Snap.Particles {
		a.drawParticle(p)
	}
}

func (a *App) drawParticle(p core.Particle) {
	pos := a.toScreen(p.Pos)
	r := float32(p.Radius()) * a.scale
	if r < 1.5 {
		r = 1.5
	}
	col := kindColor(p.Kind, p.Energy)
	if p.Energy > 70 {
		rl.DrawCircleV(pos, r*2.2, rl.Fade(col, 0.18))
	}
	rl.DrawCircleV(pos, r, col)
}

func (a *App) drawEffect(e core.Effect) {
	age := float32(e.Age(a.Snap.Time))
	fade := 1 - age
	origin := a.toScreen(e.Origin)

	switch e.Kind {
	case core.EffectFlash:
		rl.DrawCircleV(origin, 2+10*fade, rl.Fade(ColSelect, 0.8*fade))
	case core.EffectBurst:
		r := (4 + age*burstReach) * a.scale
		rl.DrawRing(origin, r-2, r, 0, 360, 48, rl.Fade(kindColors[core.KindSecondary], fade))
	case core.EffectBeam:
		if !e.HasTarget {
			return
		}
		rl.DrawLineEx(origin, a.toScreen(e.Target), 2, rl.Fade(kindColors[core.KindEmission], 0.9*fade))
	case core.EffectRing:
		r := (ringBase + age*ringGrow) * a.scale
		rl.DrawCircleLines(int32(origin.X), int32(origin.Y), r, rl.Fade(ColAccent, fade))
	case core.EffectDecayMark:
		s := 5 * (1 - 0.5*age)
		col := rl.Fade(kindColors[core.KindByproduct], fade)
		rl.DrawLineEx(rl.NewVector2(origin.X-s, origin.Y-s), rl.NewVector2(origin.X+s, origin.Y+s), 1, col)
		rl.DrawLineEx(rl.NewVector2(origin.X-s, origin.Y+s), rl.NewVector2(origin.X+s, origin.Y-s), 1, col)
	}
}

func (a *App) drawHUD() {
	a.drawText("physlab", 30, 22, 24, ColSelect)
	a.drawText(":: "+a.Lab.Name, 152, 28, 18, ColAccent)

	status, statusCol := "RUNNING", ColAccent
	if a.Snap.Terminal {
		status, statusCol = "TERMINAL", ColDanger
	} else if !a.Running {
		status, statusCol = "PAUSED", ColText
	}
	a.drawText(status, 1140, 28, 18, statusCol)

	a.drawText(fmt.Sprintf("tick %-8d t=%.1fs", a.Snap.Tick, a.Snap.Time), 30, 56, 14, ColTextDim)
	if a.lastEvent != "" {
		a.drawText(a.lastEvent, 230, 56, 14, ColText)
	}

	x := int32(1050)
	y := int32(80)
	a.drawText("PHASE", x, y, 14, ColTextDim)
	phaseCol := ColSelect
	if a.Snap.Terminal {
		phaseCol = ColDanger
	}
	a.drawText(strings.ToUpper(a.Snap.Phase), x, y+18, 22, phaseCol)
	y += 58

	a.drawText("POPULATION", x, y, 14, ColTextDim)
	y += 20
	for _, k := range core.Kinds() {
		a.drawText(fmt.Sprintf("%-12s %4d", a.Lab.KindName(k), a.Snap.Count(k)), x, y, 16, kindColors[int(k)])
		y += 20
	}
	a.drawText(fmt.Sprintf("%-12s %4d", "escaped", a.Snap.Escaped), x, y, 16, ColTextDim)
	y += 34

	a.drawText("OBSERVABLES", x, y, 14, ColTextDim)
	y += 20
	for i, name := range a.Snap.ObsNames {
		line := fmt.Sprintf("  %-11s %8.2f", name, a.Snap.Obs(name))
		col := ColText
		if i == a.ObsSel {
			line = ">" + line[1:]
			col = ColAccent
		}
		a.drawText(line, x, y, 16, col)
		y += 20
	}

	a.drawTelemetry()
	a.drawSpectrum()

	audioState := "OFF"
	if a.Audio != nil && a.Audio.Active {
		audioState = "ON"
	}
	a.drawText("SND "+audioState, 370, 582, 14, ColTextDim)

	a.drawText("[SPACE] PAUSE  [R] RESET  [I] INJECT  [TAB] PLOT  [M] SOUND  [ESC] MENU  [Q] QUIT", 540, 694, 14, ColTextDim)
	rl.DrawFPS(30, 684)
}

// drawTelemetry plots the tracked observable's recent history bottom-left,
// normalized to its own min/max over the window.
func (a *App) drawTelemetry() {
	if len(a.Telemetry) < 2 {
		return
	}
	const (
		gx, gy = 30, 600
		gw, gh = 400, 70
	)
	rl.DrawRectangleLines(gx, gy, gw, gh, ColFrame)

	lo, hi := a.Telemetry[0], a.Telemetry[0]
	for _, v := range a.Telemetry {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	span := hi - lo
	if span < 1e-9 {
		span = 1
	}

	pts := make([]rl.Vector2, len(a.Telemetry))
	for i, v := range a.Telemetry {
		fx := gx + float32(i)/float32(len(a.Telemetry)-1)*gw
		fy := gy + gh - 4 - float32((v-lo)/span)*(gh-8)
		pts[i] = rl.NewVector2(fx, fy)
	}
	rl.DrawLineStrip(pts, ColAccent)

	name := ""
	if len(a.Snap.ObsNames) > 0 {
		name = a.Snap.ObsNames[a.ObsSel%len(a.Snap.ObsNames)]
	}
	a.drawText(fmt.Sprintf("%s  %.2f", name, a.Telemetry[len(a.Telemetry)-1]), gx, gy-18, 14, ColText)
}

// drawSpectrum draws the synth output spectrum as a bar strip beside the
// telemetry graph. Skipped while the stream is down.
func (a *App) drawSpectrum() {
	if a.Audio == nil || !a.Audio.Active {
		return
	}
	const (
		sx, sy   = 460, 600
		sw, sh   = 256, 70
		bins     = 64
		barWidth = sw / bins
	)
	rl.DrawRectangleLines(sx, sy, sw, sh, ColFrame)
	for i, m := range a.Audio.Spectrum(bins) {
		h := int32(m * (sh - 6))
		if h < 1 {
			h = 1
		}
		rl.DrawRectangle(sx+int32(i*barWidth)+1, sy+sh-3-h, barWidth-2, h, rl.Fade(ColAccent, 0.8))
	}
	a.drawText("spectrum", sx, sy-18, 14, ColTextDim)
}
