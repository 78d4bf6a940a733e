// Package gui renders lab sessions in a raylib window: particles drawn on
// the stage, phase and observables in the HUD, optional sonification through
// the audio package. The window owns the session and steps it once per frame.
package gui

import (
	"fmt"
	"os"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/arvi-k/physlab/internal/audio"
	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/labs"
)

// Chrome palette. Particles get their own colors in render.go.
var (
	ColBg      = rl.NewColor(10, 10, 14, 255)
	ColAccent  = rl.NewColor(0, 229, 255, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(150, 150, 160, 255)
	ColTextDim = rl.NewColor(70, 70, 80, 255)
	ColFrame   = rl.NewColor(36, 36, 46, 255)
	ColDanger  = rl.NewColor(255, 80, 80, 255)
)

const (
	screenW = 1280
	screenH = 720

	// one engine tick per rendered frame
	simDt = 1.0 / 60.0

	telemetryCap = 240
)

// App is the raylib front end. Menu and config screens mirror the TUI's
// interactive flow; the sim screen owns a live session.
type App struct {
	Lab  labs.Lab
	Sess *core.Session
	Snap core.Snapshot

	Running  bool
	InMenu   bool
	InConfig bool

	Labs     []labs.Lab
	Selected int

	Seed      int64
	KnobSpecs []core.KnobSpec
	Overrides map[string]float64
	ParamSel  int

	ObsSel    int
	Telemetry []float64
	lastEvent string

	Audio *audio.Sonifier

	Font rl.Font

	// stage-to-screen transform, recomputed per session
	bounds core.Rect
	scale  float32
	offX   float32
	offY   float32
}

func initWindow() {
	rl.InitWindow(screenW, screenH, "physlab")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0) // ESC navigates, Q quits
}

func loadFont() rl.Font {
	font := rl.LoadFontEx("/usr/share/fonts/liberation/LiberationMono-Regular.ttf", 32, nil, 0)
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font
}

// NewApp builds the front end. With interactive set it opens on the lab
// menu; otherwise labName must resolve and the session starts immediately.
// The window must already be open (fonts need a GL context).
func NewApp(labName string, seed int64, withAudio, interactive bool) (*App, error) {
	a := &App{
		Labs:   labs.All(),
		Font:   loadFont(),
		InMenu: interactive,
	}
	if withAudio {
		son := audio.NewSonifier("")
		if err := son.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "audio disabled: %v\n", err)
		} else {
			a.Audio = son
		}
	}
	if !interactive {
		lab, err := labs.Get(labName)
		if err != nil {
			return nil, err
		}
		a.selectLab(lab, seed)
		if err := a.startSession(); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Run opens the window directly on one lab.
func Run(labName string, seed int64, withAudio bool) error {
	initWindow()
	defer rl.CloseWindow()
	a, err := NewApp(labName, seed, withAudio, false)
	if err != nil {
		return err
	}
	a.RunLoop()
	return nil
}

// RunInteractive opens the window on the lab menu.
func RunInteractive(withAudio bool) {
	initWindow()
	defer rl.CloseWindow()
	a, _ := NewApp("", 0, withAudio, true)
	a.RunLoop()
}

// RunLoop drives update/draw until the window closes.
func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		a.Update()
		a.Draw()
	}
	if a.Audio != nil {
		a.Audio.Stop()
	}
}

// selectLab stages a lab for the config screen. Seed 0 means the lab's
// default; overrides start at knob defaults.
func (a *App) selectLab(lab labs.Lab, seed int64) {
	a.Lab = lab
	a.Seed = seed
	if a.Seed == 0 {
		a.Seed = lab.Seed
	}
	a.KnobSpecs = lab.Definition().Knobs
	a.Overrides = make(map[string]float64, len(a.KnobSpecs))
	for _, k := range a.KnobSpecs {
		a.Overrides[k.Name] = k.Default
	}
	a.ParamSel = 0
}

// startSession builds a fresh session from the staged lab, seed and knob
// overrides, then switches to the sim screen.
func (a *App) startSession() error {
	sess, err := a.Lab.NewSession(a.Seed)
	if err != nil {
		return err
	}
	for name, v := range a.Overrides {
		if err := sess.SetKnob(name, v); err != nil {
			return fmt.Errorf("knob %s: %w", name, err)
		}
	}
	if a.Audio != nil {
		sess.AddObserver(a.Audio)
	}
	a.Sess = sess
	a.Snap = sess.Snapshot()
	a.ObsSel = 0
	a.Telemetry = a.Telemetry[:0]
	a.lastEvent = ""
	a.computeTransform()
	a.InMenu, a.InConfig, a.Running = false, false, true
	return nil
}

// computeTransform fits the stage into the window, reserving the right
// column for readouts and the bottom strip for graphs.
func (a *App) computeTransform() {
	a.bounds = a.Sess.Bounds()
	const (
		left, right = 30.0, 300.0
		top, bottom = 80.0, 140.0
	)
	availW := float32(screenW - left - right)
	availH := float32(screenH - top - bottom)
	sx := availW / float32(a.bounds.Width())
	sy := availH / float32(a.bounds.Height())
	a.scale = sx
	if sy < sx {
		a.scale = sy
	}
	a.offX = left + (availW-float32(a.bounds.Width())*a.scale)/2
	a.offY = top + (availH-float32(a.bounds.Height())*a.scale)/2
}

// Update handles input and, on the sim screen, advances one tick.
func (a *App) Update() {
	if rl.IsKeyPressed(rl.KeyQ) {
		if a.Audio != nil {
			a.Audio.Stop()
		}
		rl.CloseWindow()
		os.Exit(0)
	}

	switch {
	case a.InMenu:
		a.updateMenu()
	case a.InConfig:
		a.updateConfig()
	default:
		a.updateSim()
	}
}

func (a *App) updateMenu() {
	if rl.IsKeyPressed(rl.KeyDown) || rl.IsKeyPressed(rl.KeyJ) {
		a.Selected++
	}
	if rl.IsKeyPressed(rl.KeyUp) || rl.IsKeyPressed(rl.KeyK) {
		a.Selected--
	}
	if a.Selected >= len(a.Labs) {
		a.Selected = 0
	}
	if a.Selected < 0 {
		a.Selected = len(a.Labs) - 1
	}
	if rl.IsKeyPressed(rl.KeyEnter) || rl.IsKeyPressed(rl.KeySpace) {
		a.selectLab(a.Labs[a.Selected], 0)
		a.InMenu, a.InConfig = false, true
	}
}

func (a *App) updateConfig() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		a.InMenu, a.InConfig = true, false
		return
	}
	if rl.IsKeyPressed(rl.KeyEnter) {
		if err := a.startSession(); err != nil {
			// overrides are clamped on adjust, so this is unexpected
			fmt.Fprintf(os.Stderr, "start session: %v\n", err)
			a.InMenu, a.InConfig = true, false
		}
		return
	}

	rows := 1 + len(a.KnobSpecs)
	if rl.IsKeyPressed(rl.KeyDown) || rl.IsKeyPressed(rl.KeyJ) {
		a.ParamSel = (a.ParamSel + 1) % rows
	}
	if rl.IsKeyPressed(rl.KeyUp) || rl.IsKeyPressed(rl.KeyK) {
		a.ParamSel--
		if a.ParamSel < 0 {
			a.ParamSel = rows - 1
		}
	}

	dir := 0.0
	if rl.IsKeyPressed(rl.KeyRight) || rl.IsKeyPressed(rl.KeyL) {
		dir = 1
	}
	if rl.IsKeyPressed(rl.KeyLeft) || rl.IsKeyPressed(rl.KeyH) {
		dir = -1
	}
	if dir == 0 {
		return
	}
	boost := 1.0
	if rl.IsKeyDown(rl.KeyLeftShift) {
		boost = 5.0
	}

	if a.ParamSel == 0 {
		a.Seed += int64(dir * boost)
		if a.Seed < 1 {
			a.Seed = 1
		}
		return
	}
	k := a.KnobSpecs[a.ParamSel-1]
	step := (k.Max - k.Min) / 40 * boost
	v := a.Overrides[k.Name] + dir*step
	if v < k.Min {
		v = k.Min
	}
	if v > k.Max {
		v = k.Max
	}
	a.Overrides[k.Name] = v
}

func (a *App) updateSim() {
	if rl.IsKeyPressed(rl.KeyEscape) {
		a.InMenu, a.Running = true, false
		return
	}
	if rl.IsKeyPressed(rl.KeySpace) {
		a.Running = !a.Running
	}
	if rl.IsKeyPressed(rl.KeyR) {
		a.Sess.Reset()
		// Reset rewinds knobs to their defaults; put the overrides back.
		for name, v := range a.Overrides {
			a.Sess.SetKnob(name, v)
		}
		a.Snap = a.Sess.Snapshot()
		a.Telemetry = a.Telemetry[:0]
		a.lastEvent = ""
		a.Running = true
	}
	if rl.IsKeyPressed(rl.KeyI) {
		a.Sess.Queue(core.Inject{Kind: core.KindPrimary, Count: 10, Energy: 60})
	}
	if rl.IsKeyPressed(rl.KeyTab) {
		if n := len(a.Snap.ObsNames); n > 0 {
			a.ObsSel = (a.ObsSel + 1) % n
			a.Telemetry = a.Telemetry[:0]
		}
	}
	if rl.IsKeyPressed(rl.KeyM) {
		a.toggleAudio()
	}

	if !a.Running {
		return
	}
	a.Sess.Step(simDt)
	a.Snap = a.Sess.Snapshot()

	if evs := a.Snap.Events; len(evs) > 0 {
		e := evs[len(evs)-1]
		a.lastEvent = fmt.Sprintf("%s: %s", e.Type, e.Name)
	}
	if len(a.Snap.ObsNames) > 0 {
		name := a.Snap.ObsNames[a.ObsSel%len(a.Snap.ObsNames)]
		a.Telemetry = append(a.Telemetry, a.Snap.Obs(name))
		if len(a.Telemetry) > telemetryCap {
			a.Telemetry = a.Telemetry[1:]
		}
	}
}

func (a *App) toggleAudio() {
	if a.Audio == nil {
		son := audio.NewSonifier("")
		if err := son.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "audio disabled: %v\n", err)
			return
		}
		a.Audio = son
		if a.Sess != nil {
			a.Sess.AddObserver(son)
		}
		return
	}
	if a.Audio.Active {
		a.Audio.Stop()
		return
	}
	if err := a.Audio.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "audio: %v\n", err)
	}
}

// Draw renders the current screen.
func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	switch {
	case a.InMenu:
		a.drawMenu()
	case a.InConfig:
		a.drawConfig()
	default:
		a.drawSim()
		a.drawHUD()
	}

	rl.EndDrawing()
}

func (a *App) drawMenu() {
	a.drawText("physlab", 50, 50, 40, ColSelect)
	a.drawText("particle & phase-transition labs", 50, 100, 16, ColTextDim)

	y := 170
	for i, lab := range a.Labs {
		line := fmt.Sprintf("  %-14s %s", lab.Name, lab.Tagline)
		col := ColText
		if i == a.Selected {
			line = ">" + line[1:]
			col = ColSelect
		}
		a.drawText(line, 50, int32(y), 20, col)
		y += 30
	}

	a.drawText("ARROWS: NAVIGATE  ENTER: SELECT  Q: QUIT", 800, 680, 14, ColTextDim)
}

func (a *App) drawConfig() {
	a.drawText("physlab", 50, 50, 40, ColTextDim)
	a.drawText(a.Lab.Name, 240, 65, 24, ColAccent)
	a.drawText(a.Lab.Tagline, 50, 105, 14, ColTextDim)

	y := 180
	rows := 1 + len(a.KnobSpecs)
	for i := 0; i < rows; i++ {
		var line string
		if i == 0 {
			line = fmt.Sprintf("  %-18s %10d", "seed", a.Seed)
		} else {
			k := a.KnobSpecs[i-1]
			line = fmt.Sprintf("  %-18s %10.2f", k.Name, a.Overrides[k.Name])
		}
		col := ColText
		if i == a.ParamSel {
			line = ">" + line[1:]
			col = ColSelect
		}
		a.drawText(line, 50, int32(y), 20, col)
		y += 28
	}

	a.drawText("ARROWS: ADJUST  SHIFT: COARSE  ENTER: RUN  ESC: BACK", 720, 680, 14, ColTextDim)
}

func (a *App) drawText(text string, x, y, size int32, col rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, col)
}
