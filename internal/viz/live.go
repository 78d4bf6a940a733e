package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/labs"
)

type TickMsg time.Time

const (
	frameRate  = 60
	tickDelta  = 1.0 / frameRate
	historyCap = 240 // four seconds of per-frame samples
	eventTail  = 6

	fieldCols = 64
	fieldRows = 24
)

var (
	canvasStyle = lipgloss.NewStyle().Padding(1, 2)
	statsStyle  = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("238")).
			Width(46)
	headerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	labelStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	activeKnobStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	phaseStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("213")).Bold(true)
	eventStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	helpStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

// Model is the live session view. It owns the session and steps it between
// frames, so simulation and rendering share bubbletea's update goroutine and
// no locking is needed anywhere.
type Model struct {
	lab  labs.Lab
	sess *core.Session
	view *FieldView

	paused   bool
	speed    float64
	showHelp bool

	knobs      []core.KnobSpec
	knobCursor int

	obsCursor int
	history   map[string][]float64
	ranges    map[string][2]float64 // declared observable ranges
	events    []core.Event

	frames    int
	lastFrame time.Time
	fps       float64
	width     int
}

// NewModel builds a live view around a fresh session for the lab, opening in
// the lab's own palette.
func NewModel(lab labs.Lab, seed int64) (Model, error) {
	sess, err := lab.NewSession(seed)
	if err != nil {
		return Model{}, err
	}
	SetTheme(LabTheme(lab.Name).Name)

	ranges := make(map[string][2]float64)
	for _, o := range lab.Definition().Observables {
		ranges[o.Name] = [2]float64{o.Min, o.Max}
	}

	m := Model{
		lab:       lab,
		sess:      sess,
		view:      NewFieldView(fieldCols, fieldRows, sess.Bounds()),
		speed:     1.0,
		knobs:     sess.Knobs(),
		history:   make(map[string][]float64),
		ranges:    ranges,
		lastFrame: time.Now(),
	}
	m.observe(sess.Snapshot())
	return m, nil
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case TickMsg:
		if !m.paused {
			m.advance(tickDelta * m.speed)
		}
		m.countFrame(time.Time(msg))
		return m, tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
			return TickMsg(t)
		})
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
	case " ":
		m.paused = !m.paused
	case "n":
		if m.paused {
			m.advance(tickDelta)
		}
	case "r":
		m.sess.Reset()
		m.history = make(map[string][]float64)
		m.events = nil
		m.observe(m.sess.Snapshot())
	case "i":
		m.sess.Queue(core.Inject{Kind: core.KindPrimary, Count: 10, Energy: 60})
	case "tab":
		if n := len(m.sess.Snapshot().ObsNames); n > 0 {
			m.obsCursor = (m.obsCursor + 1) % n
		}
	case "up", "k":
		if m.knobCursor > 0 {
			m.knobCursor--
		}
	case "down", "j":
		if m.knobCursor < len(m.knobs)-1 {
			m.knobCursor++
		}
	case "left", "h":
		m.nudgeKnob(-1)
	case "right", "l":
		m.nudgeKnob(+1)
	case "[":
		m.speed = math.Max(0.25, m.speed/2)
	case "]":
		m.speed = math.Min(8, m.speed*2)
	case "t":
		names := ThemeNames()
		for i, n := range names {
			if n == CurrentTheme.Name {
				SetTheme(names[(i+1)%len(names)])
				break
			}
		}
	}
	return m, nil
}

// advance steps simulated time in fixed substeps so cranked-up speed never
// degrades the physics, then records the resulting snapshot.
func (m *Model) advance(dt float64) {
	for dt > 0 {
		h := math.Min(dt, tickDelta)
		m.sess.Step(h)
		dt -= h
	}
	m.observe(m.sess.Snapshot())
}

func (m *Model) observe(snap core.Snapshot) {
	for _, name := range snap.ObsNames {
		h := append(m.history[name], snap.Obs(name))
		if len(h) > historyCap {
			h = h[len(h)-historyCap:]
		}
		m.history[name] = h
	}
	m.events = append(m.events, snap.Events...)
	if len(m.events) > eventTail {
		m.events = m.events[len(m.events)-eventTail:]
	}
	m.view.Render(snap)
}

// nudgeKnob moves the selected knob by 1/40 of its range, clamped.
func (m *Model) nudgeKnob(dir float64) {
	if m.knobCursor >= len(m.knobs) {
		return
	}
	k := m.knobs[m.knobCursor]
	cur, err := m.sess.KnobValue(k.Name)
	if err != nil {
		return
	}
	step := (k.Max - k.Min) / 40
	next := math.Min(k.Max, math.Max(k.Min, cur+dir*step))
	_ = m.sess.SetKnob(k.Name, next)
}

func (m *Model) countFrame(now time.Time) {
	m.frames++
	if elapsed := now.Sub(m.lastFrame); elapsed >= time.Second {
		m.fps = float64(m.frames) / elapsed.Seconds()
		m.frames = 0
		m.lastFrame = now
	}
}

func (m Model) View() string {
	if m.showHelp {
		return m.helpView()
	}
	snap := m.sess.Snapshot()

	header := headerStyle.Render("physlab · "+m.lab.Name) + "  " + Subtle.Render(m.lab.Tagline)
	status := m.statusLine(snap)

	fieldStyle := lipgloss.NewStyle().Foreground(CurrentTheme.Primary)
	canvas := canvasStyle.Render(fieldStyle.Render(strings.TrimRight(m.view.Canvas.String(), "\n")))
	stats := statsStyle.Render(m.statsView(snap))
	body := lipgloss.JoinHorizontal(lipgloss.Top, canvas, stats)

	help := helpStyle.Render("space pause · n step · r reset · i inject · tab plot · ↑↓ knob · ←→ adjust · [ ] speed · t theme · ? help · q quit")
	return header + "\n" + status + "\n" + body + "\n" + help
}

func (m Model) statusLine(snap core.Snapshot) string {
	state := StatusRunning.Render("● running")
	if m.paused {
		state = StatusPaused.Render("❚❚ paused")
	}
	return fmt.Sprintf("%s  %s  %s  %s",
		state,
		Subtle.Render(fmt.Sprintf("tick %d", snap.Tick)),
		Subtle.Render(fmt.Sprintf("t=%.1fs", snap.Time)),
		Subtle.Render(fmt.Sprintf("%.0f fps  ×%.2g", m.fps, m.speed)),
	)
}

func (m Model) statsView(snap core.Snapshot) string {
	var b strings.Builder

	phase := phaseStyle.Render(strings.ToUpper(snap.Phase))
	if snap.Terminal {
		phase += "  " + lipgloss.NewStyle().Bold(true).Foreground(CurrentTheme.Danger).Render("TERMINAL")
	}
	b.WriteString(labelStyle.Render("phase") + phase + "\n\n")

	for _, k := range core.Kinds() {
		b.WriteString(labelStyle.Render(m.lab.KindName(k)) +
			valueStyle.Render(fmt.Sprintf("%5d", snap.Count(k))) + "\n")
	}
	if snap.Escaped > 0 {
		b.WriteString(labelStyle.Render("escaped") +
			valueStyle.Render(fmt.Sprintf("%5d", snap.Escaped)) + "\n")
	}
	b.WriteString("\n")

	for i, name := range snap.ObsNames {
		label := labelStyle.Render(name)
		if i == m.obsCursor {
			label = activeKnobStyle.Render(fmt.Sprintf("%-14s", name))
		}
		rng := m.ranges[name]
		b.WriteString(fmt.Sprintf("%s%s %s\n",
			label,
			MetricValue.Render(fmt.Sprintf("%9.2f", snap.Obs(name))),
			Sparkline(m.history[name], rng[0], rng[1], 14)))
	}

	if len(snap.ObsNames) > 0 {
		plotted := snap.ObsNames[m.obsCursor%len(snap.ObsNames)]
		if hist := m.history[plotted]; len(hist) >= 2 {
			graph := lipgloss.NewStyle().Foreground(CurrentTheme.Secondary)
			b.WriteString("\n" + graph.Render(asciigraph.Plot(hist,
				asciigraph.Height(5),
				asciigraph.Width(34),
				asciigraph.Caption(plotted))) + "\n")
		}
	}

	if len(m.knobs) > 0 {
		b.WriteString("\n")
		for i, k := range m.knobs {
			v, _ := m.sess.KnobValue(k.Name)
			line := fmt.Sprintf("%-12s %s %7.1f", k.Name, knobBar(v, k.Min, k.Max, 10), v)
			if i == m.knobCursor {
				b.WriteString(activeKnobStyle.Render("▸ "+line) + "\n")
			} else {
				b.WriteString(valueStyle.Render("  "+line) + "\n")
			}
		}
	}

	if len(m.events) > 0 {
		b.WriteString("\n")
		for _, e := range m.events {
			b.WriteString(eventStyle.Render(fmt.Sprintf("%7.1fs  %-10s %s", e.Time, e.Type, e.Name)) + "\n")
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

func (m Model) helpView() string {
	rows := [][2]string{
		{"space", "pause / resume"},
		{"n", "single step while paused"},
		{"r", "reset the session"},
		{"i", "inject 10 primary particles"},
		{"tab", "cycle the plotted observable"},
		{"↑/k ↓/j", "select knob"},
		{"←/h →/l", "adjust selected knob"},
		{"[ / ]", "halve / double speed"},
		{"t", "cycle color theme"},
		{"?", "close this help"},
		{"q", "quit"},
	}
	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render("KEY BINDINGS") + "\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			KeyHint.Render(fmt.Sprintf("%-10s", r[0])),
			valueStyle.Render(r[1])))
	}
	b.WriteString("\n  " + helpStyle.Render("press ? to return"))
	return b.String()
}

func knobBar(v, lo, hi float64, width int) string {
	f := 0.0
	if hi > lo {
		f = (v - lo) / (hi - lo)
	}
	if f < 0 {
		f = 0
	}
	if f > 1 {
		f = 1
	}
	n := int(f * float64(width))
	return "[" + strings.Repeat("=", n) + strings.Repeat("-", width-n) + "]"
}

// RunLive starts the live TUI on a fresh session for the lab.
func RunLive(lab labs.Lab, seed int64) error {
	m, err := NewModel(lab, seed)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
