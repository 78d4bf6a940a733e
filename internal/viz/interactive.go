package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/labs"
)

var (
	menuTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	menuSub    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	menuArrow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	menuActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	menuDesc   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	menuDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	menuDimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	menuKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// app is the interactive entry point: lab menu, per-run config, then the
// live Model.
type app struct {
	state  int
	cursor int
	labs   []labs.Lab

	selected  labs.Lab
	seed      int64
	knobSpecs []core.KnobSpec
	overrides map[string]float64

	paramCursor int
	editing     bool
	editBuf     string

	liveModel     Model
	width, height int
	err           error
}

func NewInteractiveApp() *app {
	return &app{labs: labs.All()}
}

func (a app) Init() tea.Cmd { return nil }

func (a app) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)
	case tea.WindowSizeMsg:
		a.width, a.height, a.liveModel.width = msg.Width, msg.Height, msg.Width
		return a, nil
	default:
		if a.state == stateSim {
			newLive, cmd := a.liveModel.Update(msg)
			a.liveModel = newLive.(Model)
			return a, cmd
		}
	}
	return a, nil
}

func (a app) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch a.state {
	case stateMenu:
		return a.menuKey(msg)
	case stateConfig:
		return a.configKey(msg)
	case stateSim:
		newLive, cmd := a.liveModel.Update(msg)
		a.liveModel = newLive.(Model)
		return a, cmd
	}
	return a, nil
}

func (a app) menuKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.cursor > 0 {
			a.cursor--
		}
	case "down", "j":
		if a.cursor < len(a.labs)-1 {
			a.cursor++
		}
	case "enter", " ":
		a.selected = a.labs[a.cursor]
		a.seed = a.selected.Seed
		a.knobSpecs = a.selected.Definition().Knobs
		a.overrides = make(map[string]float64, len(a.knobSpecs))
		for _, k := range a.knobSpecs {
			a.overrides[k.Name] = k.Default
		}
		a.state, a.paramCursor, a.err = stateConfig, 0, nil
	}
	return a, nil
}

func (a app) configKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.editing {
		switch msg.String() {
		case "enter":
			var val float64
			fmt.Sscanf(a.editBuf, "%f", &val)
			a.setRow(a.paramCursor, val)
			a.editing, a.editBuf = false, ""
		case "escape":
			a.editing, a.editBuf = false, ""
		case "backspace":
			if len(a.editBuf) > 0 {
				a.editBuf = a.editBuf[:len(a.editBuf)-1]
			}
		default:
			if len(msg.String()) == 1 {
				c := msg.String()[0]
				if (c >= '0' && c <= '9') || c == '.' || c == '-' {
					a.editBuf += string(c)
				}
			}
		}
		return a, nil
	}
	switch msg.String() {
	case "q", "escape":
		a.state = stateMenu
	case "ctrl+c":
		return a, tea.Quit
	case "up", "k":
		if a.paramCursor > 0 {
			a.paramCursor--
		}
	case "down", "j":
		if a.paramCursor < a.rowCount()-1 {
			a.paramCursor++
		}
	case "enter", " ":
		a.editing, a.editBuf = true, fmt.Sprintf("%.2f", a.rowValue(a.paramCursor))
	case "left", "h":
		a.adjustRow(a.paramCursor, -1)
	case "right", "l":
		a.adjustRow(a.paramCursor, +1)
	case "s":
		return a.start()
	}
	return a, nil
}

// Config rows: row 0 is the seed, the rest are the lab's knobs.

func (a app) rowCount() int { return 1 + len(a.knobSpecs) }

func (a app) rowName(i int) string {
	if i == 0 {
		return "seed"
	}
	return a.knobSpecs[i-1].Name
}

func (a app) rowValue(i int) float64 {
	if i == 0 {
		return float64(a.seed)
	}
	return a.overrides[a.knobSpecs[i-1].Name]
}

func (a *app) setRow(i int, v float64) {
	if i == 0 {
		a.seed = int64(v)
		return
	}
	k := a.knobSpecs[i-1]
	if v < k.Min {
		v = k.Min
	}
	if v > k.Max {
		v = k.Max
	}
	a.overrides[k.Name] = v
}

func (a *app) adjustRow(i int, dir float64) {
	if i == 0 {
		a.seed += int64(dir)
		return
	}
	k := a.knobSpecs[i-1]
	a.setRow(i, a.overrides[k.Name]+dir*(k.Max-k.Min)/40)
}

func (a app) start() (tea.Model, tea.Cmd) {
	m, err := NewModel(a.selected, a.seed)
	if err != nil {
		a.err = err
		return a, nil
	}
	for name, v := range a.overrides {
		if err := m.sess.SetKnob(name, v); err != nil {
			a.err = err
			return a, nil
		}
	}
	m.observe(m.sess.Snapshot())
	m.width = a.width
	a.liveModel, a.state = m, stateSim
	return a, a.liveModel.Init()
}

func (a app) View() string {
	switch a.state {
	case stateMenu:
		return a.viewMenu()
	case stateConfig:
		return a.viewConfig()
	case stateSim:
		return a.liveModel.View()
	}
	return ""
}

func (a app) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render("PHYSLAB") + "\n    " +
		menuSub.Render("particle & phase-transition labs") + "\n    " +
		menuSub.Render("─────────────────────────") + "\n\n")
	for i, l := range a.labs {
		desc := l.Tagline
		if len(desc) > 36 {
			desc = desc[:33] + "..."
		}
		if i == a.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n",
				menuArrow.Render("▸"),
				menuActive.Render(fmt.Sprintf("%-14s", l.Name)),
				menuDesc.Render(desc)))
		} else {
			b.WriteString(fmt.Sprintf("    %s  %s\n",
				menuDim.Render(fmt.Sprintf("  %-14s", l.Name)),
				menuDimmer.Render(desc)))
		}
	}
	b.WriteString("\n    " + menuKey.Render("j/k") + menuDim.Render(" navigate  ") +
		menuKey.Render("enter") + menuDim.Render(" select  ") +
		menuKey.Render("q") + menuDim.Render(" quit") + "\n")
	return b.String()
}

func (a app) viewConfig() string {
	var b strings.Builder
	b.WriteString("\n\n    " + menuTitle.Render(strings.ToUpper(a.selected.Name)) + "\n    " +
		menuSub.Render(a.selected.Tagline) + "\n    " +
		menuSub.Render("─────────────────────────") + "\n\n")
	for i := 0; i < a.rowCount(); i++ {
		name := a.rowName(i)
		valStr := fmt.Sprintf("%10.2f", a.rowValue(i))
		if i == 0 {
			valStr = fmt.Sprintf("%10d", a.seed)
		}
		if a.editing && i == a.paramCursor {
			valStr = fmt.Sprintf("%10s", a.editBuf+"_")
		}
		if i == a.paramCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n",
				menuArrow.Render("▸"),
				menuActive.Render(fmt.Sprintf("%-16s", name)),
				menuDesc.Render(valStr)))
		} else {
			b.WriteString(fmt.Sprintf("    %s %s\n",
				menuDim.Render(fmt.Sprintf("  %-16s", name)),
				menuDimmer.Render(valStr)))
		}
	}
	if a.err != nil {
		errStyle := lipgloss.NewStyle().Foreground(CurrentTheme.Danger)
		b.WriteString("\n    " + errStyle.Render(a.err.Error()) + "\n")
	}
	b.WriteString("\n    " + menuKey.Render("j/k") + menuDim.Render(" select  ") +
		menuKey.Render("h/l") + menuDim.Render(" adjust  ") +
		menuKey.Render("enter") + menuDim.Render(" type  ") +
		menuKey.Render("s") + menuDim.Render(" start  ") +
		menuKey.Render("esc") + menuDim.Render(" back") + "\n")
	return b.String()
}

// RunInteractive starts the full TUI flow: lab menu, config, live session.
func RunInteractive() error {
	_, err := tea.NewProgram(NewInteractiveApp(), tea.WithAltScreen()).Run()
	return err
}
