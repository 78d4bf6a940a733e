package viz

import "github.com/charmbracelet/lipgloss"

// Theme colors one lab's terminal session. Each lab ships with its own
// palette so the fusion core and the decay cellar read differently at a
// glance; the t key still cycles through all of them.
type Theme struct {
	Name      string
	Lab       string         // lab this palette belongs to, "" if generic
	Primary   lipgloss.Color // field dots and banner
	Secondary lipgloss.Color // history graph
	Accent    lipgloss.Color // selections and highlights
	Danger    lipgloss.Color // terminal phase flag
}

var (
	ThemePlasma = Theme{
		Name:      "plasma",
		Lab:       "fusion",
		Primary:   lipgloss.Color("#00e5ff"),
		Secondary: lipgloss.Color("#ff00d9"),
		Accent:    lipgloss.Color("#ffe14d"),
		Danger:    lipgloss.Color("#ff4d6d"),
	}

	ThemeGeiger = Theme{
		Name:      "geiger",
		Lab:       "decay",
		Primary:   lipgloss.Color("#39ff5e"),
		Secondary: lipgloss.Color("#14a03c"),
		Accent:    lipgloss.Color("#c8ff6e"),
		Danger:    lipgloss.Color("#ff5533"),
	}

	ThemeCascade = Theme{
		Name:      "cascade",
		Lab:       "chain",
		Primary:   lipgloss.Color("#8ab6ff"),
		Secondary: lipgloss.Color("#4169e1"),
		Accent:    lipgloss.Color("#ffffff"),
		Danger:    lipgloss.Color("#ff6b35"),
	}

	ThemeInferno = Theme{
		Name:      "inferno",
		Lab:       "detonation",
		Primary:   lipgloss.Color("#ff8c42"),
		Secondary: lipgloss.Color("#ff3b1f"),
		Accent:    lipgloss.Color("#ffd166"),
		Danger:    lipgloss.Color("#ff1f1f"),
	}

	ThemeLattice = Theme{
		Name:      "lattice",
		Lab:       "irradiation",
		Primary:   lipgloss.Color("#b388ff"),
		Secondary: lipgloss.Color("#7c4dff"),
		Accent:    lipgloss.Color("#64ffda"),
		Danger:    lipgloss.Color("#ff5370"),
	}

	Themes = []Theme{ThemePlasma, ThemeGeiger, ThemeCascade, ThemeInferno, ThemeLattice}

	CurrentTheme = ThemePlasma
)

// GetTheme returns the named theme, falling back to the first.
func GetTheme(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

// LabTheme returns the palette a lab ships with, falling back to the first.
func LabTheme(lab string) Theme {
	for _, t := range Themes {
		if t.Lab == lab {
			return t
		}
	}
	return Themes[0]
}

// SetTheme switches the active palette by name.
func SetTheme(name string) {
	CurrentTheme = GetTheme(name)
}

// ThemeNames lists the palettes in cycling order.
func ThemeNames() []string {
	names := make([]string, len(Themes))
	for i, t := range Themes {
		names[i] = t.Name
	}
	return names
}
