package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Chrome shared by the live view and the plot output.
var (
	Subtle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))

	StatusRunning = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ff88"))
	StatusPaused  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffaa00"))

	MetricValue = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ccff"))
	MetricLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("#888899"))

	KeyHint = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#666688"))
)

// Cold-to-hot bands for values positioned inside a declared range.
var (
	bandCold = lipgloss.NewStyle().Foreground(lipgloss.Color("#4d9fff"))
	bandWarm = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0e0e0"))
	bandHot  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff8c42"))
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders a value history against its declared [lo, hi] range, one
// rune per bucket of the window, oldest on the left, buckets averaged.
// Observables clamp to their range, so fixed normalization keeps the same
// value at the same height from frame to frame; a window-scaled sparkline
// would breathe with every tick.
func Sparkline(values []float64, lo, hi float64, width int) string {
	if len(values) == 0 || hi <= lo {
		return strings.Repeat("─", width)
	}

	bucket := float64(len(values)) / float64(width)
	if bucket < 1 {
		bucket = 1
	}

	var b strings.Builder
	for i := 0; i < width; i++ {
		start := int(float64(i) * bucket)
		if start >= len(values) {
			break
		}
		end := min(int(float64(i+1)*bucket), len(values))
		sum := 0.0
		for _, v := range values[start:end] {
			sum += v
		}

		f := clamp01((sum/float64(end-start) - lo) / (hi - lo))
		r := string(sparkRunes[int(f*float64(len(sparkRunes)-1))])
		switch {
		case f > 0.75:
			b.WriteString(bandHot.Render(r))
		case f > 0.25:
			b.WriteString(bandWarm.Render(r))
		default:
			b.WriteString(bandCold.Render(r))
		}
	}
	return b.String()
}

// ProgressBar renders a fill fraction as a fixed-width bar, colored by how
// far along it is.
func ProgressBar(frac float64, width int) string {
	f := clamp01(frac)
	n := int(f * float64(width))
	bar := strings.Repeat("█", n) + strings.Repeat("░", width-n)
	switch {
	case f > 0.75:
		return bandHot.Render(bar)
	case f > 0.25:
		return bandWarm.Render(bar)
	default:
		return bandCold.Render(bar)
	}
}

// Separator renders a horizontal rule with a centered tick.
func Separator(width int) string {
	if width < 5 {
		return Subtle.Render(strings.Repeat("─", width))
	}
	mid := width / 2
	return Subtle.Render(strings.Repeat("─", mid-2) + " ◆ " + strings.Repeat("─", width-mid-1))
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
