package export

import (
	"fmt"
	"strings"

	"github.com/arvi-k/physlab/internal/viz"
)

// svgBackground matches the dark stage the TUI and GUI render on.
const svgBackground = "#0a0a0f"

func svgOpen(sb *strings.Builder, w, h float64) {
	sb.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	fmt.Fprintf(sb, "<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%.0f\" height=\"%.0f\" viewBox=\"0 0 %.0f %.0f\">\n", w, h, w, h)
	fmt.Fprintf(sb, "<rect width=\"100%%\" height=\"100%%\" fill=%q/>\n", svgBackground)
}

// CanvasToSVG renders a field canvas as a dot field, one circle per lit
// sub-pixel. scale is the edge of one sub-pixel in SVG units; fill is the
// dot color, typically the lab theme's primary.
func CanvasToSVG(c *viz.Canvas, scale float64, fill string) string {
	if c == nil {
		return ""
	}

	var sb strings.Builder
	svgOpen(&sb, float64(c.Width*2)*scale, float64(c.Height*4)*scale)
	fmt.Fprintf(&sb, "<g fill=%q>\n", fill)

	r := 0.4 * scale
	for x, y := range c.Dots() {
		cx := (float64(x) + 0.5) * scale
		cy := (float64(y) + 0.5) * scale
		fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
	}

	sb.WriteString("</g>\n</svg>\n")
	return sb.String()
}

// SeriesToSVG plots one observable trace against time as a polyline, scaled
// to fit with a tenth of vertical headroom on each side.
func SeriesToSVG(times, vals []float64, width, height int, stroke string) string {
	if len(times) < 2 || len(times) != len(vals) {
		return ""
	}

	minT, maxT := times[0], times[len(times)-1]
	minV, maxV := vals[0], vals[0]
	for _, v := range vals {
		minV = min(minV, v)
		maxV = max(maxV, v)
	}

	spanT := maxT - minT
	if spanT == 0 {
		spanT = 1
	}
	pad := (maxV - minV) * 0.1
	if pad == 0 {
		pad = 0.5
	}
	minV -= pad
	spanV := maxV + pad - minV

	var sb strings.Builder
	svgOpen(&sb, float64(width), float64(height))
	fmt.Fprintf(&sb, "<path fill=\"none\" stroke=%q stroke-width=\"1.5\" d=\"M", stroke)

	for i := range times {
		x := (times[i] - minT) / spanT * float64(width)
		y := float64(height) - (vals[i]-minV)/spanV*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString("\"/>\n</svg>\n")
	return sb.String()
}
