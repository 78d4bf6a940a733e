package viz

import (
	"fmt"
	"strings"

	"github.com/guptarohit/asciigraph"
)

// PlotSeries renders one sampled series as a line chart with summary figures
// underneath. Used by the plot and analyze commands on archived runs.
func PlotSeries(name string, values []float64, width, height int) string {
	if len(values) == 0 {
		return MetricLabel.Render(name + ": no samples")
	}
	graph := asciigraph.Plot(values,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(name),
	)
	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	stats := fmt.Sprintf("min %.4g  max %.4g  last %.4g  n=%d",
		min, max, values[len(values)-1], len(values))
	return graph + "\n" + MetricLabel.Render(stats)
}

// PlotSeriesSet renders several series stacked in the given order, separated
// by a decorative rule. Series missing from the map are skipped.
func PlotSeriesSet(series map[string][]float64, order []string, width, height int) string {
	var parts []string
	for _, name := range order {
		values, ok := series[name]
		if !ok {
			continue
		}
		parts = append(parts, PlotSeries(name, values, width, height))
	}
	if len(parts) == 0 {
		return MetricLabel.Render("no series to plot")
	}
	return strings.Join(parts, "\n"+Separator(width)+"\n")
}
