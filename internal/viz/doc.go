// Package viz renders lab sessions in the terminal.
//
// [RunLive] drives a [Model]: a bubbletea view that owns its session and
// steps it between frames, projecting the particle field onto a braille
// [Canvas] through a [FieldView], with range-normalized sparklines, an
// asciigraph history pane and knob controls alongside. [RunInteractive]
// wraps the same model in a lab menu and a per-run config screen.
//
// Each lab opens in its own [Theme] palette and the t key cycles through
// all of them; ? shows the full key bindings. [PlotSeries] renders
// archived series columns for the plot command.
package viz
