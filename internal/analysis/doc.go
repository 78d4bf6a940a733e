// Package analysis provides post-run tools for recorded sessions.
//
// The package characterizes a finished run from its sampled series and
// event log:
//
//   - [PowerSpectrum]: one-sided spectrum of an observable series
//   - [PhaseResidence]: time per phase and the transition matrix
//   - [SeriesStats]: min/max/mean/std summary of one series column
//
// # Oscillation Detection
//
// A session flapping across a phase boundary shows up as a sharp line in
// the spectrum of the contested observable:
//
//	spec := analysis.PowerSpectrum(series.Column("temperature"), rate)
//	if p := spec.DominantPeriod(); p > 0 {
//	    // Oscillating with period p sim-seconds
//	}
package analysis
