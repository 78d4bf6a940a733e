package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/arvi-k/physlab/internal/analysis"
	"github.com/arvi-k/physlab/internal/automation"
	"github.com/arvi-k/physlab/internal/config"
	"github.com/arvi-k/physlab/internal/control"
	"github.com/arvi-k/physlab/internal/core"
	"github.com/arvi-k/physlab/internal/export"
	"github.com/arvi-k/physlab/internal/gui"
	"github.com/arvi-k/physlab/internal/labs"
	"github.com/arvi-k/physlab/internal/metrics"
	"github.com/arvi-k/physlab/internal/optim"
	"github.com/arvi-k/physlab/internal/server"
	"github.com/arvi-k/physlab/internal/storage"
	"github.com/arvi-k/physlab/internal/viz"
)

var (
	archiveDir string
	seed       int64
	rate       float64
	duration   float64
	preset     string
	configFile string
	knobSets   []string

	driverName string
	driveObs   string
	driveKnob  string
	kp         float64
	ki         float64
	kd         float64
	target     float64
	scriptFile string

	sampleEvery    int
	stopAtTerminal bool
	saveRun        bool
	saveScenario   bool
	fieldSVG       string

	sweepKnob  string
	sweepMin   float64
	sweepMax   float64
	sweepSteps int

	mcTrials int
	mcSeed   int64

	tuneKnobs    []string
	tunePoints   int
	tuneMetric   string
	tuneMaximize bool

	obsName    string
	plotWidth  int
	plotHeight int
	svgWidth   int
	svgHeight  int

	withAudio bool

	addr       string
	dbPath     string
	logLevel   string
	webhookURL string
)

var rootCmd = &cobra.Command{
	Use:   "physlab",
	Short: "particle and phase-transition simulation labs",
	Run: func(cmd *cobra.Command, args []string) {
		// no subcommand drops into the GUI lab menu
		gui.RunInteractive(withAudio)
	},
}

var runCmd = &cobra.Command{
	Use:   "run [lab]",
	Short: "run a lab headless and print the outcome",
	Args:  cobra.ExactArgs(1),
	RunE:  runLab,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "list registered labs",
	RunE:  listLabs,
}

var presetsCmd = &cobra.Command{
	Use:   "presets [lab]",
	Short: "list named presets for a lab",
	Args:  cobra.ExactArgs(1),
	RunE:  listLabPresets,
}

var liveCmd = &cobra.Command{
	Use:   "live [lab]",
	Short: "watch a lab in the terminal",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runLiveTUI,
}

var guiCmd = &cobra.Command{
	Use:   "gui [lab]",
	Short: "watch a lab in a raylib window",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runGUI,
}

var plotCmd = &cobra.Command{
	Use:   "plot [run-id]",
	Short: "plot an archived run's observables",
	Args:  cobra.ExactArgs(1),
	RunE:  plotRun,
}

var exportCmd = &cobra.Command{
	Use:   "export [run-id]",
	Short: "print an archived run's metadata as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  exportRun,
}

var exportCSVCmd = &cobra.Command{
	Use:   "export-csv [run-id]",
	Short: "print an archived run's series as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  exportCSVRun,
}

var exportJSONCmd = &cobra.Command{
	Use:   "export-json [run-id]",
	Short: "print an archived run in full as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  exportJSONRun,
}

var exportSVGCmd = &cobra.Command{
	Use:   "export-svg [run-id]",
	Short: "print an archived run's trace as SVG",
	Args:  cobra.ExactArgs(1),
	RunE:  exportSVGRun,
}

var sweepCmd = &cobra.Command{
	Use:   "sweep [lab]",
	Short: "sweep one knob across a range and tabulate outcomes",
	Args:  cobra.ExactArgs(1),
	RunE:  runSweep,
}

var montecarloCmd = &cobra.Command{
	Use:   "montecarlo [lab]",
	Short: "run one configuration across many seeds",
	Args:  cobra.ExactArgs(1),
	RunE:  runMonteCarlo,
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario [file]",
	Short: "run a scripted multi-step scenario",
	Args:  cobra.ExactArgs(1),
	RunE:  runScenario,
}

var tuneCmd = &cobra.Command{
	Use:   "tune [lab]",
	Short: "grid-search knob settings against a run metric",
	Args:  cobra.ExactArgs(1),
	RunE:  tuneLab,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [run-id]",
	Short: "statistics, spectrum and phase residence of an archived run",
	Args:  cobra.ExactArgs(1),
	RunE:  analyzeRun,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "list archived runs",
	RunE:  listRuns,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve the lab catalog over HTTP",
	RunE:  serve,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&archiveDir, "archive", config.DefaultArchive, "run archive directory")
	rootCmd.Flags().BoolVar(&withAudio, "audio", true, "start with sonification on")

	runCmd.Flags().Int64Var(&seed, "seed", 0, "rng seed (0 = lab default)")
	runCmd.Flags().Float64Var(&rate, "rate", config.DefaultRate, "ticks per second")
	runCmd.Flags().Float64Var(&duration, "duration", config.DefaultDuration, "sim seconds to cover")
	runCmd.Flags().StringVar(&preset, "preset", "", "named preset configuration")
	runCmd.Flags().StringVar(&configFile, "config", "", "yaml config file")
	runCmd.Flags().StringArrayVar(&knobSets, "set", nil, "knob override name=value (repeatable)")
	runCmd.Flags().StringVar(&driverName, "driver", "none", "driver: none, pid, script")
	runCmd.Flags().StringVar(&driveObs, "observable", "", "pid: observable to hold")
	runCmd.Flags().StringVar(&driveKnob, "drive-knob", "", "pid: knob to write")
	runCmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "pid proportional gain")
	runCmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "pid integral gain")
	runCmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "pid derivative gain")
	runCmd.Flags().Float64Var(&target, "target", 0, "pid setpoint")
	runCmd.Flags().StringVar(&scriptFile, "script", "", "scripted driver timeline (yaml)")
	runCmd.Flags().IntVar(&sampleEvery, "sample-every", 1, "series sample stride in ticks")
	runCmd.Flags().BoolVar(&stopAtTerminal, "stop-at-terminal", true, "stop once a terminal phase is reached")
	runCmd.Flags().BoolVar(&saveRun, "save", true, "archive the finished run")
	runCmd.Flags().StringVar(&fieldSVG, "field-svg", "", "write the final field to this SVG file")

	liveCmd.Flags().Int64Var(&seed, "seed", 0, "rng seed (0 = lab default)")

	guiCmd.Flags().Int64Var(&seed, "seed", 0, "rng seed (0 = lab default)")
	guiCmd.Flags().BoolVar(&withAudio, "audio", true, "start with sonification on")

	plotCmd.Flags().StringVar(&obsName, "obs", "", "plot a single observable")
	plotCmd.Flags().IntVar(&plotWidth, "width", 72, "plot width in columns")
	plotCmd.Flags().IntVar(&plotHeight, "height", 12, "plot height in rows")

	exportSVGCmd.Flags().StringVar(&obsName, "obs", "", "observable to trace (default: first)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width in pixels")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height in pixels")

	sweepCmd.Flags().StringVar(&sweepKnob, "knob", "", "knob to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0, "sweep range low end")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 100, "sweep range high end")
	sweepCmd.Flags().IntVar(&sweepSteps, "steps", 8, "number of sweep values")
	sweepCmd.Flags().Int64Var(&seed, "seed", 0, "rng seed (0 = lab default)")
	sweepCmd.Flags().Float64Var(&rate, "rate", config.DefaultRate, "ticks per second")
	sweepCmd.Flags().Float64Var(&duration, "duration", config.DefaultDuration, "sim seconds per point")
	sweepCmd.Flags().StringArrayVar(&knobSets, "set", nil, "fixed knob name=value (repeatable)")

	montecarloCmd.Flags().IntVar(&mcTrials, "trials", 20, "number of seeded trials")
	montecarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "base seed, trial n uses seed+n (0 = wall clock)")
	montecarloCmd.Flags().Float64Var(&rate, "rate", config.DefaultRate, "ticks per second")
	montecarloCmd.Flags().Float64Var(&duration, "duration", config.DefaultDuration, "sim seconds per trial")
	montecarloCmd.Flags().StringArrayVar(&knobSets, "set", nil, "knob override name=value (repeatable)")

	scenarioCmd.Flags().BoolVar(&saveScenario, "save", false, "archive each step's run")

	tuneCmd.Flags().StringArrayVar(&tuneKnobs, "knob", nil, "knob range name=min:max (repeatable)")
	tuneCmd.Flags().IntVar(&tunePoints, "points", 5, "grid points per knob")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "flaps", "run metric to optimize")
	tuneCmd.Flags().BoolVar(&tuneMaximize, "maximize", false, "maximize the metric instead of minimizing")
	tuneCmd.Flags().Int64Var(&seed, "seed", 0, "rng seed (0 = lab default)")
	tuneCmd.Flags().Float64Var(&rate, "rate", config.DefaultRate, "ticks per second")
	tuneCmd.Flags().Float64Var(&duration, "duration", config.DefaultDuration, "sim seconds per trial")
	tuneCmd.Flags().StringArrayVar(&knobSets, "set", nil, "fixed knob name=value (repeatable)")

	analyzeCmd.Flags().StringVar(&obsName, "obs", "", "observable for the spectrum (default: first)")
	analyzeCmd.Flags().IntVar(&plotWidth, "width", 72, "plot width in columns")

	serveCmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	serveCmd.Flags().StringVar(&dbPath, "db", config.DefaultDBPath, "sqlite archive path")
	serveCmd.Flags().StringVar(&logLevel, "log-level", "info", "minimum log level")
	serveCmd.Flags().StringVar(&webhookURL, "webhook", "", "POST session alerts to this URL")

	rootCmd.AddCommand(runCmd, listCmd, presetsCmd, liveCmd, guiCmd, plotCmd,
		exportCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, sweepCmd,
		montecarloCmd, scenarioCmd, tuneCmd, analyzeCmd, runsCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// resolveConfig layers defaults, preset, config file and changed CLI flags
// into one run configuration. The positional lab argument always wins.
func resolveConfig(cmd *cobra.Command, labName string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Lab = labName
	cfg.Knobs = map[string]float64{}

	if preset != "" {
		p := config.GetPreset(labName, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q for %s (available: %v)",
				preset, labName, config.ListPresets(labName))
		}
		overlayConfig(cfg, p)
	}
	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		overlayConfig(cfg, fileCfg)
	}
	cfg.Lab = labName

	if cmd.Flags().Changed("seed") {
		cfg.Seed = seed
	}
	if cmd.Flags().Changed("rate") {
		cfg.Rate = rate
	}
	if cmd.Flags().Changed("duration") {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("driver") {
		cfg.Driver = driverName
	}
	if cmd.Flags().Changed("observable") {
		cfg.DriverParams.Observable = driveObs
	}
	if cmd.Flags().Changed("drive-knob") {
		cfg.DriverParams.Knob = driveKnob
	}
	if cmd.Flags().Changed("kp") {
		cfg.DriverParams.Kp = kp
	}
	if cmd.Flags().Changed("ki") {
		cfg.DriverParams.Ki = ki
	}
	if cmd.Flags().Changed("kd") {
		cfg.DriverParams.Kd = kd
	}
	if cmd.Flags().Changed("target") {
		cfg.DriverParams.Target = target
	}
	if cmd.Flags().Changed("script") {
		cfg.DriverParams.Script = scriptFile
	}

	overrides, err := parseKnobSets(knobSets)
	if err != nil {
		return nil, err
	}
	for name, v := range overrides {
		cfg.Knobs[name] = v
	}
	return cfg, nil
}

// overlayConfig copies src's set fields onto dst. Zero values mean "not set"
// for everything except knobs, which union per key.
func overlayConfig(dst, src *config.Config) {
	if src.Seed != 0 {
		dst.Seed = src.Seed
	}
	if src.Rate > 0 {
		dst.Rate = src.Rate
	}
	if src.Duration > 0 {
		dst.Duration = src.Duration
	}
	if src.Driver != "" {
		dst.Driver = src.Driver
	}
	if src.DriverParams.Observable != "" || src.DriverParams.Script != "" {
		dst.DriverParams = src.DriverParams
	}
	if src.ArchiveDir != "" {
		dst.ArchiveDir = src.ArchiveDir
	}
	for name, v := range src.Knobs {
		dst.Knobs[name] = v
	}
}

func parseKnobSets(pairs []string) (map[string]float64, error) {
	knobs := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, val, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("bad knob override %q, want name=value", pair)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return nil, fmt.Errorf("bad knob override %q: %w", pair, err)
		}
		knobs[name] = v
	}
	return knobs, nil
}

func parseRange(spec string) (string, float64, float64, error) {
	name, rest, ok := strings.Cut(spec, "=")
	if !ok {
		return "", 0, 0, fmt.Errorf("bad range %q, want name=min:max", spec)
	}
	loStr, hiStr, ok := strings.Cut(rest, ":")
	if !ok {
		return "", 0, 0, fmt.Errorf("bad range %q, want name=min:max", spec)
	}
	lo, err := strconv.ParseFloat(loStr, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad range %q: %w", spec, err)
	}
	hi, err := strconv.ParseFloat(hiStr, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("bad range %q: %w", spec, err)
	}
	return name, lo, hi, nil
}

// buildSession makes a seeded session with knobs applied and the standard
// metric set attached: a peak and mean per observable, the phase flap count,
// and reaction/decay tallies.
func buildSession(lab labs.Lab, seedVal int64, knobs map[string]float64) (*core.Session, error) {
	sess, err := lab.NewSession(seedVal)
	if err != nil {
		return nil, err
	}
	for name, v := range knobs {
		if err := sess.SetKnob(name, v); err != nil {
			return nil, fmt.Errorf("knob %s: %w", name, err)
		}
	}
	for _, name := range sess.Snapshot().ObsNames {
		sess.AddMetric(metrics.NewPeak(name))
		sess.AddMetric(metrics.NewMean(name))
	}
	sess.AddMetric(metrics.NewFlaps())
	sess.AddMetric(metrics.NewEventCount(core.EventReaction))
	sess.AddMetric(metrics.NewEventCount(core.EventDecay))
	return sess, nil
}

func buildDriver(cfg *config.Config) (core.Driver, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "pid":
		p := cfg.DriverParams
		if p.Observable == "" || p.Knob == "" {
			return nil, fmt.Errorf("pid driver needs --observable and --drive-knob")
		}
		return control.NewPID(p.Observable, p.Knob, p.Kp, p.Ki, p.Kd, p.Target), nil
	case "script":
		if cfg.DriverParams.Script == "" {
			return nil, fmt.Errorf("script driver needs --script")
		}
		s, err := control.LoadScript(cfg.DriverParams.Script)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown driver %q (none, pid, script)", cfg.Driver)
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runLab(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, args[0])
	if err != nil {
		return err
	}

	lab, err := labs.Get(cfg.Lab)
	if err != nil {
		return err
	}
	if cfg.Seed == 0 {
		cfg.Seed = lab.Seed
	}

	sess, err := buildSession(lab, cfg.Seed, cfg.Knobs)
	if err != nil {
		return err
	}
	drv, err := buildDriver(cfg)
	if err != nil {
		return err
	}
	if drv != nil {
		sess.SetDriver(drv)
	}

	fmt.Printf("running %s (seed %d, %.0f ticks/s, %.0fs)\n", cfg.Lab, cfg.Seed, cfg.Rate, cfg.Duration)
	start := time.Now()

	result, err := sess.Run(context.Background(), core.RunConfig{
		Rate:           cfg.Rate,
		Ticks:          cfg.Ticks(),
		SampleEvery:    sampleEvery,
		StopAtTerminal: stopAtTerminal,
	})
	if err != nil {
		return err
	}

	printSummary(result, time.Since(start))

	if saveRun {
		st := storage.New(archiveDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg.Rate, cfg.Driver, result)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}

	if fieldSVG != "" {
		view := viz.NewFieldView(96, 36, result.Final.Bounds)
		view.Render(result.Final)
		svg := export.CanvasToSVG(view.Canvas, 4, string(viz.LabTheme(cfg.Lab).Primary))
		if err := os.WriteFile(fieldSVG, []byte(svg), 0o644); err != nil {
			return fmt.Errorf("write field svg: %w", err)
		}
		fmt.Printf("field svg: %s\n", fieldSVG)
	}
	return nil
}

func printSummary(result *core.Result, elapsed time.Duration) {
	fmt.Printf("completed in %v\n", elapsed.Round(time.Millisecond))
	fmt.Printf("ticks: %d  sim time: %.2fs\n", result.Ticks, result.SimTime)

	terminal := ""
	if result.Final.Terminal {
		terminal = " (terminal)"
	}
	fmt.Printf("final phase: %s%s\n", result.Final.Phase, terminal)

	fmt.Println("\nobservables:")
	for _, name := range result.Final.ObsNames {
		fmt.Printf("  %-16s %12.3f\n", name, result.Final.Obs(name))
	}

	if len(result.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range sortedKeys(result.Metrics) {
			fmt.Printf("  %-20s %12.3f\n", name, result.Metrics[name])
		}
	}

	if len(result.Faults) > 0 {
		fmt.Println("\nfaults:")
		for _, f := range result.Faults {
			fmt.Printf("  %v\n", f)
		}
	}
}

func listLabs(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "LAB\tTAGLINE\tPHASES\tKNOBS")
	for _, lab := range labs.All() {
		def := lab.Definition()
		phases := make([]string, len(def.Phases))
		for i, p := range def.Phases {
			phases[i] = p.Name
		}
		knobs := make([]string, len(def.Knobs))
		for i, k := range def.Knobs {
			knobs[i] = k.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			lab.Name, lab.Tagline, strings.Join(phases, ","), strings.Join(knobs, ","))
	}
	return w.Flush()
}

func listLabPresets(cmd *cobra.Command, args []string) error {
	labName := args[0]
	names := config.ListPresets(labName)
	if len(names) == 0 {
		fmt.Printf("no presets for lab: %s\n", labName)
		return nil
	}
	sort.Strings(names)

	fmt.Printf("presets for %s:\n", labName)
	for _, name := range names {
		p := config.GetPreset(labName, name)
		parts := make([]string, 0, len(p.Knobs))
		for _, k := range sortedKeys(p.Knobs) {
			parts = append(parts, fmt.Sprintf("%s=%g", k, p.Knobs[k]))
		}
		fmt.Printf("  %-12s %4.0fs @%3.0f/s  %s\n", name, p.Duration, p.Rate, strings.Join(parts, " "))
	}
	return nil
}

func runLiveTUI(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return viz.RunInteractive()
	}
	lab, err := labs.Get(args[0])
	if err != nil {
		return err
	}
	s := seed
	if s == 0 {
		s = lab.Seed
	}
	return viz.RunLive(lab, s)
}

func runGUI(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		gui.RunInteractive(withAudio)
		return nil
	}
	return gui.Run(args[0], seed, withAudio)
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(archiveDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if series.Len() == 0 {
		return fmt.Errorf("run %s has no samples", args[0])
	}

	fmt.Printf("run: %s\nlab: %s  seed: %d  phase: %s\nsamples: %d over %.1fs\n\n",
		meta.ID, meta.Lab, meta.Seed, meta.Phase, series.Len(), meta.SimTime)

	names := series.Names
	if obsName != "" {
		names = []string{obsName}
	}
	for _, name := range names {
		col := series.Column(name)
		if col == nil {
			return fmt.Errorf("unknown observable %q (have %v)", name, series.Names)
		}
		fmt.Println(viz.PlotSeries(name, col, plotWidth, plotHeight))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(archiveDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func exportCSVRun(cmd *cobra.Command, args []string) error {
	st := storage.New(archiveDir)
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	return export.ExportCSVStdout(series)
}

func exportJSONRun(cmd *cobra.Command, args []string) error {
	st := storage.New(archiveDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	events, err := st.LoadEvents(args[0])
	if err != nil {
		return err
	}

	result := &core.Result{
		Lab:     meta.Lab,
		Seed:    meta.Seed,
		Ticks:   meta.Ticks,
		SimTime: meta.SimTime,
		Final:   core.Snapshot{Lab: meta.Lab, Phase: meta.Phase, Terminal: meta.Terminal},
		Series:  series,
		Events:  events,
		Metrics: meta.Metrics,
	}
	return export.ExportJSONStdout(meta.Rate, meta.Driver, result)
}

func exportSVGRun(cmd *cobra.Command, args []string) error {
	st := storage.New(archiveDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	if series.Len() < 2 {
		return fmt.Errorf("run %s has too few samples to trace", args[0])
	}

	name := obsName
	if name == "" && len(series.Names) > 0 {
		name = series.Names[0]
	}
	col := series.Column(name)
	if col == nil {
		return fmt.Errorf("unknown observable %q (have %v)", name, series.Names)
	}

	stroke := string(viz.LabTheme(meta.Lab).Primary)
	_, err = fmt.Print(export.SeriesToSVG(series.Times, col, svgWidth, svgHeight, stroke))
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	if sweepKnob == "" {
		return fmt.Errorf("sweep needs --knob")
	}
	lab, err := labs.Get(args[0])
	if err != nil {
		return err
	}
	s := seed
	if s == 0 {
		s = lab.Seed
	}
	fixed, err := parseKnobSets(knobSets)
	if err != nil {
		return err
	}

	points, err := automation.RunSweep(context.Background(), &automation.Sweep{
		Lab:      args[0],
		Knob:     sweepKnob,
		Min:      sweepMin,
		Max:      sweepMax,
		Steps:    sweepSteps,
		Seed:     s,
		Rate:     rate,
		Duration: duration,
		Knobs:    fixed,
	})
	if err != nil {
		return err
	}

	maxTime := 0.0
	for _, p := range points {
		if p.SimTime > maxTime {
			maxTime = p.SimTime
		}
	}
	if maxTime <= 0 {
		maxTime = 1
	}

	fmt.Printf("\n%-10s %-14s %-9s %-10s\n", strings.ToUpper(sweepKnob), "PHASE", "TERMINAL", "SIM TIME")
	for _, p := range points {
		fmt.Printf("%-10.3f %-14s %-9v %-7.1fs  %s\n",
			p.Value, p.Phase, p.Terminal, p.SimTime, viz.ProgressBar(p.SimTime/maxTime, 16))
	}
	return nil
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	if _, err := labs.Get(args[0]); err != nil {
		return err
	}
	knobs, err := parseKnobSets(knobSets)
	if err != nil {
		return err
	}

	trials, err := automation.RunMonteCarlo(context.Background(), &automation.MonteCarlo{
		Lab:      args[0],
		Trials:   mcTrials,
		Seed:     mcSeed,
		Rate:     rate,
		Duration: duration,
		Knobs:    knobs,
	})
	if err != nil {
		return err
	}
	if len(trials) == 0 {
		return fmt.Errorf("no trials ran")
	}

	term, running := automation.TerminalCount(trials)
	fmt.Printf("\n%d trials: %d terminal, %d ran out the clock\n\n", len(trials), term, running)

	hist := automation.PhaseHistogram(trials)
	phases := make([]string, 0, len(hist))
	for p := range hist {
		phases = append(phases, p)
	}
	sort.Strings(phases)

	fmt.Println("final phases:")
	for _, phase := range phases {
		n := hist[phase]
		frac := float64(n) / float64(len(trials))
		fmt.Printf("  %-14s %4d  %s %3.0f%%\n", phase, n, viz.ProgressBar(frac, 24), frac*100)
	}

	times := make([]float64, len(trials))
	for i, t := range trials {
		times[i] = t.SimTime
	}
	stats := analysis.SeriesStats(times)
	fmt.Printf("\nsim time: mean %.1fs  std %.1fs  min %.1fs  max %.1fs\n",
		stats.Mean, stats.Std, stats.Min, stats.Max)
	return nil
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s\n", sc.Name)
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(context.Background(), sc)
	if err != nil {
		return err
	}

	var st *storage.Store
	if saveScenario {
		st = storage.New(archiveDir)
		if err := st.Init(); err != nil {
			return err
		}
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tLAB\tPHASE\tTERMINAL\tSIM TIME\tRUN ID")
	for i, res := range results {
		runID := "-"
		if st != nil {
			stepRate := sc.Steps[i].Rate
			if stepRate <= 0 {
				stepRate = 60
			}
			driver := "none"
			if len(sc.Steps[i].Drive) > 0 {
				driver = "script"
			}
			id, err := st.Save(stepRate, driver, res)
			if err != nil {
				return err
			}
			runID = id
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%v\t%.1fs\t%s\n",
			i+1, res.Lab, res.Final.Phase, res.Final.Terminal, res.SimTime, runID)
	}
	return w.Flush()
}

func tuneLab(cmd *cobra.Command, args []string) error {
	if len(tuneKnobs) == 0 {
		return fmt.Errorf("tune needs at least one --knob name=min:max")
	}
	lab, err := labs.Get(args[0])
	if err != nil {
		return err
	}
	s := seed
	if s == 0 {
		s = lab.Seed
	}
	fixed, err := parseKnobSets(knobSets)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tuneKnobs))
	ranges := make([][]float64, 0, len(tuneKnobs))
	for _, spec := range tuneKnobs {
		name, lo, hi, err := parseRange(spec)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, optim.Linspace(lo, hi, tunePoints))
	}

	total := 1
	for range names {
		total *= tunePoints
	}
	goal := "minimizing"
	if tuneMaximize {
		goal = "maximizing"
	}
	fmt.Printf("grid search over %s: %d trials, %s %s\n",
		strings.Join(names, ", "), total, goal, tuneMetric)

	done := 0
	runTrial := func(knobs map[string]float64) (*core.Result, error) {
		merged := make(map[string]float64, len(fixed)+len(knobs))
		for k, v := range fixed {
			merged[k] = v
		}
		for k, v := range knobs {
			merged[k] = v
		}
		sess, err := buildSession(lab, s, merged)
		if err != nil {
			return nil, err
		}
		res, err := sess.Run(context.Background(), core.RunConfig{
			Rate:           rate,
			Ticks:          int(duration * rate),
			SampleEvery:    10,
			StopAtTerminal: true,
		})
		done++
		fmt.Printf("\r%s %d/%d", viz.ProgressBar(float64(done)/float64(total), 24), done, total)
		return res, err
	}

	g := optim.NewGridSearch(names, ranges)
	best, score, err := g.Search(context.Background(), runTrial, tuneMetric, tuneMaximize)
	fmt.Println()
	if err != nil {
		return err
	}

	fmt.Printf("\nbest %s: %.4f\n", tuneMetric, score)
	for _, k := range sortedKeys(best) {
		fmt.Printf("  %-14s %.3f\n", k, best[k])
	}
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(archiveDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(args[0])
	if err != nil {
		return err
	}
	events, err := st.LoadEvents(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("analysis: %s\nlab: %s  driver: %s  %.1fs over %d ticks\n\n",
		meta.ID, meta.Lab, meta.Driver, meta.SimTime, meta.Ticks)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "OBSERVABLE\tMIN\tMAX\tMEAN\tSTD\tLAST")
	for _, name := range series.Names {
		s := analysis.SeriesStats(series.Column(name))
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.3f\n",
			name, s.Min, s.Max, s.Mean, s.Std, s.Last)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	specObs := obsName
	if specObs == "" && len(series.Names) > 0 {
		specObs = series.Names[0]
	}
	col := series.Column(specObs)
	if col == nil {
		return fmt.Errorf("unknown observable %q (have %v)", specObs, series.Names)
	}

	sampleRate := 0.0
	if n := series.Len(); n > 1 {
		span := series.Times[n-1] - series.Times[0]
		if span > 0 {
			sampleRate = float64(n-1) / span
		}
	}

	if spec := analysis.PowerSpectrum(col, sampleRate); spec != nil {
		fmt.Printf("\npower spectrum: %s\n", specObs)
		fmt.Println(viz.PlotSeries("power", spec.Power, plotWidth, 10))
		if period := spec.DominantPeriod(); period > 0 {
			fmt.Printf("dominant period: %.2fs (%.3f cycles/s)\n", period, 1/period)
		} else {
			fmt.Println("no dominant oscillation")
		}
	}

	res := &core.Result{
		SimTime: meta.SimTime,
		Final:   core.Snapshot{Phase: meta.Phase, Terminal: meta.Terminal},
		Events:  events,
	}
	r := analysis.PhaseResidence(res)
	if r.Total > 0 && len(r.Seconds) > 0 {
		phases := make([]string, 0, len(r.Seconds))
		for p := range r.Seconds {
			phases = append(phases, p)
		}
		sort.Strings(phases)

		fmt.Println("\nphase residence:")
		for _, phase := range phases {
			secs := r.Seconds[phase]
			frac := secs / r.Total
			fmt.Printf("  %-14s %7.1fs  %s %3.0f%%\n", phase, secs, viz.ProgressBar(frac, 20), frac*100)
		}
	}
	if len(r.Transitions) > 0 {
		froms := make([]string, 0, len(r.Transitions))
		for f := range r.Transitions {
			froms = append(froms, f)
		}
		sort.Strings(froms)

		fmt.Println("\ntransitions:")
		for _, from := range froms {
			tos := make([]string, 0, len(r.Transitions[from]))
			for t := range r.Transitions[from] {
				tos = append(tos, t)
			}
			sort.Strings(tos)
			for _, to := range tos {
				fmt.Printf("  %s -> %s: %d\n", from, to, r.Transitions[from][to])
			}
		}
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(archiveDir)
	runs, err := st.List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLAB\tTIME\tPHASE\tTERMINAL\tSIM TIME\tTICKS\tDRIVER")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\t%.1fs\t%d\t%s\n",
			run.ID, run.Lab, run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Phase, run.Terminal, run.SimTime, run.Ticks, run.Driver)
	}
	return w.Flush()
}

func serve(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if v := os.Getenv("PHYSLAB_ADDR"); v != "" && !cmd.Flags().Changed("addr") {
		addr = v
	}
	if v := os.Getenv("PHYSLAB_DB"); v != "" && !cmd.Flags().Changed("db") {
		dbPath = v
	}
	if v := os.Getenv("PHYSLAB_WEBHOOK"); v != "" && !cmd.Flags().Changed("webhook") {
		webhookURL = v
	}

	gin.SetMode(gin.ReleaseMode)

	srv, err := server.New(server.Options{
		Addr:       addr,
		DBPath:     dbPath,
		LogLevel:   logLevel,
		WebhookURL: webhookURL,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
