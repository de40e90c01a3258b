package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/log"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/experiment"
	"github.com/san-kum/quadsim/internal/export"
	"github.com/san-kum/quadsim/internal/initial"
	"github.com/san-kum/quadsim/internal/render"
	"github.com/san-kum/quadsim/internal/storage"
	"github.com/san-kum/quadsim/internal/viz"
)

var (
	dataDir  string
	logLevel string
	logger   *log.Logger

	configFile   string
	preset       string
	points       int
	steps        int
	theta        float64
	capacity     int
	dt           float64
	gravity      float64
	workers      int
	seed         int64
	distribution string
	useCOM       bool

	snapEvery  int
	snapFormat string
	snapDir    string
	snapSize   int

	svgOut    string
	pointsCSV bool
	outFile   string
	frameSize int
	benchN    int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "quadsim",
		Short: "barnes-hut quadtree n-body simulator",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logger = log.NewWithOptions(os.Stderr, log.Options{
				Level:           level,
				ReportTimestamp: true,
				Prefix:          "quadsim",
			})
			return nil
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".quadsim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation and store the result",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().IntVar(&snapEvery, "snapshot-every", 0, "write a frame every n steps (0 disables)")
	runCmd.Flags().StringVar(&snapFormat, "snapshot-format", "ppm", "frame output: ppm, gif or video")
	runCmd.Flags().StringVar(&snapDir, "snapshot-dir", "frames", "frame output directory")
	runCmd.Flags().IntVar(&snapSize, "snapshot-size", config.DefaultFrameSize, "frame size in pixels")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot per-step statistics of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgOut, "svg", "", "also write the survivors curve as svg")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVar(&svgOut, "svg", "", "write the final snapshot as svg instead")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export per-step statistics to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().BoolVar(&pointsCSV, "points", false, "export the final snapshot instead")

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render the final snapshot of a run (.ppm, .png, .gif, .svg or .txt)",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().StringVarP(&outFile, "out", "o", "snapshot.png", "output file")
	renderCmd.Flags().IntVar(&frameSize, "size", config.DefaultFrameSize, "frame size in pixels")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "compare barnes-hut against direct summation",
		Args:  cobra.NoArgs,
		RunE:  benchForces,
	}
	addSimFlags(benchCmd)
	benchCmd.Flags().IntVar(&benchN, "n", 2000, "number of points")

	depthCmd := &cobra.Command{
		Use:   "depth",
		Short: "build one tree and print its statistics",
		Args:  cobra.NoArgs,
		RunE:  treeDepth,
	}
	addSimFlags(depthCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPOINTS\tDIST\tTHETA\tSTEPS")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%s\t%.2f\t%d\n", name, p.Points, p.Distribution, p.Theta, p.Steps)
			}
			return w.Flush()
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, exportCmd, exportCSVCmd, renderCmd, benchCmd, depthCmd, presetsCmd)
	rootCmd.AddCommand(batchCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	def := config.DefaultConfig()
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&points, "points", def.Points, "number of points")
	cmd.Flags().IntVar(&steps, "steps", def.Steps, "number of steps")
	cmd.Flags().Float64Var(&theta, "theta", def.Theta, "opening angle")
	cmd.Flags().IntVar(&capacity, "capacity", def.Capacity, "points per leaf before subdivision")
	cmd.Flags().Float64Var(&dt, "dt", def.Dt, "timestep")
	cmd.Flags().Float64Var(&gravity, "g", def.G, "gravitational constant")
	cmd.Flags().IntVar(&workers, "workers", def.Workers, "parallel force workers")
	cmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	cmd.Flags().StringVar(&distribution, "dist", def.Distribution, "initial distribution")
	cmd.Flags().BoolVar(&useCOM, "com", def.UseCenterOfMass, "anchor far field at center of mass")
}

// loadConfig resolves preset, then config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		if err := config.LoadInto(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("points") {
		cfg.Points = points
	}
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("theta") {
		cfg.Theta = theta
	}
	if flags.Changed("capacity") {
		cfg.Capacity = capacity
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("g") {
		cfg.G = gravity
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("dist") {
		cfg.Distribution = distribution
	}
	if flags.Changed("com") {
		cfg.UseCenterOfMass = useCOM
	}
	if flags.Changed("seed") || cfg.Seed == 0 {
		cfg.Seed = seed
	}
	if flags.Lookup("snapshot-every") != nil {
		if flags.Changed("snapshot-every") {
			cfg.Snapshot.Every = snapEvery
		}
		if flags.Changed("snapshot-format") {
			cfg.Snapshot.Format = snapFormat
		}
		if flags.Changed("snapshot-dir") {
			cfg.Snapshot.Dir = snapDir
		}
		if flags.Changed("snapshot-size") {
			cfg.Snapshot.Size = snapSize
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupExperiment(cfg *config.Config) (*experiment.Experiment, error) {
	exp := experiment.New(cfg)
	if err := exp.Setup(initial.NewRegistry(), logger); err != nil {
		return nil, err
	}
	return exp, nil
}

func runName(cfg *config.Config) string {
	if preset != "" {
		return preset
	}
	return cfg.Distribution
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := setupExperiment(cfg)
	if err != nil {
		return err
	}

	var snap *render.Snapshot
	if cfg.Snapshot.Every > 0 {
		enc, err := render.NewEncoder(cfg.Snapshot.Format, cfg.Snapshot.Dir, logger)
		if err != nil {
			return err
		}
		snap = render.NewSnapshot(enc, cfg.Bounds(), cfg.Snapshot.Size, cfg.Snapshot.Every)
		exp.GetSimulator().AddObserver(snap)
	}

	ctx, stop := interruptible()
	defer stop()

	fmt.Printf("running %d points for %d steps (theta=%.2f, capacity=%d)...\n", cfg.Points, cfg.Steps, cfg.Theta, cfg.Capacity)
	start := time.Now()

	result, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if snap != nil {
		if err := snap.Close(); err != nil {
			return fmt.Errorf("write frames: %w", err)
		}
		logger.Info("frames written", "dir", cfg.Snapshot.Dir, "format", cfg.Snapshot.Format, "frames", snap.Frames())
	}

	runID, err := st.Save(runName(cfg), cfg, result, elapsed)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("survivors: %d / %d\n", len(result.Points), cfg.Points)
	fmt.Println("\nmetrics:")

	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}

	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := setupExperiment(cfg)
	if err != nil {
		return err
	}
	return viz.Run(context.Background(), exp.GetSimulator(), exp.Initial(), runName(cfg))
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tPOINTS\tSURVIVORS\tSTEPS\tTHETA\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%.2f\t%v\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Points,
			run.Survivors,
			run.Steps,
			run.Theta,
			run.Elapsed.Round(time.Millisecond),
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	records, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("points: %d\n", meta.Points)
	fmt.Printf("steps: %d\n\n", len(records))

	series := []struct {
		caption string
		value   func(storage.StepRecord) float64
	}{
		{"survivors", func(r storage.StepRecord) float64 { return float64(r.Survived) }},
		{"tree depth", func(r storage.StepRecord) float64 { return float64(r.Depth) }},
		{"interactions per point", func(r storage.StepRecord) float64 {
			if r.Survived == 0 {
				return 0
			}
			return float64(r.Near+r.Far) / float64(r.Survived)
		}},
		{"step time (ms)", func(r storage.StepRecord) float64 { return r.ElapsedMs }},
	}

	for _, s := range series {
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = s.value(r)
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(s.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if svgOut != "" {
		data := make([]float64, len(records))
		for i, r := range records {
			data[i] = float64(r.Survived)
		}
		if err := os.WriteFile(svgOut, []byte(export.SeriesToSVG(data, 800, 300, "#00ccff")), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgOut)
	}

	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	if svgOut == "" {
		return st.ExportJSON(os.Stdout, runID)
	}

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	pts, err := st.LoadSnapshot(runID)
	if err != nil {
		return err
	}
	return os.WriteFile(svgOut, []byte(export.PointsToSVG(pts, cfg.Bounds(), 800, "#e0d8ff")), 0644)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	if pointsCSV {
		pts, err := st.LoadSnapshot(runID)
		if err != nil {
			return err
		}
		return storage.EncodeSnapshot(os.Stdout, pts)
	}

	records, err := st.LoadSteps(runID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return fmt.Errorf("no data to export")
	}

	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	if err := w.Write([]string{"step", "survived", "dropped", "depth", "nodes", "near", "far", "elapsed_ms"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.Step),
			strconv.Itoa(r.Survived),
			strconv.Itoa(r.Dropped),
			strconv.Itoa(r.Depth),
			strconv.Itoa(r.Nodes),
			strconv.Itoa(r.Near),
			strconv.Itoa(r.Far),
			strconv.FormatFloat(r.ElapsedMs, 'f', 3, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}

func renderRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)

	cfg, err := st.LoadConfig(runID)
	if err != nil {
		return err
	}
	pts, err := st.LoadSnapshot(runID)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(outFile)); ext {
	case ".svg":
		err = os.WriteFile(outFile, []byte(export.PointsToSVG(pts, cfg.Bounds(), frameSize, "#e0d8ff")), 0644)
	case ".txt":
		c := viz.NewCanvas(frameSize/8, frameSize/16)
		c.Plot(pts, cfg.Bounds())
		err = os.WriteFile(outFile, []byte(c.String()), 0644)
	case ".ppm", ".png", ".gif":
		err = render.SaveFrame(outFile, render.Rasterize(pts, cfg.Bounds(), frameSize))
	default:
		return fmt.Errorf("unsupported output format: %s", ext)
	}
	if err != nil {
		return err
	}

	fmt.Printf("rendered %d points to %s\n", len(pts), outFile)
	return nil
}

func treeDepth(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp, err := setupExperiment(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	tree, dropped := exp.GetSimulator().BuildTree(exp.Initial())
	built := time.Since(start)
	defer tree.Release()

	stats := tree.Stats()
	fmt.Printf("points: %d (dropped %d)\n", stats.Mass, dropped)
	fmt.Printf("build: %v\n", built)
	fmt.Printf("Max depth: %d\n", stats.MaxDepth)
	fmt.Printf("nodes: %d (branches %d, leaves %d, empty %d)\n", stats.Nodes, stats.Branches, stats.Leaves, stats.EmptyLeaves)
	fmt.Printf("max leaf occupancy: %d / %d\n", stats.MaxOccupancy, cfg.Capacity)
	return nil
}

// simFromFlags is used by commands that need the engine config only.
func simFromFlags(cmd *cobra.Command) (*config.Config, dynamo.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, dynamo.Config{}, err
	}
	sc, err := cfg.Sim()
	return cfg, sc, err
}
