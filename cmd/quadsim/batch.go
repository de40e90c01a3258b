package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/quadsim/internal/automation"
	"github.com/san-kum/quadsim/internal/optim"
	"github.com/san-kum/quadsim/internal/storage"
)

var (
	sweepParam string
	sweepMin   float64
	sweepMax   float64
	sweepCount int
	trials     int
	tuneMetric string
	tuneGrid   []string
)

func batchCommands() []*cobra.Command {
	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run and store every run in a scenario file",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "vary one parameter over a range",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "theta", "parameter to sweep")
	sweepCmd.Flags().Float64Var(&sweepMin, "min", 0.2, "first value")
	sweepCmd.Flags().Float64Var(&sweepMax, "max", 1.0, "last value")
	sweepCmd.Flags().IntVar(&sweepCount, "count", 5, "number of values")

	trialsCmd := &cobra.Command{
		Use:   "trials",
		Short: "repeat a run over consecutive seeds",
		Args:  cobra.NoArgs,
		RunE:  runTrials,
	}
	addSimFlags(trialsCmd)
	trialsCmd.Flags().IntVar(&trials, "trials", 10, "number of seeds")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search parameters minimizing a metric",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "step_ms", "metric to minimize")
	tuneCmd.Flags().StringArrayVar(&tuneGrid, "grid", []string{"theta=0.3,0.5,0.8", "capacity=4,8,16"}, "name=v1,v2,... (repeatable)")

	return []*cobra.Command{batchCmd, sweepCmd, trialsCmd, tuneCmd}
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runBatch(cmd *cobra.Command, args []string) error {
	scenario, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := interruptible()
	defer stop()

	outcomes, err := automation.NewRunner(st, logger).RunScenario(ctx, scenario)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tRUN ID\tSURVIVORS\tSTEPS\tELAPSED")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\n", o.Name, o.RunID, len(o.Result.Points), o.Result.StepsTaken, o.Elapsed.Round(time.Millisecond))
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := interruptible()
	defer stop()

	sweep := &automation.ParameterSweep{Base: cfg, Param: sweepParam, Min: sweepMin, Max: sweepMax, Count: sweepCount}
	results, err := automation.NewRunner(nil, logger).RunSweep(ctx, sweep)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSURVIVORS\tINTER/PT\tSTEP MS\tENERGY GROWTH\n", strings.ToUpper(sweepParam))
	for _, r := range results {
		fmt.Fprintf(w, "%.4g\t%d\t%.1f\t%.3f\t%.3g\n",
			r.Value, r.Survivors,
			r.Metrics["interactions_per_point"],
			r.Metrics["step_ms"],
			r.Metrics["energy_growth"],
		)
	}
	return w.Flush()
}

func runTrials(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	ctx, stop := interruptible()
	defer stop()

	results, err := automation.NewRunner(nil, logger).RunTrials(ctx, &automation.SeedTrials{Base: cfg, Trials: trials, Seed: cfg.Seed})
	if err != nil {
		return err
	}

	mean, std := automation.TrialStats(results)
	fmt.Printf("trials: %d\n", len(results))
	fmt.Printf("survivors: %.1f ± %.1f of %d\n", mean, std, cfg.Points)
	return nil
}

func parseGrid(specs []string) ([]string, [][]float64, error) {
	names := make([]string, 0, len(specs))
	ranges := make([][]float64, 0, len(specs))
	for _, spec := range specs {
		name, list, ok := strings.Cut(spec, "=")
		if !ok || name == "" || list == "" {
			return nil, nil, fmt.Errorf("bad grid %q, want name=v1,v2", spec)
		}
		var vals []float64
		for _, f := range strings.Split(list, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("grid %s: %w", name, err)
			}
			vals = append(vals, v)
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}
	return names, ranges, nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	names, ranges, err := parseGrid(tuneGrid)
	if err != nil {
		return err
	}

	ctx, stop := interruptible()
	defer stop()

	gs := optim.NewGridSearch(names, ranges)
	fmt.Printf("searching %d combinations for lowest %s...\n", gs.Size(), tuneMetric)

	best, val, tried, err := gs.Search(ctx, automation.NewRunner(nil, logger).Candidate(cfg), tuneMetric)
	for _, t := range tried {
		if t.Err != nil {
			logger.Warn("candidate failed", "params", t.Params, "err", t.Err)
		}
	}
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("best %s: %.6g\n", tuneMetric, val)
	for _, k := range keys {
		fmt.Printf("  %s: %g\n", k, best[k])
	}
	return nil
}
