package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/experiment"
	"github.com/san-kum/quadsim/internal/initial"
	"github.com/san-kum/quadsim/internal/optim"
	"github.com/san-kum/quadsim/internal/storage"
)

// Scenario is a scripted batch of runs.
type Scenario struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description"`
	Runs        []ScenarioRun `yaml:"runs"`

	dir string
}

// ScenarioRun builds its config from an optional preset, then an optional
// config file (relative to the scenario file), then Params and Seed.
type ScenarioRun struct {
	Preset string             `yaml:"preset"`
	Config string             `yaml:"config"`
	Params map[string]float64 `yaml:"params"`
	Seed   int64              `yaml:"seed"`
	SaveAs string             `yaml:"save_as"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Runs) == 0 {
		return nil, fmt.Errorf("%s: scenario has no runs", path)
	}
	scenario.dir = filepath.Dir(path)

	return &scenario, nil
}

func (r ScenarioRun) Resolve(baseDir string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if r.Preset != "" {
		if cfg = config.GetPreset(r.Preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
	}
	if r.Config != "" {
		path := r.Config
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		if err := config.LoadInto(path, cfg); err != nil {
			return nil, err
		}
	}
	for k, v := range r.Params {
		if err := cfg.SetParam(k, v); err != nil {
			return nil, err
		}
	}
	if r.Seed != 0 {
		cfg.Seed = r.Seed
	}
	return cfg, cfg.Validate()
}

func (r ScenarioRun) name(i int) string {
	switch {
	case r.SaveAs != "":
		return r.SaveAs
	case r.Preset != "":
		return r.Preset
	default:
		return fmt.Sprintf("run%d", i+1)
	}
}

// Runner executes batches. Store is optional; when set, every scenario
// run is persisted.
type Runner struct {
	Registry *initial.Registry
	Store    *storage.Store
	Logger   *log.Logger
}

func NewRunner(store *storage.Store, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Registry: initial.NewRegistry(), Store: store, Logger: logger}
}

type Outcome struct {
	Name    string
	RunID   string
	Result  *dynamo.Result
	Elapsed time.Duration
}

func (r *Runner) run(ctx context.Context, cfg *config.Config) (*dynamo.Result, time.Duration, error) {
	exp := experiment.New(cfg)
	if err := exp.Setup(r.Registry, r.Logger); err != nil {
		return nil, 0, err
	}
	start := time.Now()
	result, err := exp.Run(ctx)
	return result, time.Since(start), err
}

// RunScenario executes all runs in order and stops at the first failure.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) ([]Outcome, error) {
	outcomes := make([]Outcome, 0, len(scenario.Runs))

	for i, run := range scenario.Runs {
		name := run.name(i)
		r.Logger.Info("scenario run", "n", i+1, "of", len(scenario.Runs), "name", name)

		cfg, err := run.Resolve(scenario.dir)
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}

		result, elapsed, err := r.run(ctx, cfg)
		if err != nil {
			return outcomes, fmt.Errorf("run %d: %w", i+1, err)
		}

		out := Outcome{Name: name, Result: result, Elapsed: elapsed}
		if r.Store != nil {
			if out.RunID, err = r.Store.Save(name, cfg, result, elapsed); err != nil {
				return outcomes, fmt.Errorf("run %d save: %w", i+1, err)
			}
		}
		outcomes = append(outcomes, out)
	}

	return outcomes, nil
}

// Candidate adapts the runner to a grid search: each candidate is base
// with params applied.
func (r *Runner) Candidate(base *config.Config) optim.Evaluate {
	return func(ctx context.Context, params map[string]float64) (*dynamo.Result, error) {
		cfg := base.Clone()
		for k, v := range params {
			if err := cfg.SetParam(k, v); err != nil {
				return nil, err
			}
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		result, _, err := r.run(ctx, cfg)
		if err != nil {
			return nil, err
		}
		r.Logger.Debug("candidate", "params", params, "survivors", len(result.Points))
		return result, nil
	}
}

// ParameterSweep varies one config key over Count evenly spaced values.
type ParameterSweep struct {
	Base  *config.Config
	Param string
	Min   float64
	Max   float64
	Count int
}

func (s *ParameterSweep) Values() []float64 {
	if s.Count <= 1 {
		return []float64{s.Min}
	}
	step := (s.Max - s.Min) / float64(s.Count-1)
	vals := make([]float64, s.Count)
	for i := range vals {
		vals[i] = s.Min + float64(i)*step
	}
	return vals
}

type SweepResult struct {
	Value     float64
	Survivors int
	Elapsed   time.Duration
	Metrics   map[string]float64
}

func (r *Runner) RunSweep(ctx context.Context, sweep *ParameterSweep) ([]SweepResult, error) {
	vals := sweep.Values()
	results := make([]SweepResult, 0, len(vals))

	for i, v := range vals {
		cfg := sweep.Base.Clone()
		if err := cfg.SetParam(sweep.Param, v); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}

		result, elapsed, err := r.run(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, v, err)
		}

		results = append(results, SweepResult{
			Value:     v,
			Survivors: len(result.Points),
			Elapsed:   elapsed,
			Metrics:   result.Metrics,
		})
		r.Logger.Info("sweep", "n", i+1, "of", len(vals), sweep.Param, v, "survivors", len(result.Points))
	}

	return results, nil
}

// SeedTrials reruns Base with Trials consecutive seeds starting at Seed.
type SeedTrials struct {
	Base   *config.Config
	Trials int
	Seed   int64
}

type TrialResult struct {
	Seed      int64
	Survivors int
	Metrics   map[string]float64
}

func (r *Runner) RunTrials(ctx context.Context, t *SeedTrials) ([]TrialResult, error) {
	results := make([]TrialResult, 0, t.Trials)

	for i := 0; i < t.Trials; i++ {
		cfg := t.Base.Clone()
		cfg.Seed = t.Seed + int64(i)

		result, _, err := r.run(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("seed %d: %w", cfg.Seed, err)
		}
		results = append(results, TrialResult{Seed: cfg.Seed, Survivors: len(result.Points), Metrics: result.Metrics})

		if (i+1)%10 == 0 {
			r.Logger.Info("trials", "done", i+1, "of", t.Trials)
		}
	}

	return results, nil
}

// TrialStats returns the mean and population standard deviation of the
// survivor counts.
func TrialStats(results []TrialResult) (mean, stddev float64) {
	if len(results) == 0 {
		return 0, 0
	}
	for _, r := range results {
		mean += float64(r.Survivors)
	}
	mean /= float64(len(results))
	for _, r := range results {
		d := float64(r.Survivors) - mean
		stddev += d * d
	}
	return mean, math.Sqrt(stddev / float64(len(results)))
}
