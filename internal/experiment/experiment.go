package experiment

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/charmbracelet/log"

	"github.com/san-kum/quadsim/internal/config"
	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/initial"
	"github.com/san-kum/quadsim/internal/metrics"
)

type Experiment struct {
	cfg        *config.Config
	simulator  *dynamo.Simulator
	initial    []geom.Point
	randSource *rand.Rand
}

func New(cfg *config.Config) *Experiment {
	return &Experiment{
		cfg:        cfg,
		randSource: rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Setup builds the simulator, attaches the default metrics and generates
// the initial points.
func (e *Experiment) Setup(registry *initial.Registry, logger *log.Logger) error {
	if err := e.cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	simCfg, err := e.cfg.Sim()
	if err != nil {
		return err
	}

	s, err := dynamo.New(simCfg, logger)
	if err != nil {
		return err
	}
	for _, m := range metrics.Default() {
		s.AddMetric(m)
	}

	provider, err := registry.Get(e.cfg.Distribution)
	if err != nil {
		return err
	}

	e.simulator = s
	e.initial = provider.Generate(e.randSource, e.cfg.Points, simCfg.Domain)
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.initial)
}

// Initial returns a copy of the generated starting points.
func (e *Experiment) Initial() []geom.Point {
	return append([]geom.Point(nil), e.initial...)
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *dynamo.Simulator {
	return e.simulator
}
