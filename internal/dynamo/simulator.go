package dynamo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/quadsim/internal/force"
	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/quadtree"
)

// points per goroutine below which evaluation stays on one goroutine
const minChunk = 256

type Simulator struct {
	cfg       Config
	eval      *force.Evaluator
	pool      *quadtree.PointPool
	metrics   []Metric
	observers []Observer
	logger    *log.Logger
	step      int
}

// New validates cfg and returns a simulator. logger may be nil.
func New(cfg Config, logger *log.Logger) (*Simulator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Simulator{
		cfg:       cfg,
		eval:      force.New(cfg.Force),
		pool:      quadtree.NewPointPool(cfg.Tree.Capacity),
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		logger:    logger,
	}, nil
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() Config             { return s.cfg }
func (s *Simulator) Evaluator() *force.Evaluator { return s.eval }

func validateConfig(cfg Config) error {
	if cfg.Domain.Empty() {
		return fmt.Errorf("%w: domain must have positive width and height, got %gx%g", ErrInvalidConfig, cfg.Domain.W, cfg.Domain.H)
	}
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", ErrInvalidConfig, cfg.Steps)
	}
	if err := cfg.Tree.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Force.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// BuildTree inserts pts into a fresh tree over the simulation domain. The
// caller owns the tree and should Release it.
func (s *Simulator) BuildTree(pts []geom.Point) (*quadtree.Tree, int) {
	tree := quadtree.New(s.cfg.Domain, s.cfg.Tree, s.pool)
	return tree, tree.InsertAll(pts)
}

// Step advances pts by one tick: build the tree, evaluate every point
// against it, collect the survivors out of the leaves, then move them.
// Points outside the domain are dropped. pts is never modified, so on
// error the caller still holds the previous state.
func (s *Simulator) Step(ctx context.Context, pts []geom.Point) ([]geom.Point, StepStats, error) {
	start := time.Now()
	st := StepStats{Step: s.step, Input: len(pts)}

	tree, inserted := s.BuildTree(pts)
	defer tree.Release()

	next := tree.Flatten(make([]geom.Point, 0, inserted))
	st.Survived = len(next)
	st.Dropped = len(pts) - len(next)
	st.Tree = tree.Stats()

	dt := s.cfg.Dt
	var near, far, opened atomic.Int64
	err := ParallelFor(ctx, len(next), minChunk, s.cfg.Workers, func(lo, hi int) error {
		var sn, sf, so int
		for i := lo; i < hi; i++ {
			smp := s.eval.Apply(&next[i], tree.Root, dt)
			sn += smp.Near
			sf += smp.Far
			so += smp.Opened
		}
		near.Add(int64(sn))
		far.Add(int64(sf))
		opened.Add(int64(so))
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", ErrContextCanceled, err)
		}
		return pts, st, &SimulationError{Step: s.step, Points: len(pts), Wrapped: err}
	}
	st.Near, st.Far, st.Opened = int(near.Load()), int(far.Load()), int(opened.Load())

	for i := range next {
		next[i].X += next[i].VX * dt
		next[i].Y += next[i].VY * dt
	}

	if s.cfg.ValidateState {
		for _, p := range next {
			if !p.IsValid() {
				err := SimError{Step: s.step, Message: fmt.Sprintf("point %d: %v", p.ID, ErrInvalidState)}
				return pts, st, &SimulationError{Step: s.step, Points: len(pts), Wrapped: errors.Join(ErrInvalidState, err)}
			}
		}
	}

	st.Elapsed = time.Since(start)
	s.step++

	s.logger.Debug("step",
		"step", st.Step,
		"survived", st.Survived,
		"dropped", st.Dropped,
		"depth", st.Tree.MaxDepth,
		"per_point", fmt.Sprintf("%.1f", st.InteractionsPerPoint()),
		"elapsed", st.Elapsed,
	)
	return next, st, nil
}

// Run steps pts cfg.Steps times, feeding metrics and observers after each
// step. It stops early, without error, once every point has left the
// domain.
func (s *Simulator) Run(ctx context.Context, pts []geom.Point) (*Result, error) {
	result := &Result{
		History: make([]StepStats, 0, s.cfg.Steps),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	err := s.RunWithCallback(ctx, pts, func(next []geom.Point, st StepStats) bool {
		result.Points = next
		result.History = append(result.History, st)
		result.StepsTaken++
		return true
	})
	if result.Points == nil {
		result.Points = append([]geom.Point(nil), pts...)
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if err != nil {
		result.Errors = append(result.Errors, err)
		if errors.Is(err, ErrEmptyDomain) {
			s.logger.Info("all points left the domain", "steps", result.StepsTaken)
			return result, nil
		}
		return result, err
	}
	return result, nil
}

// RunWithCallback is Run without result collection. callback sees the
// survivors of each step; returning false stops the run.
func (s *Simulator) RunWithCallback(ctx context.Context, pts []geom.Point, callback func([]geom.Point, StepStats) bool) error {
	for i := 0; i < s.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err())
		default:
		}

		next, st, err := s.Step(ctx, pts)
		if err != nil {
			return err
		}
		pts = next

		for _, m := range s.metrics {
			m.Observe(pts, st)
		}
		for _, obs := range s.observers {
			if err := obs.OnStep(pts, st); err != nil {
				return &SimulationError{Step: st.Step, Points: len(pts), Wrapped: fmt.Errorf("observer: %w", err)}
			}
		}

		if !callback(pts, st) {
			return nil
		}
		if len(pts) == 0 {
			return ErrEmptyDomain
		}
	}
	return nil
}
