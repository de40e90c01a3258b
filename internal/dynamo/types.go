package dynamo

import (
	"fmt"
	"time"

	"github.com/san-kum/quadsim/internal/force"
	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/quadtree"
)

// Metric accumulates a scalar over the steps of a run.
type Metric interface {
	Name() string
	Observe(pts []geom.Point, st StepStats)
	Value() float64
	Reset()
}

// Observer receives the surviving points after every step. The slice is
// owned by the simulator and must not be retained.
type Observer interface {
	OnStep(pts []geom.Point, st StepStats) error
}

type ObserverFunc func(pts []geom.Point, st StepStats) error

func (f ObserverFunc) OnStep(pts []geom.Point, st StepStats) error { return f(pts, st) }

// Config is fixed for the lifetime of a Simulator.
type Config struct {
	Domain  geom.Bounds
	Tree    quadtree.Config
	Force   force.Config
	Dt      float64
	Steps   int
	Workers int
	// ValidateState aborts a step whose result holds NaN or Inf.
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Domain:        geom.NewBounds(-1, -1, 2, 2),
		Tree:          quadtree.DefaultConfig(),
		Force:         force.DefaultConfig(),
		Dt:            0.01,
		Steps:         200,
		Workers:       4,
		ValidateState: true,
	}
}

// StepStats describes one completed step.
type StepStats struct {
	Step     int
	Input    int
	Survived int
	Dropped  int
	Tree     quadtree.Stats
	Near     int
	Far      int
	Opened   int
	Elapsed  time.Duration
}

// InteractionsPerPoint is the mean number of near and far terms summed
// for each surviving point.
func (s StepStats) InteractionsPerPoint() float64 {
	if s.Survived == 0 {
		return 0
	}
	return float64(s.Near+s.Far) / float64(s.Survived)
}

type Result struct {
	Points     []geom.Point
	History    []StepStats
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

type SimError struct {
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}
