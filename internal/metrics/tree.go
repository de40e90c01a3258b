package metrics

import (
	"math"
	"time"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/geom"
)

// Survivors is the point count after the last step.
type Survivors struct {
	count int
}

func NewSurvivors() *Survivors { return &Survivors{} }

func (s *Survivors) Name() string { return "survivors" }
func (s *Survivors) Observe(pts []geom.Point, st dynamo.StepStats) {
	s.count = st.Survived
}
func (s *Survivors) Value() float64 { return float64(s.count) }
func (s *Survivors) Reset()         { s.count = 0 }

// Dropped totals points that left the domain over the run.
type Dropped struct {
	total int
}

func NewDropped() *Dropped { return &Dropped{} }

func (d *Dropped) Name() string { return "dropped" }
func (d *Dropped) Observe(pts []geom.Point, st dynamo.StepStats) {
	d.total += st.Dropped
}
func (d *Dropped) Value() float64 { return float64(d.total) }
func (d *Dropped) Reset()         { d.total = 0 }

// TreeDepth is the deepest tree built during the run.
type TreeDepth struct {
	depth int
}

func NewTreeDepth() *TreeDepth { return &TreeDepth{} }

func (d *TreeDepth) Name() string { return "max_depth" }
func (d *TreeDepth) Observe(pts []geom.Point, st dynamo.StepStats) {
	d.depth = max(d.depth, st.Tree.MaxDepth)
}
func (d *TreeDepth) Value() float64 { return float64(d.depth) }
func (d *TreeDepth) Reset()         { d.depth = 0 }

// Interactions is the mean number of force terms per point per step.
type Interactions struct {
	sum     float64
	samples int
}

func NewInteractions() *Interactions { return &Interactions{} }

func (i *Interactions) Name() string { return "interactions_per_point" }
func (i *Interactions) Observe(pts []geom.Point, st dynamo.StepStats) {
	if st.Survived == 0 {
		return
	}
	i.sum += st.InteractionsPerPoint()
	i.samples++
}
func (i *Interactions) Value() float64 {
	if i.samples == 0 {
		return 0
	}
	return i.sum / float64(i.samples)
}
func (i *Interactions) Reset() {
	i.sum = 0
	i.samples = 0
}

// MaxSpeed is the fastest point seen in any step.
type MaxSpeed struct {
	value float64
}

func NewMaxSpeed() *MaxSpeed { return &MaxSpeed{} }

func (m *MaxSpeed) Name() string { return "max_speed" }
func (m *MaxSpeed) Observe(pts []geom.Point, st dynamo.StepStats) {
	for _, p := range pts {
		m.value = math.Max(m.value, p.Speed())
	}
}
func (m *MaxSpeed) Value() float64 { return m.value }
func (m *MaxSpeed) Reset()         { m.value = 0 }

// StepTime is the mean wall time of a step in milliseconds.
type StepTime struct {
	total   time.Duration
	samples int
}

func NewStepTime() *StepTime { return &StepTime{} }

func (s *StepTime) Name() string { return "step_ms" }
func (s *StepTime) Observe(pts []geom.Point, st dynamo.StepStats) {
	s.total += st.Elapsed
	s.samples++
}
func (s *StepTime) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.total.Microseconds()) / 1000 / float64(s.samples)
}
func (s *StepTime) Reset() {
	s.total = 0
	s.samples = 0
}

// Default is the metric set recorded for every stored run.
func Default() []dynamo.Metric {
	return []dynamo.Metric{
		NewKineticEnergy(),
		NewEnergyGrowth(),
		NewMomentum(),
		NewSurvivors(),
		NewDropped(),
		NewTreeDepth(),
		NewInteractions(),
		NewMaxSpeed(),
		NewStepTime(),
	}
}
