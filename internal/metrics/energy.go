package metrics

import (
	"math"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/geom"
)

// KineticEnergy reports the kinetic energy of the survivors after the last
// observed step. Points have unit mass.
type KineticEnergy struct {
	name  string
	value float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (e *KineticEnergy) Name() string { return e.name }

func (e *KineticEnergy) Observe(pts []geom.Point, st dynamo.StepStats) {
	e.value = Kinetic(pts)
}

func (e *KineticEnergy) Value() float64 { return e.value }
func (e *KineticEnergy) Reset()         { e.value = 0 }

func Kinetic(pts []geom.Point) float64 {
	ke := 0.0
	for _, p := range pts {
		ke += 0.5 * (p.VX*p.VX + p.VY*p.VY)
	}
	return ke
}

// EnergyGrowth tracks the largest relative change of kinetic energy from
// the first observed step.
type EnergyGrowth struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewEnergyGrowth() *EnergyGrowth {
	return &EnergyGrowth{name: "energy_growth"}
}

func (e *EnergyGrowth) Name() string { return e.name }

func (e *EnergyGrowth) Observe(pts []geom.Point, st dynamo.StepStats) {
	energy := Kinetic(pts)
	if e.samples == 0 {
		e.initial = energy
	}
	e.samples++

	if e.initial != 0 {
		drift := math.Abs(energy-e.initial) / math.Abs(e.initial)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyGrowth) Value() float64 { return e.maxDrift }

func (e *EnergyGrowth) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
}

// Momentum is the magnitude of total linear momentum after the last step.
type Momentum struct {
	value float64
}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Observe(pts []geom.Point, st dynamo.StepStats) {
	px, py := 0.0, 0.0
	for _, p := range pts {
		px += p.VX
		py += p.VY
	}
	m.value = math.Hypot(px, py)
}

func (m *Momentum) Value() float64 { return m.value }
func (m *Momentum) Reset()         { m.value = 0 }
