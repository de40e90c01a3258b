package force

import (
	"fmt"
	"strings"
)

// SizeMode selects which side of a node is its size in the acceptance
// criterion. Tree nodes over a square domain are square, so the modes
// only differ for rectangular domains.
type SizeMode int

const (
	SizeMax SizeMode = iota
	SizeWidth
	SizeHeight
)

func (m SizeMode) String() string {
	switch m {
	case SizeWidth:
		return "width"
	case SizeHeight:
		return "height"
	}
	return "max"
}

func ParseSizeMode(s string) (SizeMode, error) {
	switch strings.ToLower(s) {
	case "", "max":
		return SizeMax, nil
	case "width":
		return SizeWidth, nil
	case "height":
		return SizeHeight, nil
	}
	return SizeMax, fmt.Errorf("unknown size mode: %s", s)
}

const (
	DefaultG           = 1e-3
	DefaultTheta       = 0.5
	DefaultSoftening   = 0.01
	DefaultMinDistSqrd = 1e-6
)

type Config struct {
	G float64
	// Theta is the opening angle: a branch is summarized when
	// size/distance < Theta. Zero opens every branch (exact summation).
	Theta     float64
	SizeMode  SizeMode
	Softening float64
	// MinDistSqrd floors the softened squared distance used in the force
	// law so coincident points cannot produce Inf or NaN.
	MinDistSqrd float64

	CollisionRadius   float64
	CollisionStrength float64

	// UseCenterOfMass anchors far-field nodes at their center of mass
	// instead of their geometric center.
	UseCenterOfMass bool
}

func DefaultConfig() Config {
	return Config{
		G:           DefaultG,
		Theta:       DefaultTheta,
		SizeMode:    SizeMax,
		Softening:   DefaultSoftening,
		MinDistSqrd: DefaultMinDistSqrd,
	}
}

func (c Config) Validate() error {
	if c.G < 0 {
		return fmt.Errorf("g must be non-negative, got %g", c.G)
	}
	if c.Theta < 0 {
		return fmt.Errorf("theta must be non-negative, got %g", c.Theta)
	}
	if c.Softening < 0 {
		return fmt.Errorf("softening must be non-negative, got %g", c.Softening)
	}
	if c.MinDistSqrd <= 0 {
		return fmt.Errorf("min_dist_sqrd must be positive, got %g", c.MinDistSqrd)
	}
	if c.CollisionRadius < 0 || c.CollisionStrength < 0 {
		return fmt.Errorf("collision radius and strength must be non-negative")
	}
	return nil
}
