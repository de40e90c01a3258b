package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/quadsim/internal/dynamo"
	"github.com/san-kum/quadsim/internal/force"
	"github.com/san-kum/quadsim/internal/geom"
	"github.com/san-kum/quadsim/internal/quadtree"
)

const (
	DefaultPoints       = 2000
	DefaultSteps        = 300
	DefaultDt           = 0.01
	DefaultWorkers      = 4
	DefaultDistribution = "uniform"
	DefaultFrameSize    = 512
)

type Config struct {
	Domain            DomainConfig   `yaml:"domain"`
	Capacity          int            `yaml:"capacity"`
	MaxDepth          int            `yaml:"max_depth"`
	G                 float64        `yaml:"g"`
	Theta             float64        `yaml:"theta"`
	SizeMode          string         `yaml:"size_mode"`
	Softening         float64        `yaml:"softening"`
	MinDistSqrd       float64        `yaml:"min_dist_sqrd"`
	CollisionRadius   float64        `yaml:"collision_radius"`
	CollisionStrength float64        `yaml:"collision_strength"`
	UseCenterOfMass   bool           `yaml:"use_center_of_mass"`
	Dt                float64        `yaml:"dt"`
	Steps             int            `yaml:"steps"`
	Points            int            `yaml:"points"`
	Distribution      string         `yaml:"distribution"`
	Seed              int64          `yaml:"seed"`
	Workers           int            `yaml:"workers"`
	Snapshot          SnapshotConfig `yaml:"snapshot"`
}

type DomainConfig struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
	W float64 `yaml:"w"`
	H float64 `yaml:"h"`
}

// SnapshotConfig controls per-step frame output. Every == 0 disables it.
type SnapshotConfig struct {
	Every  int    `yaml:"every"`
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // ppm, gif or video
	Size   int    `yaml:"size"`
}

func DefaultConfig() *Config {
	return &Config{
		Domain:       DomainConfig{X: -1, Y: -1, W: 2, H: 2},
		Capacity:     quadtree.DefaultCapacity,
		MaxDepth:     quadtree.DefaultMaxDepth,
		G:            force.DefaultG,
		Theta:        force.DefaultTheta,
		SizeMode:     force.SizeMax.String(),
		Softening:    force.DefaultSoftening,
		MinDistSqrd:  force.DefaultMinDistSqrd,
		Dt:           DefaultDt,
		Steps:        DefaultSteps,
		Points:       DefaultPoints,
		Distribution: DefaultDistribution,
		Workers:      DefaultWorkers,
		Snapshot: SnapshotConfig{
			Dir:    "frames",
			Format: "ppm",
			Size:   DefaultFrameSize,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the keys present in the file onto cfg, so a file can
// refine a preset.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Domain.W <= 0 || c.Domain.H <= 0 {
		return fmt.Errorf("domain must have positive size, got %gx%g", c.Domain.W, c.Domain.H)
	}
	if c.Points < 0 {
		return fmt.Errorf("points must be non-negative, got %d", c.Points)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	switch c.Snapshot.Format {
	case "", "ppm", "gif", "video":
	default:
		return fmt.Errorf("unknown snapshot format: %s", c.Snapshot.Format)
	}
	if c.Snapshot.Every < 0 {
		return fmt.Errorf("snapshot.every must be non-negative, got %d", c.Snapshot.Every)
	}
	if c.Snapshot.Every > 0 && c.Snapshot.Size <= 0 {
		return fmt.Errorf("snapshot.size must be positive, got %d", c.Snapshot.Size)
	}
	if _, err := force.ParseSizeMode(c.SizeMode); err != nil {
		return err
	}

	sc, err := c.Sim()
	if err != nil {
		return err
	}
	if err := sc.Tree.Validate(); err != nil {
		return err
	}
	if err := sc.Force.Validate(); err != nil {
		return err
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Steps)
	}
	return nil
}

func (c *Config) Bounds() geom.Bounds {
	return geom.NewBounds(c.Domain.X, c.Domain.Y, c.Domain.W, c.Domain.H)
}

// Sim converts the file-level settings into the engine configuration.
func (c *Config) Sim() (dynamo.Config, error) {
	mode, err := force.ParseSizeMode(c.SizeMode)
	if err != nil {
		return dynamo.Config{}, err
	}
	return dynamo.Config{
		Domain: c.Bounds(),
		Tree: quadtree.Config{
			Capacity: c.Capacity,
			MaxDepth: c.MaxDepth,
		},
		Force: force.Config{
			G:                 c.G,
			Theta:             c.Theta,
			SizeMode:          mode,
			Softening:         c.Softening,
			MinDistSqrd:       c.MinDistSqrd,
			CollisionRadius:   c.CollisionRadius,
			CollisionStrength: c.CollisionStrength,
			UseCenterOfMass:   c.UseCenterOfMass,
		},
		Dt:            c.Dt,
		Steps:         c.Steps,
		Workers:       c.Workers,
		ValidateState: true,
	}, nil
}

// Params lists the numeric keys accepted by SetParam.
var Params = []string{
	"capacity", "collision_radius", "collision_strength", "dt", "g",
	"max_depth", "min_dist_sqrd", "points", "softening", "steps", "theta",
}

// SetParam assigns a numeric key by its YAML name. Integer keys are
// truncated.
func (c *Config) SetParam(name string, v float64) error {
	switch name {
	case "capacity":
		c.Capacity = int(v)
	case "collision_radius":
		c.CollisionRadius = v
	case "collision_strength":
		c.CollisionStrength = v
	case "dt":
		c.Dt = v
	case "g":
		c.G = v
	case "max_depth":
		c.MaxDepth = int(v)
	case "min_dist_sqrd":
		c.MinDistSqrd = v
	case "points":
		c.Points = int(v)
	case "softening":
		c.Softening = v
	case "steps":
		c.Steps = int(v)
	case "theta":
		c.Theta = v
	default:
		return fmt.Errorf("unknown parameter: %s (available: %v)", name, Params)
	}
	return nil
}

// Clone returns a copy that shares no state with c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}
