package config

import "sort"

// Presets are partial configurations applied over DefaultConfig.
var Presets = map[string]func(*Config){
	// the original benchmark: a large uniform field at rest
	"million": func(c *Config) {
		c.Points = 1_000_000
		c.Capacity = 1000
		c.Steps = 1
		c.Distribution = "uniform"
	},
	"collapse": func(c *Config) {
		c.Points = 5000
		c.Distribution = "uniform"
		c.G = 2e-4
		c.Steps = 500
	},
	"galaxy": func(c *Config) {
		c.Points = 10000
		c.Distribution = "disk"
		c.G = 5e-5
		c.UseCenterOfMass = true
		c.Steps = 600
	},
	"merger": func(c *Config) {
		c.Points = 6000
		c.Distribution = "clusters"
		c.G = 1e-4
		c.CollisionRadius = 0.005
		c.CollisionStrength = 0.5
		c.Steps = 800
	},
	"ring": func(c *Config) {
		c.Points = 500
		c.Distribution = "ring"
		c.G = 1e-3
		c.Steps = 400
	},
	"exact": func(c *Config) {
		c.Points = 1000
		c.Theta = 0
		c.Steps = 50
	},
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
