package config

import "sort"

// Presets are named starting points. Only the fields that differ from the
// defaults are meaningful; Apply copies the whole preset.
var Presets = map[string]*Config{
	"small": {
		Particles: 500, Strategy: "direct", Dt: 0.01, Steps: 500,
		Physics: PhysicsConfig{Softening: 0.1, Damping: 0.99, Gravity: 1, ParticleMass: 1, Theta: 0.5, InteractionFraction: 1},
		Spawn:   SpawnConfig{Radius: 3},
	},
	"cloud": {
		Particles: 5000, Strategy: "barneshut", Dt: 0.01, Steps: 1000,
		Physics: PhysicsConfig{Softening: 10, Damping: 0.99, Gravity: 1, ParticleMass: 1, Theta: 0.5, InteractionFraction: 1},
		Spawn:   SpawnConfig{Radius: 3},
	},
	"collapse": {
		Particles: 3000, Strategy: "barneshut", Dt: 0.005, Steps: 2000,
		Physics: PhysicsConfig{Softening: 0.1, Damping: 1, Gravity: 2, ParticleMass: 1, Theta: 0.7, InteractionFraction: 1},
		Spawn:   SpawnConfig{Radius: 10},
	},
	"sampled": {
		Particles: 20000, Strategy: "parallel", Dt: 0.01, Steps: 200,
		Physics: PhysicsConfig{Softening: 10, Damping: 0.99, Gravity: 1, ParticleMass: 1, Theta: 0.5, InteractionFraction: 0.1},
		Spawn:   SpawnConfig{Radius: 3},
	},
	"exact": {
		Particles: 2000, Strategy: "barneshut", Dt: 0.01, Steps: 200,
		Physics: PhysicsConfig{Softening: 10, Damping: 0.99, Gravity: 1, ParticleMass: 1, Theta: 0, InteractionFraction: 1},
		Spawn:   SpawnConfig{Radius: 3},
	},
	"benchmark": {
		Particles: 100000, Strategy: "barneshut", Dt: 0.01, Steps: 20,
		Physics: PhysicsConfig{Softening: 10, Damping: 0.99, Gravity: 1, ParticleMass: 1, Theta: 0.8, InteractionFraction: 1},
		Spawn:   SpawnConfig{Radius: 3},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	return &cfg
}

// ListPresets returns the preset names in sorted order.
func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset copies the simulation fields of p into c, keeping the ambient
// sections (workers, seed, server, logging).
func (c *Config) ApplyPreset(p *Config) {
	c.Particles = p.Particles
	c.Strategy = p.Strategy
	c.Dt = p.Dt
	c.Steps = p.Steps
	c.Physics = p.Physics
	c.Spawn = p.Spawn
}
