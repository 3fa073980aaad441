package dynamo

import (
	"math"
	"runtime"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
)

// G is the gravitational constant. Strength is tuned through Params.Gravity.
const G = 1.0

type Particle struct {
	Mass     float64
	Position r3.Vec
	Velocity r3.Vec
	// Force is the per-step accumulator; it is zero between steps.
	Force r3.Vec
	Color colorful.Color
}

func (p *Particle) IsValid() bool {
	return finite(p.Position) && finite(p.Velocity) && finite(p.Force)
}

func finite(v r3.Vec) bool {
	for _, c := range [3]float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Bounds is an axis-aligned box given by its center and half extent.
type Bounds struct {
	Center     r3.Vec
	HalfExtent r3.Vec
}

// Contains reports whether p lies inside b, faces included.
func (b Bounds) Contains(p r3.Vec) bool {
	return p.X >= b.Center.X-b.HalfExtent.X && p.X <= b.Center.X+b.HalfExtent.X &&
		p.Y >= b.Center.Y-b.HalfExtent.Y && p.Y <= b.Center.Y+b.HalfExtent.Y &&
		p.Z >= b.Center.Z-b.HalfExtent.Z && p.Z <= b.Center.Z+b.HalfExtent.Z
}

// Params are the tunable physical parameters read on every step.
type Params struct {
	Softening           float64
	Damping             float64
	Gravity             float64
	ParticleMass        float64
	Theta               float64
	InteractionFraction float64
	SpawnRadius         float64
	SpawnCenter         r3.Vec
}

func DefaultParams() Params {
	return Params{
		Softening:           10.0,
		Damping:             0.99,
		Gravity:             1.0,
		ParticleMass:        1.0,
		Theta:               0.5,
		InteractionFraction: 1.0,
		SpawnRadius:         3.0,
	}
}

// Validate checks every field and returns a *ParamError for the first
// offending one.
func (p Params) Validate() error {
	checks := []struct {
		name   string
		value  float64
		lo, hi float64
	}{
		{"softening", p.Softening, 0, math.Inf(1)},
		{"damping", p.Damping, 0, 1},
		{"gravity", p.Gravity, 0, math.Inf(1)},
		{"particle_mass", p.ParticleMass, 0, math.Inf(1)},
		{"theta", p.Theta, 0, math.Inf(1)},
		{"interaction_fraction", p.InteractionFraction, 0, 1},
		{"spawn_radius", p.SpawnRadius, 0, math.Inf(1)},
	}
	for _, c := range checks {
		if err := checkRange(c.name, c.value, c.lo, c.hi); err != nil {
			return err
		}
	}
	if !finite(p.SpawnCenter) {
		return &ParamError{Name: "spawn_center", Value: math.NaN(), Wrapped: ErrParameterBounds}
	}
	return nil
}

func checkRange(name string, v, lo, hi float64) error {
	if math.IsNaN(v) || v < lo || v > hi {
		return &ParamError{Name: name, Value: v, Wrapped: ErrParameterBounds}
	}
	return nil
}

type Config struct {
	ParticleCount int
	Workers       int
	Seed          uint64
	Strategy      Strategy
	Params        Params
}

func DefaultConfig() Config {
	return Config{
		ParticleCount: 2000,
		Workers:       runtime.NumCPU(),
		Seed:          1,
		Strategy:      BarnesHut,
		Params:        DefaultParams(),
	}
}
