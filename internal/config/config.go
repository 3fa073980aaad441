package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/san-kum/nbodysim/internal/dynamo"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

const (
	DefaultParticles    = 2000
	DefaultDt           = 0.01
	DefaultSteps        = 500
	DefaultSeed         = 1
	DefaultStrategy     = "barneshut"
	DefaultSoftening    = 10.0
	DefaultDamping      = 0.99
	DefaultGravity      = 1.0
	DefaultParticleMass = 1.0
	DefaultTheta        = 0.5
	DefaultFraction     = 1.0
	DefaultSpawnRadius  = 3.0
	DefaultAddr         = ":8080"
	DefaultFPS          = 60
	DefaultLogLevel     = "info"
	// MaxParticles caps interactive particle counts.
	MaxParticles = 1_000_000
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	Particles int           `yaml:"particles"`
	Strategy  string        `yaml:"strategy"`
	Workers   int           `yaml:"workers"`
	Seed      uint64        `yaml:"seed"`
	Dt        float64       `yaml:"dt"`
	Steps     int           `yaml:"steps"`
	Physics   PhysicsConfig `yaml:"physics"`
	Spawn     SpawnConfig   `yaml:"spawn"`
	Server    ServerConfig  `yaml:"server"`
	LogLevel  string        `yaml:"log_level"`
}

type PhysicsConfig struct {
	Softening           float64 `yaml:"softening"`
	Damping             float64 `yaml:"damping"`
	Gravity             float64 `yaml:"gravity"`
	ParticleMass        float64 `yaml:"particle_mass"`
	Theta               float64 `yaml:"theta"`
	InteractionFraction float64 `yaml:"interaction_fraction"`
}

type SpawnConfig struct {
	Radius float64    `yaml:"radius"`
	Center [3]float64 `yaml:"center,flow"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
	FPS  int    `yaml:"fps"`
}

func DefaultConfig() *Config {
	return &Config{
		Particles: DefaultParticles,
		Strategy:  DefaultStrategy,
		Workers:   runtime.NumCPU(),
		Seed:      DefaultSeed,
		Dt:        DefaultDt,
		Steps:     DefaultSteps,
		Physics: PhysicsConfig{
			Softening:           DefaultSoftening,
			Damping:             DefaultDamping,
			Gravity:             DefaultGravity,
			ParticleMass:        DefaultParticleMass,
			Theta:               DefaultTheta,
			InteractionFraction: DefaultFraction,
		},
		Spawn: SpawnConfig{
			Radius: DefaultSpawnRadius,
		},
		Server: ServerConfig{
			Addr: DefaultAddr,
			FPS:  DefaultFPS,
		},
		LogLevel: DefaultLogLevel,
	}
}

// Load reads a YAML file on top of the defaults; keys absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto reads a YAML file over cfg. Keys absent from the file keep the
// values cfg already holds.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
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

// Validate checks ranges and the strategy name.
func (c *Config) Validate() error {
	if c.Particles < 0 || c.Particles > MaxParticles {
		return fmt.Errorf("%w: particles must be in [0, %d], got %d", ErrInvalidConfig, MaxParticles, c.Particles)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must not be negative, got %d", ErrInvalidConfig, c.Steps)
	}
	if _, err := dynamo.ParseStrategy(c.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Params converts the physics and spawn sections into engine parameters.
func (c *Config) Params() dynamo.Params {
	return dynamo.Params{
		Softening:           c.Physics.Softening,
		Damping:             c.Physics.Damping,
		Gravity:             c.Physics.Gravity,
		ParticleMass:        c.Physics.ParticleMass,
		Theta:               c.Physics.Theta,
		InteractionFraction: c.Physics.InteractionFraction,
		SpawnRadius:         c.Spawn.Radius,
		SpawnCenter:         r3.Vec{X: c.Spawn.Center[0], Y: c.Spawn.Center[1], Z: c.Spawn.Center[2]},
	}
}

// SimConfig builds the engine configuration. A worker count below one means
// one worker per CPU.
func (c *Config) SimConfig() (dynamo.Config, error) {
	st, err := dynamo.ParseStrategy(c.Strategy)
	if err != nil {
		return dynamo.Config{}, err
	}
	workers := c.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	return dynamo.Config{
		ParticleCount: c.Particles,
		Workers:       workers,
		Seed:          c.Seed,
		Strategy:      st,
		Params:        c.Params(),
	}, nil
}
