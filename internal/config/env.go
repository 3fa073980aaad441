package config

import (
	"os"
	"strconv"
	"strings"
)

// ApplyEnv overrides fields from NBODY_* environment variables. Unset or
// unparsable variables leave the current value alone.
func (c *Config) ApplyEnv() {
	c.Particles = GetEnvAsInt("NBODY_PARTICLES", c.Particles)
	c.Workers = GetEnvAsInt("NBODY_WORKERS", c.Workers)
	c.Seed = GetEnvAsUint("NBODY_SEED", c.Seed)
	c.Dt = GetEnvAsFloat("NBODY_DT", c.Dt)
	c.Steps = GetEnvAsInt("NBODY_STEPS", c.Steps)
	if v := os.Getenv("NBODY_STRATEGY"); v != "" {
		c.Strategy = v
	}

	c.Physics.Softening = GetEnvAsFloat("NBODY_SOFTENING", c.Physics.Softening)
	c.Physics.Damping = GetEnvAsFloat("NBODY_DAMPING", c.Physics.Damping)
	c.Physics.Gravity = GetEnvAsFloat("NBODY_GRAVITY", c.Physics.Gravity)
	c.Physics.ParticleMass = GetEnvAsFloat("NBODY_PARTICLE_MASS", c.Physics.ParticleMass)
	c.Physics.Theta = GetEnvAsFloat("NBODY_THETA", c.Physics.Theta)
	c.Physics.InteractionFraction = GetEnvAsFloat("NBODY_INTERACTION_FRACTION", c.Physics.InteractionFraction)
	c.Spawn.Radius = GetEnvAsFloat("NBODY_SPAWN_RADIUS", c.Spawn.Radius)

	if v := os.Getenv("NBODY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	c.Server.FPS = GetEnvAsInt("NBODY_FPS", c.Server.FPS)
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// GetEnvAsInt retrieves an environment variable as an integer with a default fallback.
func GetEnvAsInt(name string, defaultVal int) int {
	if valStr := os.Getenv(name); valStr != "" {
		if val, err := strconv.Atoi(strings.TrimSpace(valStr)); err == nil {
			return val
		}
	}
	return defaultVal
}

func GetEnvAsUint(name string, defaultVal uint64) uint64 {
	if valStr := os.Getenv(name); valStr != "" {
		if val, err := strconv.ParseUint(strings.TrimSpace(valStr), 10, 64); err == nil {
			return val
		}
	}
	return defaultVal
}

// GetEnvAsFloat retrieves an environment variable as a float64 with a default fallback.
func GetEnvAsFloat(name string, defaultVal float64) float64 {
	if valStr := os.Getenv(name); valStr != "" {
		if val, err := strconv.ParseFloat(strings.TrimSpace(valStr), 64); err == nil {
			return val
		}
	}
	return defaultVal
}

// GetEnvAsBool parses a boolean environment variable with a default.
func GetEnvAsBool(key string, defaultVal bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return defaultVal
	}
}
