package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Strategy != "barneshut" {
		t.Errorf("expected strategy barneshut, got %s", cfg.Strategy)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Workers < 1 {
		t.Error("workers should be at least one")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultConfigMatchesEngineDefaults(t *testing.T) {
	got := DefaultConfig().Params()
	want := dynamo.DefaultParams()
	if got != want {
		t.Errorf("params mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sim.yaml")
	data := []byte("particles: 42\nstrategy: direct\nphysics:\n  theta: 0.9\nspawn:\n  center: [1, 2, 3]\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Particles != 42 {
		t.Errorf("expected 42 particles, got %d", cfg.Particles)
	}
	if cfg.Physics.Theta != 0.9 {
		t.Errorf("expected theta 0.9, got %f", cfg.Physics.Theta)
	}
	if cfg.Physics.Damping != DefaultDamping {
		t.Errorf("unset damping should keep default, got %f", cfg.Physics.Damping)
	}
	if cfg.Spawn.Center != [3]float64{1, 2, 3} {
		t.Errorf("unexpected spawn center %v", cfg.Spawn.Center)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Particles = 777
	cfg.Strategy = "parallel"

	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Particles != 777 || loaded.Strategy != "parallel" {
		t.Errorf("round trip lost fields: %+v", loaded)
	}
}

func TestLoadIntoKeepsPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "over.yaml")
	if err := os.WriteFile(path, []byte("steps: 7\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.ApplyPreset(GetPreset("sampled"))
	if err := LoadInto(path, cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Steps != 7 {
		t.Errorf("file should override steps, got %d", cfg.Steps)
	}
	if cfg.Physics.InteractionFraction != 0.1 {
		t.Errorf("preset fraction should survive, got %f", cfg.Physics.InteractionFraction)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative particles", func(c *Config) { c.Particles = -1 }},
		{"too many particles", func(c *Config) { c.Particles = MaxParticles + 1 }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"bad strategy", func(c *Config) { c.Strategy = "gpu" }},
		{"damping above one", func(c *Config) { c.Physics.Damping = 1.5 }},
		{"negative softening", func(c *Config) { c.Physics.Softening = -1 }},
		{"fraction above one", func(c *Config) { c.Physics.InteractionFraction = 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("NBODY_PARTICLES", "123")
	t.Setenv("NBODY_STRATEGY", "direct")
	t.Setenv("NBODY_THETA", "0.25")
	t.Setenv("NBODY_SEED", "99")
	t.Setenv("NBODY_DAMPING", "not-a-number")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Particles != 123 {
		t.Errorf("expected 123 particles, got %d", cfg.Particles)
	}
	if cfg.Strategy != "direct" {
		t.Errorf("expected direct, got %s", cfg.Strategy)
	}
	if cfg.Physics.Theta != 0.25 {
		t.Errorf("expected theta 0.25, got %f", cfg.Physics.Theta)
	}
	if cfg.Seed != 99 {
		t.Errorf("expected seed 99, got %d", cfg.Seed)
	}
	if cfg.Physics.Damping != DefaultDamping {
		t.Errorf("unparsable value should keep default, got %f", cfg.Physics.Damping)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("exact")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Physics.Theta != 0 {
		t.Errorf("expected theta 0, got %f", cfg.Physics.Theta)
	}

	cfg.Particles = 1
	if Presets["exact"].Particles == 1 {
		t.Error("GetPreset should return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		cfg := DefaultConfig()
		cfg.ApplyPreset(GetPreset(name))
		if err := cfg.Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestSimConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "parallel"
	sc, err := cfg.SimConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Strategy != dynamo.DirectParallel {
		t.Errorf("expected parallel strategy, got %v", sc.Strategy)
	}
	if sc.ParticleCount != cfg.Particles {
		t.Errorf("expected %d particles, got %d", cfg.Particles, sc.ParticleCount)
	}
}
