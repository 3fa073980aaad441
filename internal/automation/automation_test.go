package automation

import (
	"context"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

const scenarioYAML = `
name: switch
description: run each strategy in turn
particles: 120
seed: 9
workers: 2
phases:
  - name: warmup
    strategy: direct
    steps: 5
    dt: 0.01
  - name: tree
    strategy: barneshut
    steps: 5
    params:
      theta: 0.7
  - name: frozen
    pause: true
    steps: 3
  - name: regrow
    pause: false
    particles: 80
    strategy: parallel
    steps: 2
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "switch" || len(sc.Phases) != 4 {
		t.Fatalf("unexpected scenario %+v", sc)
	}
	if sc.Phases[1].Params["theta"] != 0.7 {
		t.Error("phase params not parsed")
	}

	if _, err := ParseScenario([]byte("name: empty\n")); err == nil {
		t.Error("expected error for a scenario without phases")
	}
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte(scenarioYAML), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadScenario(path); err != nil {
		t.Fatal(err)
	}
}

func TestRunScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	if err != nil {
		t.Fatal(err)
	}

	results, err := RunScenario(context.Background(), sc, dynamo.DefaultConfig(), 0.01, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 4 {
		t.Fatalf("expected 4 phase results, got %d", len(results))
	}

	if results[0].Result.Strategy != "direct" || results[1].Result.Strategy != "barneshut" {
		t.Error("phases should run with their own strategies")
	}
	if results[1].Result.Steps[0].Kinetic < results[0].Result.Steps[4].Kinetic*0.5 {
		t.Error("switching strategy should keep the particles' motion")
	}

	frozen := results[2].Result.Steps
	if frozen[0].Kinetic != frozen[len(frozen)-1].Kinetic {
		t.Error("paused phase should not change the state")
	}
	if results[3].Result.Particles != 80 {
		t.Errorf("expected 80 particles, got %d", results[3].Result.Particles)
	}
}

func TestRunScenarioDefaultDt(t *testing.T) {
	sc := &Scenario{Particles: 20, Phases: []Phase{
		{Strategy: "direct", Steps: 4},
		{Steps: 2, Dt: 0.05},
	}}

	results, err := RunScenario(context.Background(), sc, dynamo.DefaultConfig(), 0.02, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	first := results[0].Result.Steps
	if got := first[len(first)-1].Time; math.Abs(got-4*0.02) > 1e-12 {
		t.Errorf("phase without dt should use the default, got time %f", got)
	}
	second := results[1].Result.Steps
	if got := second[len(second)-1].Time; math.Abs(got-2*0.05) > 1e-12 {
		t.Errorf("phase dt should override the default, got time %f", got)
	}

	if _, err := RunScenario(context.Background(), sc, dynamo.DefaultConfig(), 0, io.Discard); err == nil {
		t.Error("expected error for zero dt")
	}
}

func TestRunScenarioBadPhase(t *testing.T) {
	sc := &Scenario{Phases: []Phase{{Strategy: "gpu", Steps: 1}}}
	if _, err := RunScenario(context.Background(), sc, dynamo.DefaultConfig(), 0.01, io.Discard); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestRunSweep(t *testing.T) {
	base := dynamo.DefaultConfig()
	base.ParticleCount = 60
	base.Workers = 1

	results, err := RunSweep(context.Background(), &ParameterSweep{
		Base:      base,
		ParamName: "gravity",
		ParamMin:  0.5,
		ParamMax:  2,
		NumSteps:  3,
		Steps:     5,
		Dt:        0.01,
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[0].ParamValue != 0.5 || results[2].ParamValue != 2 {
		t.Errorf("unexpected sweep values %v", results)
	}
	if results[2].FinalKinetic <= results[0].FinalKinetic {
		t.Error("stronger gravity should produce faster particles")
	}
}

func TestRunMonteCarlo(t *testing.T) {
	base := dynamo.DefaultConfig()
	base.ParticleCount = 40
	base.Workers = 1

	results, err := RunMonteCarlo(context.Background(), &MonteCarloConfig{
		Base:      base,
		NumTrials: 3,
		Steps:     5,
		Dt:        0.01,
	}, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 3 || results[2].Seed != base.Seed+2 {
		t.Fatalf("unexpected results %+v", results)
	}
	stable, unstable := MonteCarloStats(results)
	if stable != 3 || unstable != 0 {
		t.Errorf("short runs should stay bounded, got %d/%d", stable, unstable)
	}
}
