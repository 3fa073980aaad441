// Package automation runs scripted scenarios, parameter sweeps and seed
// ensembles on top of the experiment runner.
package automation

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/experiment"
	"github.com/san-kum/nbodysim/internal/metrics"
)

// Scenario defines a scripted sequence of phases run on one simulator.
type Scenario struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description"`
	Particles   int     `yaml:"particles"`
	Seed        uint64  `yaml:"seed"`
	Workers     int     `yaml:"workers"`
	Phases      []Phase `yaml:"phases"`
}

// Phase is one leg of a scenario. Zero values keep the simulator's current
// settings, so a phase only names what it changes.
type Phase struct {
	Name      string             `yaml:"name"`
	Strategy  string             `yaml:"strategy"`
	Steps     int                `yaml:"steps"`
	Dt        float64            `yaml:"dt"`
	Params    map[string]float64 `yaml:"params"`
	Particles int                `yaml:"particles"`
	Reset     bool               `yaml:"reset"`
	Pause     bool               `yaml:"pause"`
}

type PhaseResult struct {
	Name   string
	Result *experiment.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Phases) == 0 {
		return nil, fmt.Errorf("scenario %q has no phases", scenario.Name)
	}
	return &scenario, nil
}

// RunScenario executes every phase on a single simulator built from base,
// with the scenario's own particle count, seed and worker settings applied.
// Phases without their own dt use dt until one sets it. Strategy switches
// between phases keep particle state. Progress goes to w.
func RunScenario(ctx context.Context, scenario *Scenario, base dynamo.Config, dt float64, w io.Writer) ([]PhaseResult, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("scenario dt must be positive, got %g", dt)
	}
	cfg := base
	if scenario.Particles > 0 {
		cfg.ParticleCount = scenario.Particles
	}
	if scenario.Seed != 0 {
		cfg.Seed = scenario.Seed
	}
	if scenario.Workers > 0 {
		cfg.Workers = scenario.Workers
	}

	sim, err := dynamo.New(cfg)
	if err != nil {
		return nil, err
	}
	defer sim.Close()

	runner := experiment.New(sim, metrics.NewKinetic(), metrics.NewMomentum())
	results := make([]PhaseResult, 0, len(scenario.Phases))

	for i, phase := range scenario.Phases {
		name := phase.Name
		if name == "" {
			name = fmt.Sprintf("phase-%d", i+1)
		}
		fmt.Fprintf(w, "Running phase %d/%d: %s\n", i+1, len(scenario.Phases), name)

		if err := applyPhase(sim, phase); err != nil {
			return results, fmt.Errorf("phase %s: %w", name, err)
		}
		if phase.Dt > 0 {
			dt = phase.Dt
		}

		result, err := runner.Run(ctx, experiment.Config{Steps: phase.Steps, Dt: dt, ValidateState: true})
		if err != nil {
			return results, fmt.Errorf("phase %s run: %w", name, err)
		}
		results = append(results, PhaseResult{Name: name, Result: result})
	}

	return results, nil
}

func applyPhase(sim *dynamo.Simulator, phase Phase) error {
	if phase.Strategy != "" {
		st, err := dynamo.ParseStrategy(phase.Strategy)
		if err != nil {
			return err
		}
		if err := sim.SetStrategy(st); err != nil {
			return err
		}
	}
	for k, v := range phase.Params {
		if err := sim.SetParam(k, v); err != nil {
			return err
		}
	}
	if phase.Particles > 0 {
		if err := sim.SetParticleCount(phase.Particles); err != nil {
			return err
		}
	} else if phase.Reset {
		sim.Reset()
	}
	if phase.Pause != sim.IsPaused() {
		sim.TogglePause()
	}
	return nil
}

// ParameterSweep runs one simulation per value of a named parameter spread
// evenly over [ParamMin, ParamMax].
type ParameterSweep struct {
	Base      dynamo.Config
	ParamName string
	ParamMin  float64
	ParamMax  float64
	NumSteps  int
	Steps     int
	Dt        float64
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue   float64
	FinalKinetic float64
	MaxKinetic   float64
	MinKinetic   float64
	Drift        float64
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, w io.Writer) ([]SweepResult, error) {
	if sweep.NumSteps < 1 {
		return nil, fmt.Errorf("sweep needs at least one value, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)

	paramStep := 0.0
	if sweep.NumSteps > 1 {
		paramStep = (sweep.ParamMax - sweep.ParamMin) / float64(sweep.NumSteps-1)
	}

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.ParamMin + float64(i)*paramStep

		res, err := runOnce(ctx, sweep.Base, func(sim *dynamo.Simulator) error {
			if err := sim.SetParam(sweep.ParamName, paramVal); err != nil {
				return err
			}
			sim.Reset()
			return nil
		}, sweep.Steps, sweep.Dt)
		if err != nil {
			return results, err
		}

		sr := SweepResult{ParamValue: paramVal, Drift: res.Metrics["energy_drift"]}
		if len(res.Steps) > 0 {
			sr.FinalKinetic = res.Steps[len(res.Steps)-1].Kinetic
			sr.MinKinetic, sr.MaxKinetic = math.Inf(1), math.Inf(-1)
			for _, s := range res.Steps {
				sr.MinKinetic = math.Min(sr.MinKinetic, s.Kinetic)
				sr.MaxKinetic = math.Max(sr.MaxKinetic, s.Kinetic)
			}
		}
		results = append(results, sr)

		fmt.Fprintf(w, "Sweep %d/%d: %s=%.4f\n", i+1, sweep.NumSteps, sweep.ParamName, paramVal)
	}

	return results, nil
}

func runOnce(ctx context.Context, cfg dynamo.Config, setup func(*dynamo.Simulator) error, steps int, dt float64) (*experiment.Result, error) {
	sim, err := dynamo.New(cfg)
	if err != nil {
		return nil, err
	}
	defer sim.Close()
	if setup != nil {
		if err := setup(sim); err != nil {
			return nil, err
		}
	}
	runner := experiment.New(sim, metrics.NewEnergyDrift(), metrics.NewBounded(BoundRadius(cfg.Params)))
	return runner.Run(ctx, experiment.Config{Steps: steps, Dt: dt, ObserveEvery: 10, ValidateState: true})
}

// BoundRadius is the escape radius used for stability checks: ten spawn
// radii, or ten units for a point spawn.
func BoundRadius(p dynamo.Params) float64 {
	return 10 * math.Max(p.SpawnRadius, 1)
}

// MonteCarloConfig repeats the same run with consecutive seeds.
type MonteCarloConfig struct {
	Base      dynamo.Config
	NumTrials int
	Steps     int
	Dt        float64
}

// MonteCarloResult holds statistics from Monte Carlo runs
type MonteCarloResult struct {
	TrialID int
	Seed    uint64
	Drift   float64
	Stable  bool // every particle stayed within BoundRadius
}

// RunMonteCarlo executes one trial per seed starting at cfg.Base.Seed.
func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, w io.Writer) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	for trial := 0; trial < cfg.NumTrials; trial++ {
		simCfg := cfg.Base
		simCfg.Seed = cfg.Base.Seed + uint64(trial)

		res, err := runOnce(ctx, simCfg, nil, cfg.Steps, cfg.Dt)
		if err != nil {
			return results, err
		}

		results = append(results, MonteCarloResult{
			TrialID: trial,
			Seed:    simCfg.Seed,
			Drift:   res.Metrics["energy_drift"],
			Stable:  res.Metrics["bounded"] == 1,
		})

		if (trial+1)%10 == 0 {
			fmt.Fprintf(w, "Monte Carlo: %d/%d trials complete\n", trial+1, cfg.NumTrials)
		}
	}

	return results, nil
}

// MonteCarloStats computes summary statistics from Monte Carlo results
func MonteCarloStats(results []MonteCarloResult) (stableCount int, unstableCount int) {
	for _, r := range results {
		if r.Stable {
			stableCount++
		} else {
			unstableCount++
		}
	}
	return
}
