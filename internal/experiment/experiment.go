// Package experiment drives a simulator through a fixed number of steps and
// collects per-step statistics and metrics.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/logger"
	"github.com/san-kum/nbodysim/internal/metrics"
	"github.com/san-kum/nbodysim/internal/telemetry"
	"github.com/san-kum/nbodysim/internal/tracing"
)

var ErrInvalidConfig = errors.New("experiment: invalid configuration")

type Config struct {
	Steps int
	Dt    float64
	// ObserveEvery controls how often metrics are fed; zero means every step.
	ObserveEvery int
	// ValidateState stops the run at the first NaN or Inf.
	ValidateState bool
}

// StepStats describes one completed step.
type StepStats struct {
	Step     int
	Time     float64
	Duration time.Duration
	Kinetic  float64
	Momentum float64
}

type Result struct {
	Strategy   string
	Particles  int
	Steps      []StepStats
	Metrics    map[string]float64
	StepsTaken int
	Elapsed    time.Duration
}

// MeanStep returns the average wall time per step.
func (r *Result) MeanStep() time.Duration {
	if len(r.Steps) == 0 {
		return 0
	}
	var total time.Duration
	for _, s := range r.Steps {
		total += s.Duration
	}
	return total / time.Duration(len(r.Steps))
}

// Observer is called after every step.
type Observer func(StepStats)

type Runner struct {
	sim       *dynamo.Simulator
	metrics   []metrics.Metric
	observers []Observer
	log       *slog.Logger
}

func New(sim *dynamo.Simulator, ms ...metrics.Metric) *Runner {
	return &Runner{
		sim:     sim,
		metrics: ms,
		log:     logger.WithComponent("experiment"),
	}
}

func (r *Runner) AddObserver(o Observer) { r.observers = append(r.observers, o) }

func (r *Runner) Simulator() *dynamo.Simulator { return r.sim }

// Run advances the simulator cfg.Steps times. On cancellation or invalid
// state it returns the partial result together with the error.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	if cfg.Dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Steps < 0 {
		return nil, fmt.Errorf("%w: steps must not be negative, got %d", ErrInvalidConfig, cfg.Steps)
	}
	every := cfg.ObserveEvery
	if every < 1 {
		every = 1
	}

	strategy := r.sim.Strategy().String()
	result := &Result{
		Strategy:  strategy,
		Particles: r.sim.ParticleCount(),
		Steps:     make([]StepStats, 0, cfg.Steps),
		Metrics:   make(map[string]float64),
	}
	for _, m := range r.metrics {
		m.Reset()
	}
	telemetry.Particles.Set(float64(result.Particles))

	ctx, runSpan := tracing.StartSpan(ctx, "experiment.run")
	defer runSpan.End()

	start := time.Now()
	t := 0.0
	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		stats := r.step(ctx, i, cfg.Dt, strategy)
		t += cfg.Dt
		stats.Time = t
		result.Steps = append(result.Steps, stats)
		result.StepsTaken++

		if i%every == 0 || i == cfg.Steps-1 {
			for _, m := range r.metrics {
				m.Observe(r.sim.Particles(), r.sim.Params(), t)
			}
		}
		for _, o := range r.observers {
			o(stats)
		}

		if cfg.ValidateState {
			if err := r.sim.Validate(); err != nil {
				runErr = fmt.Errorf("step %d: %w", i, err)
				break
			}
		}
	}
	result.Elapsed = time.Since(start)

	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		r.log.Warn("run stopped early", "steps", result.StepsTaken, "error", runErr)
		return result, runErr
	}
	r.log.Info("run complete",
		"strategy", strategy,
		"particles", result.Particles,
		"steps", result.StepsTaken,
		"mean_step", result.MeanStep())
	return result, nil
}

func (r *Runner) step(ctx context.Context, i int, dt float64, strategy string) StepStats {
	_, span := tracing.StartSpan(ctx, "simulator.update",
		tracing.StepAttributes(i, strategy, r.sim.ParticleCount(), dt))
	defer span.End()

	begin := time.Now()
	r.sim.Update(dt)
	d := time.Since(begin)

	ps := r.sim.Particles()
	stats := StepStats{
		Step:     i,
		Duration: d,
		Kinetic:  metrics.KineticEnergy(ps),
		Momentum: r3.Norm(metrics.TotalMomentum(ps)),
	}

	telemetry.ObserveStep(strategy, d)
	telemetry.KineticEnergy.Set(stats.Kinetic)
	if ts := r.sim.TreeStats(); ts.Nodes > 0 {
		telemetry.OctreeNodes.Set(float64(ts.Nodes))
		telemetry.OctreeDepth.Set(float64(ts.MaxDepth))
	}
	return stats
}
