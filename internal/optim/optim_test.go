package optim

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/nbodysim/internal/dynamo"
	"github.com/san-kum/nbodysim/internal/experiment"
	"github.com/san-kum/nbodysim/internal/metrics"
)

func newTestSim(t *testing.T, n int) *dynamo.Simulator {
	t.Helper()
	cfg := dynamo.DefaultConfig()
	cfg.ParticleCount = n
	cfg.Workers = 2
	sim, err := dynamo.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(sim.Close)
	return sim
}

func TestThetaSweep(t *testing.T) {
	sim := newTestSim(t, 500)
	sim.Update(0.01)
	before := append([]dynamo.Particle(nil), sim.Particles()...)

	points, err := ThetaSweep(context.Background(), sim, []float64{0, 0.5, 1.0})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	if points[0].RelError > 1e-12 {
		t.Errorf("theta 0 should be exact, got error %g", points[0].RelError)
	}
	if points[2].RelError < points[0].RelError {
		t.Error("a coarser theta should not be more accurate than exact summation")
	}

	if sim.Strategy() != dynamo.BarnesHut || sim.Params().Theta != 0.5 {
		t.Error("sweep should restore strategy and theta")
	}
	for i, p := range sim.Particles() {
		if p.Position != before[i].Position || p.Velocity != before[i].Velocity {
			t.Fatalf("sweep moved particle %d", i)
		}
	}
}

func TestThetaSweepSampledFraction(t *testing.T) {
	sim := newTestSim(t, 500)
	if err := sim.SetInteractionFraction(0.5); err != nil {
		t.Fatal(err)
	}

	points, err := ThetaSweep(context.Background(), sim, []float64{0})
	if err != nil {
		t.Fatal(err)
	}
	if points[0].RelError > 1e-9 {
		t.Errorf("theta 0 should match the full direct sum, got error %g", points[0].RelError)
	}
	if got := sim.Params().InteractionFraction; got != 0.5 {
		t.Errorf("sweep should restore the interaction fraction, got %f", got)
	}
}

func TestRecommend(t *testing.T) {
	points := []ThetaPoint{
		{Theta: 0, RelError: 0},
		{Theta: 0.5, RelError: 0.005},
		{Theta: 1, RelError: 0.05},
	}
	best, ok := Recommend(points, 0.01)
	if !ok || best.Theta != 0.5 {
		t.Errorf("expected theta 0.5, got %+v (%v)", best, ok)
	}
	if _, ok := Recommend(points[2:], 0.01); ok {
		t.Error("expected no recommendation")
	}
}

func TestDefaultThetas(t *testing.T) {
	th := DefaultThetas()
	if len(th) != 11 || th[0] != 0 || th[10] != 1 {
		t.Errorf("unexpected thetas %v", th)
	}
}

func TestGridSearch(t *testing.T) {
	build := func(params map[string]float64) (*experiment.Runner, func(), error) {
		cfg := dynamo.DefaultConfig()
		cfg.ParticleCount = 50
		cfg.Workers = 1
		cfg.Strategy = dynamo.Direct
		sim, err := dynamo.New(cfg)
		if err != nil {
			return nil, nil, err
		}
		for k, v := range params {
			if err := sim.SetParam(k, v); err != nil {
				sim.Close()
				return nil, nil, err
			}
		}
		return experiment.New(sim, metrics.NewKinetic()), sim.Close, nil
	}

	// Lower gravity means slower particles.
	g := NewGridSearch([]string{"gravity"}, [][]float64{{4, 1, 0.25}})
	best, val, err := g.Search(context.Background(), build, experiment.Config{Steps: 5, Dt: 0.01}, "kinetic_energy")
	if err != nil {
		t.Fatal(err)
	}
	if best["gravity"] != 0.25 {
		t.Errorf("expected gravity 0.25, got %v (value %f)", best, val)
	}
}

func TestGridSearchNoCandidate(t *testing.T) {
	build := func(map[string]float64) (*experiment.Runner, func(), error) {
		return nil, nil, errors.New("boom")
	}
	g := NewGridSearch([]string{"theta"}, [][]float64{{0.1}})
	if _, _, err := g.Search(context.Background(), build, experiment.Config{Steps: 1, Dt: 0.01}, "x"); !errors.Is(err, ErrNoCandidate) {
		t.Errorf("expected ErrNoCandidate, got %v", err)
	}
}
