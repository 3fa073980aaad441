package optim

import (
	"context"
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

// ThetaPoint is the outcome of evaluating one opening angle.
type ThetaPoint struct {
	Theta float64
	// RelError is ‖F_tree − F_exact‖ / ‖F_exact‖ over all components.
	RelError float64
	// MaxError is the largest per-particle force error.
	MaxError float64
	EvalTime time.Duration
	Nodes    int
}

// ThetaSweep evaluates the Barnes-Hut forces on sim's current particles for
// each theta and compares them against the exact direct sum. The simulator's
// strategy, theta and interaction fraction are restored afterwards; particle
// state is unchanged. The baseline always sums over every particle, whatever
// the configured interaction fraction.
func ThetaSweep(ctx context.Context, sim *dynamo.Simulator, thetas []float64) ([]ThetaPoint, error) {
	origStrategy := sim.Strategy()
	origTheta := sim.Params().Theta
	origFraction := sim.Params().InteractionFraction
	defer func() {
		_ = sim.SetStrategy(origStrategy)
		_ = sim.SetTheta(origTheta)
		_ = sim.SetInteractionFraction(origFraction)
	}()

	if err := sim.SetStrategy(dynamo.DirectParallel); err != nil {
		return nil, err
	}
	if err := sim.SetInteractionFraction(1); err != nil {
		return nil, err
	}
	exact := flatten(sim.Evaluate())
	exactNorm := floats.Norm(exact, 2)

	if err := sim.SetStrategy(dynamo.BarnesHut); err != nil {
		return nil, err
	}
	points := make([]ThetaPoint, 0, len(thetas))
	diff := make([]float64, len(exact))
	for _, theta := range thetas {
		if err := ctx.Err(); err != nil {
			return points, err
		}
		if err := sim.SetTheta(theta); err != nil {
			return points, fmt.Errorf("theta %g: %w", theta, err)
		}

		start := time.Now()
		approx := flatten(sim.Evaluate())
		elapsed := time.Since(start)

		floats.SubTo(diff, approx, exact)
		pt := ThetaPoint{
			Theta:    theta,
			MaxError: maxTriple(diff),
			EvalTime: elapsed,
			Nodes:    sim.TreeStats().Nodes,
		}
		if exactNorm > 0 {
			pt.RelError = floats.Norm(diff, 2) / exactNorm
		}
		points = append(points, pt)
	}
	return points, nil
}

// Recommend returns the largest theta whose relative error stays within
// tolerance, or false if none does.
func Recommend(points []ThetaPoint, tolerance float64) (ThetaPoint, bool) {
	var best ThetaPoint
	found := false
	for _, p := range points {
		if p.RelError <= tolerance && (!found || p.Theta > best.Theta) {
			best = p
			found = true
		}
	}
	return best, found
}

// DefaultThetas spans exact summation to a coarse approximation.
func DefaultThetas() []float64 {
	return floats.Span(make([]float64, 11), 0, 1)
}

func flatten(vs []r3.Vec) []float64 {
	out := make([]float64, 0, 3*len(vs))
	for _, v := range vs {
		out = append(out, v.X, v.Y, v.Z)
	}
	return out
}

func maxTriple(diff []float64) float64 {
	worst := 0.0
	for i := 0; i+2 < len(diff); i += 3 {
		n := r3.Norm(r3.Vec{X: diff[i], Y: diff[i+1], Z: diff[i+2]})
		if n > worst {
			worst = n
		}
	}
	return worst
}
