// Package metrics provides per-step diagnostics over a particle population.
package metrics

import "github.com/san-kum/nbodysim/internal/dynamo"

// Metric accumulates a scalar diagnostic over the steps of a run.
type Metric interface {
	Name() string
	Observe(ps []dynamo.Particle, p dynamo.Params, t float64)
	Value() float64
	Reset()
}

// Defaults returns a fresh set of the standard diagnostics.
func Defaults() []Metric {
	return []Metric{
		NewKinetic(),
		NewEnergyDrift(),
		NewMomentum(),
		NewCenterOfMassShift(),
		NewBounded(100),
	}
}
