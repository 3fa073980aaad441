package metrics

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

// PotentialSampleLimit bounds the pair sum in PotentialEnergy. Larger
// populations are estimated from their leading PotentialSampleLimit
// particles and scaled by the pair-count ratio.
const PotentialSampleLimit = 4000

// KineticEnergy returns Σ ½ m |v|².
func KineticEnergy(ps []dynamo.Particle) float64 {
	var ke float64
	for i := range ps {
		ke += 0.5 * ps[i].Mass * r3.Norm2(ps[i].Velocity)
	}
	return ke
}

// pairPotential is the potential of the softened pair force
// k/(d²+s): U(d) = -k (π/2 - atan(d/√s)) / √s, which reduces to -k/d for s=0.
func pairPotential(k, d, softening float64) float64 {
	if softening <= 0 {
		if d == 0 {
			return 0
		}
		return -k / d
	}
	rs := math.Sqrt(softening)
	return -k * (math.Pi/2 - math.Atan(d/rs)) / rs
}

// PotentialEnergy returns the total pair potential under the same softened
// law the force evaluators use.
func PotentialEnergy(ps []dynamo.Particle, p dynamo.Params) float64 {
	n := len(ps)
	sample := n
	if sample > PotentialSampleLimit {
		sample = PotentialSampleLimit
	}
	if sample < 2 {
		return 0
	}

	// Each chunk owns the slot at its start index so the sum runs in index
	// order regardless of which goroutine finishes first.
	partials := make([]float64, sample)
	dynamo.ParallelFor(sample, 64, func(start, end int) {
		var u float64
		for i := start; i < end; i++ {
			for j := i + 1; j < sample; j++ {
				d := r3.Norm(r3.Sub(ps[i].Position, ps[j].Position))
				k := dynamo.G * p.Gravity * ps[i].Mass * ps[j].Mass
				u += pairPotential(k, d, p.Softening)
			}
		}
		partials[start] = u
	})

	total := floats.Sum(partials)
	if sample < n {
		pairs := float64(n) * float64(n-1)
		sampled := float64(sample) * float64(sample-1)
		total *= pairs / sampled
	}
	return total
}

// Kinetic reports the kinetic energy at the latest observation.
type Kinetic struct {
	value float64
}

func NewKinetic() *Kinetic { return &Kinetic{} }

func (k *Kinetic) Name() string { return "kinetic_energy" }

func (k *Kinetic) Observe(ps []dynamo.Particle, _ dynamo.Params, _ float64) {
	k.value = KineticEnergy(ps)
}

func (k *Kinetic) Value() float64 { return k.value }
func (k *Kinetic) Reset()         { k.value = 0 }

// EnergyDrift tracks the largest relative change of K+U from the first
// observation. Damping makes drift expected; it is a diagnostic, not a check.
type EnergyDrift struct {
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift { return &EnergyDrift{} }

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(ps []dynamo.Particle, p dynamo.Params, _ float64) {
	energy := KineticEnergy(ps) + PotentialEnergy(ps, p)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
