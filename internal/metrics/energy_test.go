package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

func twoBodies() []dynamo.Particle {
	return []dynamo.Particle{
		{Mass: 1, Position: r3.Vec{X: -1}, Velocity: r3.Vec{Y: 2}},
		{Mass: 3, Position: r3.Vec{X: 1}, Velocity: r3.Vec{Y: -1}},
	}
}

func TestKineticEnergy(t *testing.T) {
	// ½·1·4 + ½·3·1
	if got := KineticEnergy(twoBodies()); got != 3.5 {
		t.Errorf("expected 3.5, got %f", got)
	}
}

func TestPotentialEnergyUnsoftened(t *testing.T) {
	p := dynamo.DefaultParams()
	p.Softening = 0
	got := PotentialEnergy(twoBodies(), p)
	if want := -3.0 / 2; !scalar.EqualWithinAbs(got, want, 1e-12) {
		t.Errorf("expected %f, got %f", want, got)
	}
}

func TestPairPotentialMatchesForce(t *testing.T) {
	// -dU/dd must equal the softened force magnitude k/(d²+s).
	const k, s, d, h = 2.0, 10.0, 1.7, 1e-6
	deriv := (pairPotential(k, d+h, s) - pairPotential(k, d-h, s)) / (2 * h)
	if want := k / (d*d + s); !scalar.EqualWithinAbsOrRel(deriv, want, 1e-6, 1e-6) {
		t.Errorf("dU/dd = %f, want %f", deriv, want)
	}
	if u := pairPotential(k, 1e12, s); math.Abs(u) > 1e-9 {
		t.Errorf("potential should vanish at infinity, got %g", u)
	}
}

func TestPotentialEnergySampled(t *testing.T) {
	n := PotentialSampleLimit + 1000
	ps := make([]dynamo.Particle, n)
	for i := range ps {
		ps[i] = dynamo.Particle{Mass: 1, Position: r3.Vec{X: float64(i % 7), Y: float64(i % 11)}}
	}
	u := PotentialEnergy(ps, dynamo.DefaultParams())
	if u >= 0 || math.IsNaN(u) {
		t.Errorf("expected a finite negative estimate, got %f", u)
	}
}

func TestPotentialEnergyReproducible(t *testing.T) {
	ps := make([]dynamo.Particle, 3000)
	for i := range ps {
		ps[i] = dynamo.Particle{Mass: 1, Position: r3.Vec{X: math.Sin(float64(i)), Y: math.Cos(float64(3 * i)), Z: float64(i%13) * 0.1}}
	}
	p := dynamo.DefaultParams()
	want := PotentialEnergy(ps, p)
	for range 20 {
		if got := PotentialEnergy(ps, p); got != want {
			t.Fatalf("potential changed between calls: %v != %v", got, want)
		}
	}
}

func TestMomentumAndCenterOfMass(t *testing.T) {
	ps := twoBodies()
	if p := TotalMomentum(ps); p != (r3.Vec{Y: -1}) {
		t.Errorf("unexpected momentum %v", p)
	}
	if c := CenterOfMass(ps); !scalar.EqualWithinAbs(c.X, 0.5, 1e-12) {
		t.Errorf("unexpected center of mass %v", c)
	}
	if c := CenterOfMass([]dynamo.Particle{{Position: r3.Vec{X: 5}}}); c != (r3.Vec{}) {
		t.Errorf("massless population should have origin center, got %v", c)
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()
	p := dynamo.DefaultParams()
	ps := twoBodies()

	m.Observe(ps, p, 0)
	if m.Value() != 0 {
		t.Errorf("first sample should have zero drift, got %f", m.Value())
	}

	ps[0].Velocity = r3.Vec{}
	m.Observe(ps, p, 1)
	if m.Value() <= 0 {
		t.Error("expected positive drift after losing kinetic energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("reset should clear drift")
	}
}

func TestBounded(t *testing.T) {
	m := NewBounded(5)
	ps := twoBodies()
	m.Observe(ps, dynamo.Params{}, 0)

	ps[1].Position = r3.Vec{X: 100}
	m.Observe(ps, dynamo.Params{}, 1)

	if got := m.Value(); got != 0.5 {
		t.Errorf("expected 0.5, got %f", got)
	}
	m.Reset()
	if m.Value() != 1 {
		t.Error("reset should restore a perfect score")
	}
}

func TestCenterOfMassShift(t *testing.T) {
	m := NewCenterOfMassShift()
	ps := twoBodies()
	m.Observe(ps, dynamo.Params{}, 0)
	for i := range ps {
		ps[i].Position = r3.Add(ps[i].Position, r3.Vec{Z: 2})
	}
	m.Observe(ps, dynamo.Params{}, 1)
	if !scalar.EqualWithinAbs(m.Value(), 2, 1e-12) {
		t.Errorf("expected shift 2, got %f", m.Value())
	}
}

func TestDefaultsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Defaults() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric name %s", m.Name())
		}
		seen[m.Name()] = true
	}
}
