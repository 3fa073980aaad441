package dynamo

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestPairForceMagnitude(t *testing.T) {
	f := PairForce(r3.Vec{}, r3.Vec{X: 2}, 3, 4, 1.5, 10)
	want := G * 1.5 * 3 * 4 / (4 + 10)
	if math.Abs(f.X-want) > 1e-12 || f.Y != 0 || f.Z != 0 {
		t.Errorf("expected (%f, 0, 0), got %v", want, f)
	}
}

func TestPairForceSymmetry(t *testing.T) {
	a := r3.Vec{X: 0.3, Y: -1.2, Z: 2}
	b := r3.Vec{X: -0.7, Y: 0.4, Z: 1.1}
	fab := PairForce(a, b, 2, 5, 1, 0.5)
	fba := PairForce(b, a, 5, 2, 1, 0.5)
	if r3.Norm(r3.Add(fab, fba)) > 1e-12 {
		t.Errorf("forces should cancel: %v + %v", fab, fba)
	}
}

func TestPairForceCoincident(t *testing.T) {
	p := r3.Vec{X: 1, Y: 1, Z: 1}
	if f := PairForce(p, p, 1, 1, 1, 0); f != (r3.Vec{}) {
		t.Errorf("coincident points should contribute zero, got %v", f)
	}
}

func TestInteractionCount(t *testing.T) {
	tests := []struct {
		n        int
		fraction float64
		want     int
	}{
		{100, 1, 100},
		{100, 0.5, 50},
		{100, 0, 0},
		{7, 0.5, 3},
		{10, 2, 10},
		{10, -1, 0},
	}
	for _, tt := range tests {
		if got := interactionCount(tt.n, tt.fraction); got != tt.want {
			t.Errorf("interactionCount(%d, %g) = %d, want %d", tt.n, tt.fraction, got, tt.want)
		}
	}
}

func TestAccumulateDirectPrefix(t *testing.T) {
	ps := make([]Particle, 4)
	for i := range ps {
		ps[i] = Particle{Mass: 1, Position: r3.Vec{X: float64(i)}}
	}
	p := DefaultParams()

	accumulateDirect(ps, 0, len(ps), 0, p)
	for i := range ps {
		if ps[i].Force != (r3.Vec{}) {
			t.Fatalf("empty prefix should leave particle %d at rest", i)
		}
	}

	// Only particle 0 is a source; it feels nothing and pulls the rest back.
	accumulateDirect(ps, 0, len(ps), 1, p)
	if ps[0].Force != (r3.Vec{}) {
		t.Errorf("particle 0 should not act on itself, got %v", ps[0].Force)
	}
	for i := 1; i < len(ps); i++ {
		want := PairForce(ps[i].Position, ps[0].Position, 1, 1, p.Gravity, p.Softening)
		if r3.Norm(r3.Sub(ps[i].Force, want)) > 1e-12 {
			t.Errorf("particle %d: got %v, want %v", i, ps[i].Force, want)
		}
	}
}

func TestAccumulateDirectConservesMomentum(t *testing.T) {
	s := NewParticleStore(64)
	s.Spawn(testRNG(3), SpawnSpec{Radius: 2, Mass: 1})
	ps := s.Particles()

	accumulateDirect(ps, 0, len(ps), len(ps), DefaultParams())

	var total r3.Vec
	for _, q := range ps {
		total = r3.Add(total, q.Force)
	}
	if r3.Norm(total) > 1e-9 {
		t.Errorf("net internal force should vanish, got %v", total)
	}
}
