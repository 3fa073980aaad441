package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// PairForce returns the force on a body of mass mi at pi exerted by a body of
// mass mj at pj:
//
//	F = G * gravity * mi * mj * dir / (dist² + softening)
//
// where dir is the unit vector from pi towards pj. Coincident points have no
// direction and contribute nothing.
func PairForce(pi, pj r3.Vec, mi, mj, gravity, softening float64) r3.Vec {
	diff := r3.Sub(pj, pi)
	dist2 := r3.Norm2(diff)
	if dist2 == 0 {
		return r3.Vec{}
	}
	dist := math.Sqrt(dist2)
	mag := G * gravity * mi * mj / (dist2 + softening)
	return r3.Scale(mag/dist, diff)
}

// interactionCount is the length of the index prefix each particle interacts
// with under the direct strategies.
func interactionCount(n int, fraction float64) int {
	k := int(float64(n) * fraction)
	if k < 0 {
		return 0
	}
	if k > n {
		return n
	}
	return k
}

// accumulateDirect adds to ps[i].Force, for i in [start, end), the force from
// every particle in the prefix [0, k) other than i itself. Positions are only
// read, so disjoint ranges may run concurrently.
func accumulateDirect(ps []Particle, start, end, k int, p Params) {
	for i := start; i < end; i++ {
		pi := ps[i].Position
		mi := ps[i].Mass
		var f r3.Vec
		for j := 0; j < k; j++ {
			if j == i {
				continue
			}
			f = r3.Add(f, PairForce(pi, ps[j].Position, mi, ps[j].Mass, p.Gravity, p.Softening))
		}
		ps[i].Force = r3.Add(ps[i].Force, f)
	}
}

// accumulateTree adds the octree force to ps[i].Force for i in [start, end).
func accumulateTree(t *Octree, ps []Particle, start, end int, p Params) {
	for i := start; i < end; i++ {
		ps[i].Force = r3.Add(ps[i].Force, t.ForceOn(i, p.Theta, p.Gravity, p.Softening))
	}
}
