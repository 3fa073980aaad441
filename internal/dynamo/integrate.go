package dynamo

import "gonum.org/v1/gonum/spatial/r3"

// Integrate advances particles [start, end) by dt from their accumulated
// force and clears the accumulator:
//
//	a    = F / ParticleMass
//	pos += v*dt + a*dt²/2
//	v    = (v + a*dt) * Damping
//
// A non-positive ParticleMass yields zero acceleration.
func Integrate(ps []Particle, start, end int, dt float64, p Params) {
	invMass := 0.0
	if p.ParticleMass > 0 {
		invMass = 1 / p.ParticleMass
	}
	for i := start; i < end; i++ {
		q := &ps[i]
		a := r3.Scale(invMass, q.Force)
		q.Position = r3.Add(q.Position, r3.Add(r3.Scale(dt, q.Velocity), r3.Scale(0.5*dt*dt, a)))
		q.Velocity = r3.Scale(p.Damping, r3.Add(q.Velocity, r3.Scale(dt, a)))
		q.Force = r3.Vec{}
	}
}
