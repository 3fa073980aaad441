package dynamo

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
	"gonum.org/v1/gonum/spatial/r3"
)

// RenderStride is the number of float32 values per particle in the render
// buffer: position, velocity and color, three components each.
const RenderStride = 9

// SpawnSpec describes where and how particles are (re)spawned.
type SpawnSpec struct {
	Radius float64
	Center r3.Vec
	Mass   float64
}

// ParticleStore owns the particle array and the render buffer that mirrors it.
type ParticleStore struct {
	particles []Particle
	render    []float32
}

func NewParticleStore(n int) *ParticleStore {
	s := &ParticleStore{}
	s.Resize(n)
	return s
}

func (s *ParticleStore) Len() int { return len(s.particles) }

// Particles returns the backing slice. Callers may mutate elements but must
// not append to it.
func (s *ParticleStore) Particles() []Particle { return s.particles }

func (s *ParticleStore) At(i int) *Particle { return &s.particles[i] }

// Resize sets the particle count. Existing particles are kept up to n; new
// ones are zero valued until the next Spawn.
func (s *ParticleStore) Resize(n int) {
	if n < 0 {
		n = 0
	}
	if n <= cap(s.particles) {
		old := len(s.particles)
		s.particles = s.particles[:n]
		for i := old; i < n; i++ {
			s.particles[i] = Particle{}
		}
	} else {
		grown := make([]Particle, n)
		copy(grown, s.particles)
		s.particles = grown
	}
	if n*RenderStride <= cap(s.render) {
		s.render = s.render[:n*RenderStride]
	} else {
		s.render = make([]float32, n*RenderStride)
	}
	s.mustAgree()
}

func (s *ParticleStore) mustAgree() {
	if len(s.render) != len(s.particles)*RenderStride {
		panic(fmt.Sprintf("dynamo: render buffer length %d does not match %d particles",
			len(s.render), len(s.particles)))
	}
}

// Spawn places every particle on the sphere described by spec with zero
// velocity and force and a random color.
func (s *ParticleStore) Spawn(rng *rand.Rand, spec SpawnSpec) {
	for i := range s.particles {
		a1 := rng.Float64() * 2 * math.Pi
		a2 := rng.Float64() * 2 * math.Pi
		sin1, cos1 := math.Sincos(a1)
		sin2, cos2 := math.Sincos(a2)
		offset := r3.Vec{
			X: spec.Radius * sin1 * cos2,
			Y: spec.Radius * sin1 * sin2,
			Z: spec.Radius * cos1,
		}
		s.particles[i] = Particle{
			Mass:     spec.Mass,
			Position: r3.Add(spec.Center, offset),
			Color:    colorful.Color{R: rng.Float64(), G: rng.Float64(), B: rng.Float64()},
		}
	}
}

func (s *ParticleStore) ClearForces() {
	for i := range s.particles {
		s.particles[i].Force = r3.Vec{}
	}
}

// BoundingBox returns the component-wise min and max positions. An empty
// store yields two zero vectors.
func (s *ParticleStore) BoundingBox() (lo, hi r3.Vec) {
	return boundingBox(s.particles)
}

func boundingBox(particles []Particle) (lo, hi r3.Vec) {
	if len(particles) == 0 {
		return r3.Vec{}, r3.Vec{}
	}
	lo = particles[0].Position
	hi = lo
	for _, p := range particles[1:] {
		lo.X = math.Min(lo.X, p.Position.X)
		lo.Y = math.Min(lo.Y, p.Position.Y)
		lo.Z = math.Min(lo.Z, p.Position.Z)
		hi.X = math.Max(hi.X, p.Position.X)
		hi.Y = math.Max(hi.Y, p.Position.Y)
		hi.Z = math.Max(hi.Z, p.Position.Z)
	}
	return lo, hi
}

// RenderBuffer refreshes and returns the stride-9 float32 buffer. The slice
// is reused between calls.
func (s *ParticleStore) RenderBuffer() []float32 {
	s.mustAgree()
	for i, p := range s.particles {
		o := i * RenderStride
		buf := s.render[o : o+RenderStride : o+RenderStride]
		buf[0], buf[1], buf[2] = float32(p.Position.X), float32(p.Position.Y), float32(p.Position.Z)
		buf[3], buf[4], buf[5] = float32(p.Velocity.X), float32(p.Velocity.Y), float32(p.Velocity.Z)
		buf[6], buf[7], buf[8] = float32(p.Color.R), float32(p.Color.G), float32(p.Color.B)
	}
	return s.render
}
