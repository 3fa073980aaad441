package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

// Bounded is the fraction of observations in which every particle stayed
// within radius of the center of mass. Escapers pull it below one.
type Bounded struct {
	radius     float64
	violations int
	samples    int
}

func NewBounded(radius float64) *Bounded {
	return &Bounded{radius: radius}
}

func (b *Bounded) Name() string { return "bounded" }

func (b *Bounded) Observe(ps []dynamo.Particle, _ dynamo.Params, _ float64) {
	b.samples++
	com := CenterOfMass(ps)
	r2 := b.radius * b.radius
	for i := range ps {
		if r3.Norm2(r3.Sub(ps[i].Position, com)) > r2 {
			b.violations++
			break
		}
	}
}

func (b *Bounded) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounded) Reset() {
	b.violations = 0
	b.samples = 0
}
