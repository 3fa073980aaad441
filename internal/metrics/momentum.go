package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

// TotalMomentum returns Σ m v.
func TotalMomentum(ps []dynamo.Particle) r3.Vec {
	var p r3.Vec
	for i := range ps {
		p = r3.Add(p, r3.Scale(ps[i].Mass, ps[i].Velocity))
	}
	return p
}

// CenterOfMass returns the mass-weighted mean position, or the origin when
// the total mass is zero.
func CenterOfMass(ps []dynamo.Particle) r3.Vec {
	var mass float64
	var weighted r3.Vec
	for i := range ps {
		mass += ps[i].Mass
		weighted = r3.Add(weighted, r3.Scale(ps[i].Mass, ps[i].Position))
	}
	if mass <= 0 {
		return r3.Vec{}
	}
	return r3.Scale(1/mass, weighted)
}

// Momentum reports |Σ m v| at the latest observation.
type Momentum struct {
	value float64
}

func NewMomentum() *Momentum { return &Momentum{} }

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Observe(ps []dynamo.Particle, _ dynamo.Params, _ float64) {
	m.value = r3.Norm(TotalMomentum(ps))
}

func (m *Momentum) Value() float64 { return m.value }
func (m *Momentum) Reset()         { m.value = 0 }

// CenterOfMassShift reports how far the center of mass has moved since the
// first observation.
type CenterOfMassShift struct {
	origin  r3.Vec
	shift   float64
	samples int
}

func NewCenterOfMassShift() *CenterOfMassShift { return &CenterOfMassShift{} }

func (c *CenterOfMassShift) Name() string { return "com_shift" }

func (c *CenterOfMassShift) Observe(ps []dynamo.Particle, _ dynamo.Params, _ float64) {
	com := CenterOfMass(ps)
	if c.samples == 0 {
		c.origin = com
	}
	c.samples++
	c.shift = r3.Norm(r3.Sub(com, c.origin))
}

func (c *CenterOfMassShift) Value() float64 { return c.shift }

func (c *CenterOfMassShift) Reset() {
	c.origin = r3.Vec{}
	c.shift = 0
	c.samples = 0
}
