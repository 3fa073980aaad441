package dynamo_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

func newSim(n int, st dynamo.Strategy) *dynamo.Simulator {
	cfg := dynamo.DefaultConfig()
	cfg.ParticleCount = n
	cfg.Workers = 4
	cfg.Strategy = st
	sim, err := dynamo.New(cfg)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(sim.Close)
	return sim
}

func snapshot(sim *dynamo.Simulator) []dynamo.Particle {
	return append([]dynamo.Particle(nil), sim.Particles()...)
}

func maxDiff(a, b []r3.Vec) float64 {
	worst := 0.0
	for i := range a {
		worst = math.Max(worst, r3.Norm(r3.Sub(a[i], b[i])))
	}
	return worst
}

var _ = Describe("Simulator", func() {
	Describe("construction", func() {
		It("spawns the configured number of particles", func() {
			sim := newSim(300, dynamo.BarnesHut)
			Expect(sim.ParticleCount()).To(Equal(300))
			Expect(sim.RenderBuffer()).To(HaveLen(300 * dynamo.RenderStride))
			Expect(sim.Validate()).To(Succeed())
		})

		It("rejects invalid parameters", func() {
			cfg := dynamo.DefaultConfig()
			cfg.Params.Damping = 2
			_, err := dynamo.New(cfg)
			Expect(errors.Is(err, dynamo.ErrParameterBounds)).To(BeTrue())
		})

		It("rejects unknown strategies", func() {
			cfg := dynamo.DefaultConfig()
			cfg.Strategy = dynamo.Strategy(42)
			_, err := dynamo.New(cfg)
			Expect(err).To(MatchError(dynamo.ErrUnknownStrategy))
		})

		It("is reproducible for a fixed seed", func() {
			a := newSim(200, dynamo.BarnesHut)
			b := newSim(200, dynamo.BarnesHut)
			for i := 0; i < 5; i++ {
				a.Update(0.01)
				b.Update(0.01)
			}
			Expect(a.Particles()).To(Equal(b.Particles()))
		})
	})

	Describe("pause", func() {
		It("leaves the state untouched while paused", func() {
			sim := newSim(200, dynamo.DirectParallel)
			sim.TogglePause()
			Expect(sim.IsPaused()).To(BeTrue())

			before := snapshot(sim)
			for i := 0; i < 10; i++ {
				sim.Update(0.01)
			}
			Expect(sim.Particles()).To(Equal(before))

			sim.TogglePause()
			sim.Update(0.01)
			Expect(sim.Particles()).NotTo(Equal(before))
		})
	})

	Describe("two bodies", func() {
		It("pulls them towards each other symmetrically", func() {
			sim := newSim(0, dynamo.Direct)
			Expect(sim.SetDamping(1)).To(Succeed())
			sim.LoadParticles([]dynamo.Particle{
				{Mass: 1, Position: r3.Vec{X: -1}},
				{Mass: 1, Position: r3.Vec{X: 1}},
			})

			sim.Update(0.1)

			ps := sim.Particles()
			Expect(ps[0].Velocity.X).To(BeNumerically(">", 0))
			Expect(ps[1].Velocity.X).To(BeNumerically("<", 0))
			Expect(ps[0].Velocity.X).To(BeNumerically("~", -ps[1].Velocity.X, 1e-12))
			Expect(ps[0].Position.X + ps[1].Position.X).To(BeNumerically("~", 0, 1e-12))

			// F = 1*1*1/(4+10) on each body, a = F/m.
			a := 1.0 / 14
			Expect(ps[0].Velocity.X).To(BeNumerically("~", a*0.1, 1e-12))
		})
	})

	Describe("resizing", func() {
		It("respawns the requested count with a matching render buffer", func() {
			sim := newSim(500, dynamo.BarnesHut)
			sim.Update(0.01)

			Expect(sim.SetParticleCount(100)).To(Succeed())
			Expect(sim.ParticleCount()).To(Equal(100))
			Expect(sim.RenderBuffer()).To(HaveLen(100 * dynamo.RenderStride))
			for _, p := range sim.Particles() {
				Expect(p.Velocity).To(Equal(r3.Vec{}))
				Expect(r3.Norm(p.Position)).To(BeNumerically("~", 3, 1e-9))
			}
			sim.Update(0.01)
			Expect(sim.Validate()).To(Succeed())
		})

		It("rejects a negative count", func() {
			sim := newSim(10, dynamo.Direct)
			Expect(sim.SetParticleCount(-1)).To(MatchError(dynamo.ErrParameterBounds))
			Expect(sim.ParticleCount()).To(Equal(10))
		})

		It("does nothing on an empty population", func() {
			sim := newSim(0, dynamo.BarnesHut)
			sim.Update(0.01)
			Expect(sim.Evaluate()).To(BeEmpty())
		})
	})

	Describe("strategies", func() {
		var sim *dynamo.Simulator

		BeforeEach(func() {
			sim = newSim(400, dynamo.Direct)
		})

		It("gives identical forces for direct and parallel", func() {
			direct := sim.Evaluate()
			Expect(sim.SetStrategy(dynamo.DirectParallel)).To(Succeed())
			parallel := sim.Evaluate()
			Expect(maxDiff(direct, parallel)).To(BeNumerically("<", 1e-12))
		})

		It("matches the direct sum with an exact tree", func() {
			Expect(sim.SetTheta(0)).To(Succeed())
			direct := sim.Evaluate()
			Expect(sim.SetStrategy(dynamo.BarnesHut)).To(Succeed())
			tree := sim.Evaluate()
			Expect(maxDiff(direct, tree)).To(BeNumerically("<", 1e-9))
			Expect(sim.TreeStats().Nodes).To(BeNumerically(">", 1))
		})

		It("keeps particle state across a switch", func() {
			sim.Update(0.01)
			before := snapshot(sim)
			for _, st := range dynamo.Strategies {
				Expect(sim.SetStrategy(st)).To(Succeed())
				Expect(sim.Particles()).To(Equal(before))
			}
		})

		It("cycles through every strategy", func() {
			st := dynamo.Direct
			seen := map[dynamo.Strategy]bool{}
			for range dynamo.Strategies {
				seen[st] = true
				st = st.Next()
			}
			Expect(st).To(Equal(dynamo.Direct))
			Expect(seen).To(HaveLen(len(dynamo.Strategies)))
		})

		It("zeroes every force when no sources interact", func() {
			Expect(sim.SetInteractionFraction(0)).To(Succeed())
			for _, f := range sim.Evaluate() {
				Expect(f).To(Equal(r3.Vec{}))
			}
		})

		It("leaves accumulators clear after evaluating", func() {
			sim.Evaluate()
			for _, p := range sim.Particles() {
				Expect(p.Force).To(Equal(r3.Vec{}))
			}
		})
	})

	Describe("parameters", func() {
		var sim *dynamo.Simulator

		BeforeEach(func() {
			sim = newSim(10, dynamo.Direct)
		})

		DescribeTable("out of range values are rejected",
			func(name string, v float64) {
				before := sim.GetParams()
				err := sim.SetParam(name, v)
				Expect(errors.Is(err, dynamo.ErrParameterBounds)).To(BeTrue())
				var pe *dynamo.ParamError
				Expect(errors.As(err, &pe)).To(BeTrue())
				Expect(pe.Name).To(Equal(name))
				Expect(sim.GetParams()).To(Equal(before))
			},
			Entry("negative softening", "softening", -1.0),
			Entry("damping above one", "damping", 1.5),
			Entry("negative gravity", "gravity", -2.0),
			Entry("negative theta", "theta", -0.1),
			Entry("fraction above one", "interaction_fraction", 1.1),
			Entry("NaN mass", "particle_mass", math.NaN()),
		)

		It("accepts every listed name", func() {
			for _, name := range sim.ParamNames() {
				Expect(sim.SetParam(name, 0.5)).To(Succeed(), name)
				Expect(sim.GetParams()[name]).To(Equal(0.5))
			}
		})

		It("rejects unknown names", func() {
			Expect(sim.SetParam("mass_of_sun", 1)).To(MatchError(dynamo.ErrUnknownParam))
		})

		It("respawns around a moved center", func() {
			Expect(sim.SetSpawnCenter(r3.Vec{X: 10})).To(Succeed())
			Expect(sim.SetSpawnRadius(1)).To(Succeed())
			sim.Reset()
			for _, p := range sim.Particles() {
				Expect(r3.Norm(r3.Sub(p.Position, r3.Vec{X: 10}))).To(BeNumerically("~", 1, 1e-9))
			}
		})
	})

	Describe("state validation", func() {
		It("reports NaN particles", func() {
			sim := newSim(0, dynamo.Direct)
			sim.LoadParticles([]dynamo.Particle{{Mass: 1, Position: r3.Vec{X: math.NaN()}}})
			Expect(sim.Validate()).To(MatchError(dynamo.ErrInvalidState))
		})
	})
})
