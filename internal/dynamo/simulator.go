package dynamo

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/san-kum/nbodysim/internal/logger"
	"gonum.org/v1/gonum/spatial/r3"
)

// Simulator is the single entry point for the host. It owns the particles,
// the worker pool and the random source, and runs one complete step per
// Update call using the active strategy.
type Simulator struct {
	params   Params
	strategy Strategy
	paused   bool

	store *ParticleStore
	tree  *Octree
	built bool
	pool  *Pool
	rng   *rand.Rand
	log   *slog.Logger
}

// New builds a simulator and spawns cfg.ParticleCount particles.
func New(cfg Config) (*Simulator, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.ParticleCount < 0 {
		return nil, &ParamError{Name: "particle_count", Value: float64(cfg.ParticleCount), Wrapped: ErrParameterBounds}
	}
	switch cfg.Strategy {
	case Direct, DirectParallel, BarnesHut:
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownStrategy, cfg.Strategy)
	}

	s := &Simulator{
		params:   cfg.Params,
		strategy: cfg.Strategy,
		store:    NewParticleStore(cfg.ParticleCount),
		tree:     &Octree{},
		pool:     NewPool(cfg.Workers),
		rng:      rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
		log:      logger.WithComponent("dynamo"),
	}
	s.Reset()
	s.log.Debug("simulator ready",
		"particles", cfg.ParticleCount,
		"workers", s.pool.Workers(),
		"strategy", s.strategy.String())
	return s, nil
}

// Close stops the worker pool.
func (s *Simulator) Close() {
	s.pool.Close()
}

// Update advances the simulation by dt. It does nothing while paused.
func (s *Simulator) Update(dt float64) {
	if s.paused || s.store.Len() == 0 {
		return
	}
	s.step(dt, true)
}

// Evaluate computes the force on every particle with the active strategy
// without moving anything. The accumulators are cleared again before it
// returns, so a following Update is unaffected.
func (s *Simulator) Evaluate() []r3.Vec {
	n := s.store.Len()
	out := make([]r3.Vec, n)
	if n == 0 {
		return out
	}
	s.step(0, false)
	for i, p := range s.store.Particles() {
		out[i] = p.Force
	}
	s.store.ClearForces()
	return out
}

func (s *Simulator) step(dt float64, integrate bool) {
	ps := s.store.Particles()
	n := len(ps)
	p := s.params
	integratePhase := func(start, end int) { Integrate(ps, start, end, dt, p) }

	switch s.strategy {
	case Direct:
		accumulateDirect(ps, 0, n, interactionCount(n, p.InteractionFraction), p)
		if integrate {
			integratePhase(0, n)
		}
	case DirectParallel:
		k := interactionCount(n, p.InteractionFraction)
		s.runPhases(n, integrate, func(start, end int) { accumulateDirect(ps, start, end, k, p) }, integratePhase)
	case BarnesHut:
		s.buildTree(ps)
		s.runPhases(n, integrate, func(start, end int) { accumulateTree(s.tree, ps, start, end, p) }, integratePhase)
	default:
		panic(fmt.Sprintf("dynamo: unhandled strategy %v", s.strategy))
	}
}

func (s *Simulator) runPhases(n int, integrate bool, force, integratePhase Phase) {
	if integrate {
		s.pool.Run(n, force, integratePhase)
		return
	}
	s.pool.Run(n, force)
}

func (s *Simulator) buildTree(ps []Particle) {
	s.tree.Reset(RootBounds(ps), ps)
	dropped := 0
	for i := range ps {
		if !s.tree.Insert(i) {
			dropped++
		}
	}
	if dropped > 0 {
		s.log.Warn("particles outside octree root", "dropped", dropped)
	}
	s.tree.ComputeMassDistribution()
	s.built = true
}

// Reset respawns every particle on the spawn sphere with zero velocity.
func (s *Simulator) Reset() {
	s.store.Spawn(s.rng, SpawnSpec{
		Radius: s.params.SpawnRadius,
		Center: s.params.SpawnCenter,
		Mass:   s.params.ParticleMass,
	})
	s.built = false
}

// SetParticleCount resizes the population to n and respawns it.
func (s *Simulator) SetParticleCount(n int) error {
	if n < 0 {
		return &ParamError{Name: "particle_count", Value: float64(n), Wrapped: ErrParameterBounds}
	}
	s.store.Resize(n)
	s.Reset()
	s.log.Debug("particle count changed", "particles", n)
	return nil
}

func (s *Simulator) ParticleCount() int { return s.store.Len() }

// LoadParticles replaces the population with a copy of ps. Forces are
// cleared; colors are kept as given.
func (s *Simulator) LoadParticles(ps []Particle) {
	s.store.Resize(len(ps))
	dst := s.store.Particles()
	copy(dst, ps)
	s.store.ClearForces()
	s.built = false
}

// Particles exposes the live particle slice. It is only valid until the next
// call that changes the particle count.
func (s *Simulator) Particles() []Particle { return s.store.Particles() }

// RenderBuffer returns the stride-9 float32 view of the particles.
func (s *Simulator) RenderBuffer() []float32 { return s.store.RenderBuffer() }

// TreeStats describes the octree from the most recent BarnesHut step.
func (s *Simulator) TreeStats() TreeStats {
	if !s.built {
		return TreeStats{}
	}
	return s.tree.Stats()
}

func (s *Simulator) TogglePause()   { s.paused = !s.paused }
func (s *Simulator) IsPaused() bool { return s.paused }

// SetStrategy switches the force algorithm. Particle state is untouched.
func (s *Simulator) SetStrategy(st Strategy) error {
	switch st {
	case Direct, DirectParallel, BarnesHut:
	default:
		return fmt.Errorf("%w: %v", ErrUnknownStrategy, st)
	}
	if st != s.strategy {
		s.log.Debug("strategy changed", "from", s.strategy.String(), "to", st.String())
	}
	s.strategy = st
	return nil
}

func (s *Simulator) Strategy() Strategy { return s.strategy }

func (s *Simulator) Workers() int { return s.pool.Workers() }

// Params returns a copy of the current parameters.
func (s *Simulator) Params() Params { return s.params }

// SetParams replaces every parameter at once after validation.
func (s *Simulator) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.params = p
	return nil
}

func (s *Simulator) setChecked(name string, v, lo, hi float64, dst *float64) error {
	if err := checkRange(name, v, lo, hi); err != nil {
		return err
	}
	*dst = v
	return nil
}

var unbounded = math.Inf(1)

func (s *Simulator) SetSoftening(v float64) error {
	return s.setChecked("softening", v, 0, unbounded, &s.params.Softening)
}

func (s *Simulator) SetDamping(v float64) error {
	return s.setChecked("damping", v, 0, 1, &s.params.Damping)
}

func (s *Simulator) SetGravity(v float64) error {
	return s.setChecked("gravity", v, 0, unbounded, &s.params.Gravity)
}

// SetParticleMass changes the mass used by the integrator immediately and by
// spawned particles from the next Reset on.
func (s *Simulator) SetParticleMass(v float64) error {
	return s.setChecked("particle_mass", v, 0, unbounded, &s.params.ParticleMass)
}

func (s *Simulator) SetTheta(v float64) error {
	return s.setChecked("theta", v, 0, unbounded, &s.params.Theta)
}

func (s *Simulator) SetInteractionFraction(v float64) error {
	return s.setChecked("interaction_fraction", v, 0, 1, &s.params.InteractionFraction)
}

func (s *Simulator) SetSpawnRadius(v float64) error {
	return s.setChecked("spawn_radius", v, 0, unbounded, &s.params.SpawnRadius)
}

func (s *Simulator) SetSpawnCenter(c r3.Vec) error {
	if !finite(c) {
		return &ParamError{Name: "spawn_center", Value: c.X + c.Y + c.Z, Wrapped: ErrParameterBounds}
	}
	s.params.SpawnCenter = c
	return nil
}

// GetParams returns every scalar parameter by name.
func (s *Simulator) GetParams() map[string]float64 {
	p := s.params
	return map[string]float64{
		"softening":            p.Softening,
		"damping":              p.Damping,
		"gravity":              p.Gravity,
		"particle_mass":        p.ParticleMass,
		"theta":                p.Theta,
		"interaction_fraction": p.InteractionFraction,
		"spawn_radius":         p.SpawnRadius,
		"spawn_x":              p.SpawnCenter.X,
		"spawn_y":              p.SpawnCenter.Y,
		"spawn_z":              p.SpawnCenter.Z,
	}
}

// ParamNames lists the keys accepted by SetParam in sorted order.
func (s *Simulator) ParamNames() []string {
	params := s.GetParams()
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// SetParam sets a parameter by the name GetParams reports it under.
func (s *Simulator) SetParam(name string, v float64) error {
	switch name {
	case "softening":
		return s.SetSoftening(v)
	case "damping":
		return s.SetDamping(v)
	case "gravity":
		return s.SetGravity(v)
	case "particle_mass":
		return s.SetParticleMass(v)
	case "theta":
		return s.SetTheta(v)
	case "interaction_fraction":
		return s.SetInteractionFraction(v)
	case "spawn_radius":
		return s.SetSpawnRadius(v)
	case "spawn_x", "spawn_y", "spawn_z":
		c := s.params.SpawnCenter
		switch name {
		case "spawn_x":
			c.X = v
		case "spawn_y":
			c.Y = v
		default:
			c.Z = v
		}
		return s.SetSpawnCenter(c)
	}
	return fmt.Errorf("%w: %s", ErrUnknownParam, name)
}

// Validate reports ErrInvalidState if any particle holds NaN or Inf.
func (s *Simulator) Validate() error {
	for i := range s.store.Particles() {
		if !s.store.At(i).IsValid() {
			return fmt.Errorf("%w: particle %d", ErrInvalidState, i)
		}
	}
	return nil
}
