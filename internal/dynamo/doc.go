// Package dynamo implements the gravitational N-body engine: particle
// storage, the Barnes-Hut octree, force evaluation strategies, the
// integrator and the [Simulator] facade that ties them together.
//
//   - [ParticleStore]: contiguous particle state plus the render buffer
//   - [Octree]: arena-backed spatial tree rebuilt every step
//   - [Pool]: persistent workers running phases separated by a barrier
//   - [Simulator]: strategy selection, parameters, pause and reset
//
// # Example
//
//	sim, err := dynamo.New(dynamo.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer sim.Close()
//	sim.SetStrategy(dynamo.BarnesHut)
//	for i := 0; i < 100; i++ {
//		sim.Update(0.01)
//	}
//
// # Thread Safety
//
// A Simulator is driven by a single host goroutine. Update blocks until the
// whole step has finished; parameter setters, SetParticleCount and Reset must
// not be called concurrently with Update. The internal worker pool only ever
// writes the index range it was handed.
package dynamo
