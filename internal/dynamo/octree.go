package dynamo

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// NodeCapacity is the number of particles a leaf buffers before it splits.
	NodeCapacity = 8
	// MaxDepth stops subdivision; leaves at this depth take any number of
	// particles so coincident points cannot recurse forever.
	MaxDepth = 16

	noChild int32 = -1
)

type octreeNode struct {
	bounds       Bounds
	depth        int
	leaf         bool
	children     [8]int32
	particles    []int32
	centerOfMass r3.Vec
	totalMass    float64
}

// Octree is a Barnes-Hut tree over a particle slice. Nodes live in a single
// arena and refer to their children by index; node 0 is the root.
type Octree struct {
	nodes     []octreeNode
	particles []Particle
}

func NewOctree(bounds Bounds, particles []Particle) *Octree {
	t := &Octree{}
	t.Reset(bounds, particles)
	return t
}

// Reset discards the tree and starts over with an empty root. Arena storage
// is kept for reuse.
func (t *Octree) Reset(bounds Bounds, particles []Particle) {
	t.particles = particles
	t.nodes = t.nodes[:0]
	t.newNode(bounds, 0)
}

func (t *Octree) newNode(bounds Bounds, depth int) int32 {
	idx := len(t.nodes)
	if idx < cap(t.nodes) {
		t.nodes = t.nodes[:idx+1]
		buf := t.nodes[idx].particles[:0]
		t.nodes[idx] = octreeNode{particles: buf}
	} else {
		t.nodes = append(t.nodes, octreeNode{})
	}
	n := &t.nodes[idx]
	n.bounds = bounds
	n.depth = depth
	n.leaf = true
	for i := range n.children {
		n.children[i] = noChild
	}
	return int32(idx)
}

// Insert adds particle i to the tree. It returns false, leaving the tree
// untouched, when the particle lies outside the root bounds.
func (t *Octree) Insert(i int) bool {
	return t.insert(0, int32(i), true)
}

func (t *Octree) insert(node, i int32, checked bool) bool {
	if checked && !t.nodes[node].bounds.Contains(t.particles[i].Position) {
		return false
	}
	if t.nodes[node].leaf {
		n := &t.nodes[node]
		if len(n.particles) < NodeCapacity || n.depth >= MaxDepth {
			n.particles = append(n.particles, i)
			return true
		}
		t.subdivide(node)
	}
	// t.nodes may have been reallocated by subdivide; read children by value.
	children := t.nodes[node].children
	for _, c := range children {
		if t.insert(c, i, true) {
			return true
		}
	}
	// Rounding in child centers can leave a sliver between sibling faces that
	// the parent still covers.
	return t.insert(children[octant(t.nodes[node].bounds.Center, t.particles[i].Position)], i, false)
}

func octant(center, p r3.Vec) int {
	k := 0
	if p.X >= center.X {
		k |= 1
	}
	if p.Y >= center.Y {
		k |= 2
	}
	if p.Z >= center.Z {
		k |= 4
	}
	return k
}

func (t *Octree) subdivide(node int32) {
	parent := t.nodes[node]
	half := r3.Scale(0.5, parent.bounds.HalfExtent)
	c := parent.bounds.Center
	var children [8]int32
	for k := range children {
		center := r3.Vec{X: c.X - half.X, Y: c.Y - half.Y, Z: c.Z - half.Z}
		if k&1 != 0 {
			center.X = c.X + half.X
		}
		if k&2 != 0 {
			center.Y = c.Y + half.Y
		}
		if k&4 != 0 {
			center.Z = c.Z + half.Z
		}
		children[k] = t.newNode(Bounds{Center: center, HalfExtent: half}, parent.depth+1)
	}

	n := &t.nodes[node]
	n.children = children
	n.leaf = false
	buffered := n.particles
	n.particles = nil
	for _, i := range buffered {
		placed := false
		for _, ch := range children {
			if t.insert(ch, i, true) {
				placed = true
				break
			}
		}
		if !placed {
			t.insert(children[octant(c, t.particles[i].Position)], i, false)
		}
	}
	// Hand the emptied buffer back so the arena can reuse it.
	t.nodes[node].particles = buffered[:0]
}

// ComputeMassDistribution aggregates mass and center of mass bottom up.
func (t *Octree) ComputeMassDistribution() {
	if len(t.nodes) > 0 {
		t.aggregate(0)
	}
}

func (t *Octree) aggregate(node int32) {
	var mass float64
	var weighted r3.Vec
	if t.nodes[node].leaf {
		for _, i := range t.nodes[node].particles {
			p := &t.particles[i]
			mass += p.Mass
			weighted = r3.Add(weighted, r3.Scale(p.Mass, p.Position))
		}
	} else {
		for _, c := range t.nodes[node].children {
			t.aggregate(c)
			ch := &t.nodes[c]
			mass += ch.totalMass
			weighted = r3.Add(weighted, r3.Scale(ch.totalMass, ch.centerOfMass))
		}
	}
	n := &t.nodes[node]
	n.totalMass = mass
	if mass > 0 {
		n.centerOfMass = r3.Scale(1/mass, weighted)
	} else {
		n.totalMass = 0
		n.centerOfMass = r3.Vec{}
	}
}

// ForceOn returns the force on particle i from every other particle in the
// tree, accepting a node as a single mass when size/distance < theta.
// ComputeMassDistribution must have run since the last insertion.
func (t *Octree) ForceOn(i int, theta, gravity, softening float64) r3.Vec {
	if len(t.nodes) == 0 {
		return r3.Vec{}
	}
	return t.forceOn(0, int32(i), theta, gravity, softening)
}

func (t *Octree) forceOn(node, i int32, theta, gravity, softening float64) r3.Vec {
	n := &t.nodes[node]
	if n.totalMass <= 0 {
		return r3.Vec{}
	}
	p := &t.particles[i]
	s := 2 * n.bounds.HalfExtent.X
	d := r3.Norm(r3.Sub(p.Position, n.centerOfMass))
	if s/d < theta {
		return PairForce(p.Position, n.centerOfMass, p.Mass, n.totalMass, gravity, softening)
	}

	var f r3.Vec
	if !n.leaf {
		for _, c := range n.children {
			f = r3.Add(f, t.forceOn(c, i, theta, gravity, softening))
		}
		return f
	}
	for _, j := range n.particles {
		if j == i {
			continue
		}
		q := &t.particles[j]
		f = r3.Add(f, PairForce(p.Position, q.Position, p.Mass, q.Mass, gravity, softening))
	}
	return f
}

// NodeView is a read-only snapshot of one node.
type NodeView struct {
	Index        int
	Bounds       Bounds
	Depth        int
	Leaf         bool
	Particles    []int32
	CenterOfMass r3.Vec
	TotalMass    float64
}

func (t *Octree) view(idx int32) NodeView {
	n := &t.nodes[idx]
	return NodeView{
		Index:        int(idx),
		Bounds:       n.bounds,
		Depth:        n.depth,
		Leaf:         n.leaf,
		Particles:    n.particles,
		CenterOfMass: n.centerOfMass,
		TotalMass:    n.totalMass,
	}
}

func (t *Octree) Root() NodeView { return t.view(0) }

// Walk visits nodes depth first, parents before children. Returning false
// from fn skips the node's subtree.
func (t *Octree) Walk(fn func(NodeView) bool) {
	if len(t.nodes) > 0 {
		t.walk(0, fn)
	}
}

func (t *Octree) walk(idx int32, fn func(NodeView) bool) {
	if !fn(t.view(idx)) {
		return
	}
	if t.nodes[idx].leaf {
		return
	}
	for _, c := range t.nodes[idx].children {
		t.walk(c, fn)
	}
}

// Len counts the particles reachable from the root.
func (t *Octree) Len() int {
	n := 0
	t.Walk(func(v NodeView) bool {
		n += len(v.Particles)
		return true
	})
	return n
}

type TreeStats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
}

func (t *Octree) Stats() TreeStats {
	var st TreeStats
	t.Walk(func(v NodeView) bool {
		st.Nodes++
		if v.Leaf {
			st.Leaves++
		}
		if v.Depth > st.MaxDepth {
			st.MaxDepth = v.Depth
		}
		return true
	})
	return st
}

// RootBounds returns a cube enclosing every particle with 10% padding.
func RootBounds(particles []Particle) Bounds {
	if len(particles) == 0 {
		return Bounds{HalfExtent: r3.Vec{X: 1, Y: 1, Z: 1}}
	}
	lo, hi := boundingBox(particles)
	center := r3.Scale(0.5, r3.Add(lo, hi))
	half := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z))/2*1.1 + 1e-9
	return Bounds{Center: center, HalfExtent: r3.Vec{X: half, Y: half, Z: half}}
}
