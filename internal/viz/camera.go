package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/nbodysim/internal/dynamo"
)

// Camera orbits a target point. Rotations are applied X, then Y, then Z.
type Camera struct {
	RotX, RotY, RotZ float64
	Zoom             float64
	Distance         float64
	FOV              float64
	Target           r3.Vec
}

func NewCamera() *Camera {
	return &Camera{Zoom: 1, Distance: 12, FOV: mgl64.DegToRad(45)}
}

func (c *Camera) RotateX(a float64) { c.RotX += a }
func (c *Camera) RotateY(a float64) { c.RotY += a }
func (c *Camera) RotateZ(a float64) { c.RotZ += a }
func (c *Camera) ZoomIn()           { c.Zoom = math.Min(50, c.Zoom*1.2) }
func (c *Camera) ZoomOut()          { c.Zoom = math.Max(0.02, c.Zoom/1.2) }

// Fit centers the camera on center and backs off far enough to see a sphere
// of the given radius.
func (c *Camera) Fit(center r3.Vec, radius float64) {
	c.Target = center
	c.Distance = math.Max(radius, 1e-3) / math.Tan(c.FOV/2) * 1.2
}

// FitParticles fits the camera to the bounding sphere of ps.
func (c *Camera) FitParticles(ps []dynamo.Particle) {
	if len(ps) == 0 {
		return
	}
	b := dynamo.RootBounds(ps)
	c.Fit(b.Center, r3.Norm(b.HalfExtent))
}

func (c *Camera) view() mgl64.Mat4 {
	z := c.Zoom
	return mgl64.Translate3D(0, 0, -c.Distance).
		Mul4(mgl64.HomogRotate3DZ(c.RotZ)).
		Mul4(mgl64.HomogRotate3DY(c.RotY)).
		Mul4(mgl64.HomogRotate3DX(c.RotX)).
		Mul4(mgl64.Scale3D(z, z, z)).
		Mul4(mgl64.Translate3D(-c.Target.X, -c.Target.Y, -c.Target.Z))
}

// Projector maps world points onto a w×h pixel grid for one camera pose.
type Projector struct {
	vp   mgl64.Mat4
	w, h int
}

func (c *Camera) Projector(w, h int) Projector {
	aspect := 1.0
	if h > 0 {
		aspect = float64(w) / float64(h)
	}
	far := c.Distance*10 + 100
	proj := mgl64.Perspective(c.FOV, aspect, 0.01, far)
	return Projector{vp: proj.Mul4(c.view()), w: w, h: h}
}

// Project returns pixel coordinates, the NDC depth (smaller is nearer) and
// whether the point lands inside the frustum.
func (p Projector) Project(v r3.Vec) (x, y int, depth float64, ok bool) {
	clip := p.clip(v)
	if clip.W() <= 0 {
		return 0, 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	fx := (ndc.X() + 1) / 2 * float64(p.w)
	fy := (1 - ndc.Y()) / 2 * float64(p.h)
	x, y = int(math.Floor(fx)), int(math.Floor(fy))
	ok = x >= 0 && x < p.w && y >= 0 && y < p.h && ndc.Z() >= -1 && ndc.Z() <= 1
	return x, y, ndc.Z(), ok
}

func (p Projector) clip(v r3.Vec) mgl64.Vec4 {
	return p.vp.Mul4x1(mgl64.Vec4{v.X, v.Y, v.Z, 1})
}

// boxEdges lists the twelve edges of a box as corner index pairs; corner k
// sets +X, +Y and +Z by bits 1, 2 and 4.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7},
	{0, 2}, {1, 3}, {4, 6}, {5, 7},
	{0, 4}, {1, 5}, {2, 6}, {3, 7},
}

func boxCorners(b dynamo.Bounds) [8]r3.Vec {
	var out [8]r3.Vec
	for k := range out {
		d := r3.Scale(-1, b.HalfExtent)
		if k&1 != 0 {
			d.X = b.HalfExtent.X
		}
		if k&2 != 0 {
			d.Y = b.HalfExtent.Y
		}
		if k&4 != 0 {
			d.Z = b.HalfExtent.Z
		}
		out[k] = r3.Add(b.Center, d)
	}
	return out
}

// DrawBox draws the wireframe of b. Edges with an endpoint behind the camera
// are skipped.
func DrawBox(c *Canvas, p Projector, b dynamo.Bounds) {
	corners := boxCorners(b)
	var px, py [8]int
	var front [8]bool
	for k, v := range corners {
		x, y, _, _ := p.Project(v)
		px[k], py[k], front[k] = x, y, p.clip(v).W() > 0
	}
	for _, e := range boxEdges {
		if front[e[0]] && front[e[1]] {
			c.DrawLine(px[e[0]], py[e[0]], px[e[1]], py[e[1]])
		}
	}
}
