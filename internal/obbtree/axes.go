package obbtree

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"

	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
)

// minHalfExtent keeps flat boxes from collapsing to zero thickness.
const minHalfExtent = 1e-9

// hullMesh is a node's hull in original (unperturbed) coordinates.
type hullMesh struct {
	verts []mgl64.Vec3
	tris  []uint32
}

func (h *hullMesh) numTriangles() int { return len(h.tris) / 3 }

func (h *hullMesh) triangle(i int) (a, b, c mgl64.Vec3) {
	return h.verts[h.tris[3*i]], h.verts[h.tris[3*i+1]], h.verts[h.tris[3*i+2]]
}

// computeAxes returns the box axes for a hull.
func computeAxes(h *hullMesh) ([3]mgl64.Vec3, error) {
	if h.numTriangles() == 1 {
		return triangleAxes(h.triangle(0))
	}
	c, err := hullCovariance(h)
	if err != nil {
		return [3]mgl64.Vec3{}, err
	}
	return principalAxes(c)
}

// triangleAxes uses the first edge, the face normal and their cross product.
func triangleAxes(a, b, c mgl64.Vec3) ([3]mgl64.Vec3, error) {
	e1 := b.Sub(a)
	n := e1.Cross(c.Sub(a))
	if !(n.Len() > 0) {
		return [3]mgl64.Vec3{}, ErrZeroHullArea
	}
	u := e1.Normalize()
	w := n.Normalize()
	return rightHanded([3]mgl64.Vec3{u, w, u.Cross(w)})
}

// hullCovariance is the area-weighted covariance of the hull surface
// (Gottschalk, Lin, Manocha 1996). Coordinates are taken relative to the first
// hull vertex to limit cancellation for meshes far from the origin.
func hullCovariance(h *hullMesh) (mgl64.Mat3, error) {
	origin := h.verts[0]

	var total float64
	var centroid mgl64.Vec3
	var acc [3][3]float64

	for i := 0; i < h.numTriangles(); i++ {
		p, q, r := h.triangle(i)
		p, q, r = p.Sub(origin), q.Sub(origin), r.Sub(origin)

		area := obbmath.TriangleArea(p, q, r)
		m := obbmath.Centroid(p, q, r)
		total += area
		centroid = centroid.Add(m.Mul(area))

		w := area / 12
		for j := 0; j < 3; j++ {
			for k := j; k < 3; k++ {
				acc[j][k] += w * (9*m[j]*m[k] + p[j]*p[k] + q[j]*q[k] + r[j]*r[k])
			}
		}
	}
	if !(total > 0) {
		return mgl64.Mat3{}, ErrZeroHullArea
	}

	centroid = centroid.Mul(1 / total)
	var c mgl64.Mat3
	for j := 0; j < 3; j++ {
		for k := j; k < 3; k++ {
			v := acc[j][k]/total - centroid[j]*centroid[k]
			c.Set(j, k, v)
			c.Set(k, j, v)
		}
	}
	return c, nil
}

// box is the fitted extent of a vertex set along three axes.
type box struct {
	axes   [3]mgl64.Vec3
	min    mgl64.Vec3 // per-axis projections
	max    mgl64.Vec3
	half   mgl64.Vec3
	center mgl64.Vec3
}

func fitBox(axes [3]mgl64.Vec3, vertices []mgl64.Vec3, unique []int32) box {
	b := box{axes: axes}
	for k := 0; k < 3; k++ {
		b.min[k] = math.Inf(1)
		b.max[k] = math.Inf(-1)
	}
	for _, v := range unique {
		p := vertices[v]
		for k := 0; k < 3; k++ {
			d := axes[k].Dot(p)
			b.min[k] = math.Min(b.min[k], d)
			b.max[k] = math.Max(b.max[k], d)
		}
	}
	for k := 0; k < 3; k++ {
		b.half[k] = math.Max((b.max[k]-b.min[k])/2, minHalfExtent)
		b.center = b.center.Add(axes[k].Mul((b.min[k] + b.max[k]) / 2))
	}
	return b
}

// axisOrder returns axis indices by decreasing half extent.
func (b *box) axisOrder() [3]int {
	order := [3]int{0, 1, 2}
	sort.SliceStable(order[:], func(i, j int) bool {
		return b.half[order[i]] > b.half[order[j]]
	})
	return order
}
