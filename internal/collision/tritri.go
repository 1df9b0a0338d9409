package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// planeEpsilon snaps signed plane distances to zero, relative to the size of
// the triangles involved.
const planeEpsilon = 1e-12

// TrianglesIntersect reports whether two triangles share at least one point,
// using Möller's interval overlap test ("A Fast Triangle-Triangle
// Intersection Test", 1997). Coplanar triangles are tested in 2D.
// Degenerate (zero-area) triangles never intersect.
func TrianglesIntersect(a, b [3]mgl64.Vec3) bool {
	n1 := a[1].Sub(a[0]).Cross(a[2].Sub(a[0]))
	n2 := b[1].Sub(b[0]).Cross(b[2].Sub(b[0]))
	l1, l2 := n1.Len(), n2.Len()
	if l1 == 0 || l2 == 0 {
		return false
	}
	n1, n2 = n1.Mul(1/l1), n2.Mul(1/l2)
	eps := planeEpsilon * extent(a, b)

	// Signed distances of b's corners to a's plane.
	du := signedDistances(n1, a[0], b, eps)
	if sameSide(du) {
		return false
	}
	// And of a's corners to b's plane.
	dv := signedDistances(n2, b[0], a, eps)
	if sameSide(dv) {
		return false
	}

	// Project onto the largest component of the intersection line direction.
	d := n1.Cross(n2)
	axis := largestAxis(d)
	vp := [3]float64{a[0][axis], a[1][axis], a[2][axis]}
	up := [3]float64{b[0][axis], b[1][axis], b[2][axis]}

	i1, ok := interval(vp, dv)
	if !ok {
		return coplanarIntersect(n1, a, b)
	}
	i2, ok := interval(up, du)
	if !ok {
		return coplanarIntersect(n1, a, b)
	}
	return !(i1[1] < i2[0] || i2[1] < i1[0])
}

func extent(a, b [3]mgl64.Vec3) float64 {
	m := 1.0
	for _, tri := range [2][3]mgl64.Vec3{a, b} {
		for _, v := range tri {
			m = math.Max(m, math.Max(math.Abs(v[0]), math.Max(math.Abs(v[1]), math.Abs(v[2]))))
		}
	}
	return m
}

func signedDistances(n, origin mgl64.Vec3, tri [3]mgl64.Vec3, eps float64) [3]float64 {
	var d [3]float64
	for i, v := range tri {
		d[i] = n.Dot(v.Sub(origin))
		if math.Abs(d[i]) < eps {
			d[i] = 0
		}
	}
	return d
}

// sameSide reports whether all three distances are nonzero with the same sign.
func sameSide(d [3]float64) bool {
	return d[0]*d[1] > 0 && d[0]*d[2] > 0
}

func largestAxis(v mgl64.Vec3) int {
	ax, ay, az := math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])
	switch {
	case ax >= ay && ax >= az:
		return 0
	case ay >= az:
		return 1
	default:
		return 2
	}
}

// interval returns the sorted interval where the triangle crosses the other
// triangle's plane, parameterised along the projection axis. ok is false when
// the triangle lies in the plane.
func interval(p, d [3]float64) (iv [2]float64, ok bool) {
	// The lone vertex on one side of the plane comes first.
	var x, y, z int
	switch {
	case d[0]*d[1] > 0:
		x, y, z = 2, 0, 1
	case d[0]*d[2] > 0:
		x, y, z = 1, 0, 2
	case d[1]*d[2] > 0 || d[0] != 0:
		x, y, z = 0, 1, 2
	case d[1] != 0:
		x, y, z = 1, 0, 2
	case d[2] != 0:
		x, y, z = 2, 0, 1
	default:
		return iv, false
	}
	iv[0] = p[x] + (p[y]-p[x])*d[x]/(d[x]-d[y])
	iv[1] = p[x] + (p[z]-p[x])*d[x]/(d[x]-d[z])
	if iv[0] > iv[1] {
		iv[0], iv[1] = iv[1], iv[0]
	}
	return iv, true
}

// coplanarIntersect tests two triangles lying in the plane with normal n by
// projecting onto the coordinate plane where their area is largest.
func coplanarIntersect(n mgl64.Vec3, a, b [3]mgl64.Vec3) bool {
	drop := largestAxis(n)
	i0, i1 := (drop+1)%3, (drop+2)%3
	project := func(t [3]mgl64.Vec3) [3]mgl64.Vec2 {
		return [3]mgl64.Vec2{{t[0][i0], t[0][i1]}, {t[1][i0], t[1][i1]}, {t[2][i0], t[2][i1]}}
	}
	pa, pb := project(a), project(b)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if segmentsIntersect(pa[i], pa[(i+1)%3], pb[j], pb[(j+1)%3]) {
				return true
			}
		}
	}
	// No edge crossings: one triangle is inside the other or they are apart.
	return pointInTriangle(pa[0], pb) || pointInTriangle(pb[0], pa)
}

func orient(a, b, c mgl64.Vec2) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p mgl64.Vec2) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// segmentsIntersect reports whether closed segments pq and rs share a point.
func segmentsIntersect(p, q, r, s mgl64.Vec2) bool {
	d1, d2 := orient(r, s, p), orient(r, s, q)
	d3, d4 := orient(p, q, r), orient(p, q, s)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(r, s, p):
		return true
	case d2 == 0 && onSegment(r, s, q):
		return true
	case d3 == 0 && onSegment(p, q, r):
		return true
	case d4 == 0 && onSegment(p, q, s):
		return true
	}
	return false
}

func pointInTriangle(p mgl64.Vec2, t [3]mgl64.Vec2) bool {
	d0 := orient(t[0], t[1], p)
	d1 := orient(t[1], t[2], p)
	d2 := orient(t[2], t[0], p)
	hasNeg := d0 < 0 || d1 < 0 || d2 < 0
	hasPos := d0 > 0 || d1 > 0 || d2 > 0
	return !(hasNeg && hasPos)
}
