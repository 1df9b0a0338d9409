package hull

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	quickhull "github.com/markus-wa/quickhull-go/v2"
)

// quickHullEpsilon is the library's default tolerance, relative to the extent
// of the point cloud.
const quickHullEpsilon = 1e-7

// QuickHull runs github.com/markus-wa/quickhull-go on a point set that spans
// three dimensions and checks the result is a closed hull containing every
// input point. Epsilon is relative to the extent of the points; zero selects
// 1e-7.
type QuickHull struct {
	Epsilon float64
}

// Name implements Algorithm.
func (QuickHull) Name() string { return "quickhull" }

// Build implements Algorithm.
func (q QuickHull) Build(points []r3.Vector) (h Hull, err error) {
	rel := q.Epsilon
	if rel <= 0 {
		rel = quickHullEpsilon
	}
	eps, err := tolerance(points, rel)
	if err != nil {
		return Hull{}, err
	}
	// The library falls back to a flat hull for planar input; reject that up front.
	if _, err := findSimplex(points, eps); err != nil {
		return Hull{}, err
	}

	// The library asserts its half-edge invariants with panics.
	defer func() {
		if r := recover(); r != nil {
			h, err = Hull{}, fmt.Errorf("%w: quickhull: %v", ErrNotManifold, r)
		}
	}()

	// Capacity is clipped so the library's planar path cannot append into points.
	res := new(quickhull.QuickHull).ConvexHull(points[:len(points):len(points)], true, true, rel)
	h = compact(points, res.Indices)
	if h.NumTriangles() < 4 {
		return Hull{}, ErrDegenerate
	}
	orientOutward(&h)
	if err := checkClosed(h.Indices); err != nil {
		return Hull{}, err
	}
	if err := checkContains(h, points, 10*eps); err != nil {
		return Hull{}, err
	}
	return h, nil
}

// compact keeps the points referenced by indices, in first-use order.
func compact(points []r3.Vector, indices []int) Hull {
	remap := make(map[int]uint32, len(indices)/2)
	h := Hull{Indices: make([]uint32, 0, len(indices))}
	for _, v := range indices {
		idx, ok := remap[v]
		if !ok {
			idx = uint32(len(h.Vertices))
			remap[v] = idx
			h.Vertices = append(h.Vertices, points[v])
			h.Source = append(h.Source, v)
		}
		h.Indices = append(h.Indices, idx)
	}
	return h
}

// orientOutward flips triangles facing the vertex centroid.
func orientOutward(h *Hull) {
	var c r3.Vector
	for _, v := range h.Vertices {
		c = c.Add(v)
	}
	c = c.Mul(1 / float64(len(h.Vertices)))

	for i := 0; i < h.NumTriangles(); i++ {
		a, b, d := h.Triangle(i)
		if b.Sub(a).Cross(d.Sub(a)).Dot(c.Sub(a)) > 0 {
			h.Indices[3*i+1], h.Indices[3*i+2] = h.Indices[3*i+2], h.Indices[3*i+1]
		}
	}
}

// checkClosed requires every directed edge to appear once and be matched by
// its reverse.
func checkClosed(indices []uint32) error {
	seen := make(map[[2]uint32]struct{}, len(indices))
	for i := 0; i < len(indices); i += 3 {
		for k := 0; k < 3; k++ {
			e := [2]uint32{indices[i+k], indices[i+(k+1)%3]}
			if _, dup := seen[e]; dup {
				return ErrNotManifold
			}
			seen[e] = struct{}{}
		}
	}
	for e := range seen {
		if _, ok := seen[[2]uint32{e[1], e[0]}]; !ok {
			return ErrNotManifold
		}
	}
	return nil
}

// checkContains requires every point to lie on or behind every face plane.
func checkContains(h Hull, points []r3.Vector, tol float64) error {
	for i := 0; i < h.NumTriangles(); i++ {
		a, b, c := h.Triangle(i)
		n := b.Sub(a).Cross(c.Sub(a))
		l := n.Norm()
		if l == 0 || math.IsNaN(l) {
			return ErrDegenerate
		}
		n = n.Mul(1 / l)
		for _, p := range points {
			if n.Dot(p.Sub(a)) > tol {
				return ErrNotConvex
			}
		}
	}
	return nil
}
