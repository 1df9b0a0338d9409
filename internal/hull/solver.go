package hull

import (
	"math"

	"github.com/golang/geo/r3"
)

type edge [2]int

type face struct {
	v      [3]int
	normal r3.Vector
	offset float64
	alive  bool
}

func (f *face) distance(p r3.Vector) float64 {
	return f.normal.Dot(p) - f.offset
}

// solver holds the face/edge state of the incremental algorithm.
type solver struct {
	pts      []r3.Vector
	eps      float64
	interior r3.Vector
	faces    []face
	edges    map[edge]int // directed edge -> owning face
	simplex  [4]int

	// reused per insertion
	visible []int
	mark    []int
	stamp   int
	horizon []edge
}

func newSolver(points []r3.Vector, rel float64) (*solver, error) {
	eps, err := tolerance(points, rel)
	if err != nil {
		return nil, err
	}
	simplex, err := findSimplex(points, eps)
	if err != nil {
		return nil, err
	}

	s := &solver{
		pts:     points,
		eps:     eps,
		edges:   make(map[edge]int, 6*len(points)),
		simplex: simplex,
	}
	i0, i1, i2, i3 := simplex[0], simplex[1], simplex[2], simplex[3]
	s.interior = points[i0].Add(points[i1]).Add(points[i2]).Add(points[i3]).Mul(0.25)
	for _, tri := range [4][3]int{{i0, i1, i2}, {i0, i1, i3}, {i0, i2, i3}, {i1, i2, i3}} {
		if _, err := s.addFace(tri[0], tri[1], tri[2]); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// tolerance scales rel by the extent of the point set.
func tolerance(points []r3.Vector, rel float64) (float64, error) {
	if len(points) < 4 {
		return 0, ErrTooFewPoints
	}
	var maxAbs r3.Vector
	for _, p := range points {
		maxAbs.X = math.Max(maxAbs.X, math.Abs(p.X))
		maxAbs.Y = math.Max(maxAbs.Y, math.Abs(p.Y))
		maxAbs.Z = math.Max(maxAbs.Z, math.Abs(p.Z))
	}
	scale := maxAbs.X + maxAbs.Y + maxAbs.Z
	if scale == 0 {
		return 0, ErrDegenerate
	}
	return rel * scale, nil
}

// findSimplex picks four points spanning a tetrahedron thicker than eps, or
// reports the set as degenerate.
func findSimplex(pts []r3.Vector, eps float64) ([4]int, error) {
	// Extreme points along each coordinate axis.
	var ext [6]int
	for i, p := range pts {
		if p.X < pts[ext[0]].X {
			ext[0] = i
		}
		if p.X > pts[ext[1]].X {
			ext[1] = i
		}
		if p.Y < pts[ext[2]].Y {
			ext[2] = i
		}
		if p.Y > pts[ext[3]].Y {
			ext[3] = i
		}
		if p.Z < pts[ext[4]].Z {
			ext[4] = i
		}
		if p.Z > pts[ext[5]].Z {
			ext[5] = i
		}
	}

	i0, i1, best := 0, 0, -1.0
	for a := 0; a < 6; a++ {
		for b := a + 1; b < 6; b++ {
			if d := pts[ext[a]].Sub(pts[ext[b]]).Norm2(); d > best {
				i0, i1, best = ext[a], ext[b], d
			}
		}
	}
	if math.Sqrt(best) <= eps {
		return [4]int{}, ErrDegenerate
	}

	dir := pts[i1].Sub(pts[i0]).Normalize()
	i2, best := -1, eps
	for i, p := range pts {
		v := p.Sub(pts[i0])
		if d := v.Sub(dir.Mul(v.Dot(dir))).Norm(); d > best {
			i2, best = i, d
		}
	}
	if i2 < 0 {
		return [4]int{}, ErrDegenerate
	}

	n := pts[i1].Sub(pts[i0]).Cross(pts[i2].Sub(pts[i0])).Normalize()
	i3, best := -1, eps
	for i, p := range pts {
		if d := math.Abs(n.Dot(p.Sub(pts[i0]))); d > best {
			i3, best = i, d
		}
	}
	if i3 < 0 {
		return [4]int{}, ErrDegenerate
	}
	return [4]int{i0, i1, i2, i3}, nil
}

// addFace creates a face oriented away from the interior point and registers its edges.
func (s *solver) addFace(a, b, c int) (int, error) {
	pa, pb, pc := s.pts[a], s.pts[b], s.pts[c]
	n := pb.Sub(pa).Cross(pc.Sub(pa))
	if n.Dot(s.interior.Sub(pa)) > 0 {
		b, c = c, b
		n = n.Mul(-1)
	}
	if l := n.Norm(); l > 0 {
		n = n.Mul(1 / l)
	}

	id := len(s.faces)
	f := face{v: [3]int{a, b, c}, normal: n, offset: n.Dot(pa), alive: true}
	for k := 0; k < 3; k++ {
		e := edge{f.v[k], f.v[(k+1)%3]}
		if _, dup := s.edges[e]; dup {
			return -1, ErrNotManifold
		}
		s.edges[e] = id
	}
	s.faces = append(s.faces, f)
	s.mark = append(s.mark, 0)
	return id, nil
}

func (s *solver) removeFace(id int) {
	f := &s.faces[id]
	f.alive = false
	for k := 0; k < 3; k++ {
		e := edge{f.v[k], f.v[(k+1)%3]}
		if s.edges[e] == id {
			delete(s.edges, e)
		}
	}
}

// collectHorizon gathers edges of visible faces whose neighbour is not visible.
// Faces in s.visible must carry the current stamp.
func (s *solver) collectHorizon() error {
	s.horizon = s.horizon[:0]
	for _, id := range s.visible {
		f := &s.faces[id]
		for k := 0; k < 3; k++ {
			a, b := f.v[k], f.v[(k+1)%3]
			nb, ok := s.edges[edge{b, a}]
			if !ok {
				return ErrNotManifold
			}
			if s.mark[nb] != s.stamp {
				s.horizon = append(s.horizon, edge{a, b})
			}
		}
	}
	if len(s.horizon) < 3 {
		return ErrNotManifold
	}
	return nil
}

// replaceVisible deletes the visible faces and cones the horizon to point p.
// It returns the ids of the new faces.
func (s *solver) replaceVisible(p int) ([]int, error) {
	if err := s.collectHorizon(); err != nil {
		return nil, err
	}
	for _, id := range s.visible {
		s.removeFace(id)
	}
	created := make([]int, 0, len(s.horizon))
	for _, e := range s.horizon {
		id, err := s.addFace(e[0], e[1], p)
		if err != nil {
			return nil, err
		}
		created = append(created, id)
	}
	return created, nil
}

func (s *solver) incremental() error {
	for i, p := range s.pts {
		if i == s.simplex[0] || i == s.simplex[1] || i == s.simplex[2] || i == s.simplex[3] {
			continue
		}

		s.stamp++
		s.visible = s.visible[:0]
		for id := range s.faces {
			if s.faces[id].alive && s.faces[id].distance(p) > s.eps {
				s.mark[id] = s.stamp
				s.visible = append(s.visible, id)
			}
		}
		if len(s.visible) == 0 {
			continue
		}
		if _, err := s.replaceVisible(i); err != nil {
			return err
		}
	}
	return nil
}

// checkContainsAll verifies no input point ended up outside the hull.
func (s *solver) checkContainsAll() error {
	tol := 10 * s.eps
	for id := range s.faces {
		f := &s.faces[id]
		if !f.alive {
			continue
		}
		for _, p := range s.pts {
			if f.distance(p) > tol {
				return ErrNotConvex
			}
		}
	}
	return nil
}

// result compacts the live faces into a Hull.
func (s *solver) result() (Hull, error) {
	for e := range s.edges {
		if _, ok := s.edges[edge{e[1], e[0]}]; !ok {
			return Hull{}, ErrNotManifold
		}
	}

	remap := make(map[int]uint32)
	var h Hull
	for id := range s.faces {
		f := &s.faces[id]
		if !f.alive {
			continue
		}
		for _, v := range f.v {
			idx, ok := remap[v]
			if !ok {
				idx = uint32(len(h.Vertices))
				remap[v] = idx
				h.Vertices = append(h.Vertices, s.pts[v])
				h.Source = append(h.Source, v)
			}
			h.Indices = append(h.Indices, idx)
		}
	}
	if h.NumTriangles() < 4 {
		return Hull{}, ErrNotManifold
	}
	return h, nil
}
