// Package hull computes 3D convex hulls of point sets.
//
// QuickHull wraps github.com/markus-wa/quickhull-go and is fast but fragile on
// near-degenerate input. Incremental is slower, uses a looser tolerance and
// verifies that every input point ends up inside the result. Chain tries them
// in order so callers get the fast path in the common case and can fall back
// when neither copes.
package hull

import (
	"errors"
	"fmt"

	"github.com/golang/geo/r3"
)

// Hull errors.
var (
	ErrTooFewPoints = errors.New("hull: fewer than four points")
	ErrDegenerate   = errors.New("hull: points are collinear or coplanar")
	ErrNotManifold  = errors.New("hull: result is not a closed manifold")
	ErrNotConvex    = errors.New("hull: input point lies outside the result")
	ErrNoHull       = errors.New("hull: every algorithm failed")
	ErrUnknownAlgo  = errors.New("hull: unknown algorithm")
)

// Hull is a closed triangle mesh. Triangles wind counter-clockwise seen from outside.
type Hull struct {
	Vertices []r3.Vector
	Indices  []uint32
	// Source maps each hull vertex back to its index in the input point set.
	Source []int
}

// NumTriangles returns the number of hull triangles.
func (h Hull) NumTriangles() int {
	return len(h.Indices) / 3
}

// Triangle returns the corners of triangle i.
func (h Hull) Triangle(i int) (a, b, c r3.Vector) {
	return h.Vertices[h.Indices[3*i]], h.Vertices[h.Indices[3*i+1]], h.Vertices[h.Indices[3*i+2]]
}

// Algorithm builds a convex hull from a point set.
type Algorithm interface {
	Name() string
	Build(points []r3.Vector) (Hull, error)
}

// Chain tries each algorithm in order and returns the first usable hull.
// A result with at most one triangle counts as a failure.
type Chain []Algorithm

// Build returns the hull and the name of the algorithm that produced it.
func (c Chain) Build(points []r3.Vector) (Hull, string, error) {
	var errs []error
	for _, alg := range c {
		h, err := alg.Build(points)
		if err == nil && h.NumTriangles() > 1 {
			return h, alg.Name(), nil
		}
		if err == nil {
			err = fmt.Errorf("%s: %w", alg.Name(), ErrDegenerate)
		}
		errs = append(errs, err)
	}
	return Hull{}, "", fmt.Errorf("%w: %w", ErrNoHull, errors.Join(errs...))
}

// NewChain returns the fallback chain starting with the preferred algorithm.
func NewChain(preferred string) (Chain, error) {
	switch preferred {
	case QuickHull{}.Name(), "":
		return Chain{QuickHull{}, Incremental{}}, nil
	case Incremental{}.Name():
		return Chain{Incremental{}, QuickHull{}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgo, preferred)
	}
}

// Incremental inserts points in input order, testing every face for
// visibility. Default relative tolerance 1e-7.
type Incremental struct {
	Epsilon float64
}

// Name implements Algorithm.
func (Incremental) Name() string { return "incremental" }

// Build implements Algorithm.
func (in Incremental) Build(points []r3.Vector) (Hull, error) {
	eps := in.Epsilon
	if eps == 0 {
		eps = 1e-7
	}
	s, err := newSolver(points, eps)
	if err != nil {
		return Hull{}, err
	}
	if err := s.incremental(); err != nil {
		return Hull{}, err
	}
	if err := s.checkContainsAll(); err != nil {
		return Hull{}, err
	}
	return s.result()
}
