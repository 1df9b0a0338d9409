// Package obbtree builds, validates and persists oriented bounding box trees
// over triangle meshes.
//
// A tree is a flat arena of nodes addressed by int32 index. All nodes share
// one face index array which the builder permutes in place so that every node
// covers a contiguous range of triangles.
package obbtree

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
)

// Build and validation errors.
var (
	ErrInvalidMesh       = errors.New("obbtree: invalid mesh")
	ErrZeroHullArea      = errors.New("obbtree: hull has zero surface area")
	ErrBadBasis          = errors.New("obbtree: axes are not a proper orthonormal basis")
	ErrFaceCountMismatch = errors.New("obbtree: child face counts do not add up")
	ErrCannotSplit       = errors.New("obbtree: node cannot be split")
	ErrInvalidTree       = errors.New("obbtree: invariant violated")
)

// BasisTolerance bounds the orthonormality error accepted for node axes.
const BasisTolerance = 1e-5

// BuildError is a fatal construction error for one node.
type BuildError struct {
	Mesh      string
	Depth     int32
	FaceCount int32
	Err       error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("obbtree: build %q failed at depth %d (%d faces): %v", e.Mesh, e.Depth, e.FaceCount, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// Tree is an OBB tree over a triangle mesh.
type Tree struct {
	Name     string
	Nodes    []Node
	Indices  []int32      // 3 per face, permuted by the builder
	Vertices []mgl64.Vec3 // shared mesh vertex buffer, read only

	// Fingerprint identifies the input mesh and build options.
	Fingerprint uint64
}

// Root is the index of the root node.
const Root int32 = 0

// NumFaces returns the number of triangles covered by the tree.
func (t *Tree) NumFaces() int {
	return len(t.Indices) / 3
}

// Node returns node i.
func (t *Tree) Node(i int32) *Node {
	return &t.Nodes[i]
}

// Face returns the vertex indices of face slot f.
func (t *Tree) Face(f int32) [3]int32 {
	return [3]int32{t.Indices[3*f], t.Indices[3*f+1], t.Indices[3*f+2]}
}

// Triangle returns the object-space corners of face slot f.
func (t *Tree) Triangle(f int32) [3]mgl64.Vec3 {
	i := t.Face(f)
	return [3]mgl64.Vec3{t.Vertices[i[0]], t.Vertices[i[1]], t.Vertices[i[2]]}
}

// Stats summarises the shape of a tree.
type Stats struct {
	Nodes        int
	Leaves       int
	MaxDepth     int32
	MaxLeafFaces int32
	RenderItems  int
}

// Stats returns node counts and depth of t.
func (t *Tree) Stats() Stats {
	leaves := lo.Filter(t.Nodes, func(n Node, _ int) bool { return n.IsLeaf })
	return Stats{
		Nodes:  len(t.Nodes),
		Leaves: len(leaves),
		MaxDepth: lo.Reduce(t.Nodes, func(d int32, n Node, _ int) int32 {
			return max(d, n.Depth)
		}, 0),
		MaxLeafFaces: lo.Reduce(leaves, func(c int32, n Node, _ int) int32 {
			return max(c, n.FaceCount)
		}, 0),
		RenderItems: lo.CountBy(t.Nodes, func(n Node) bool { return n.Render != nil }),
	}
}

// Validate checks the structural invariants of the tree: children partition
// their parent's face range, leaves hold at least one face and have no
// children, and every basis is a proper rotation.
func (t *Tree) Validate() error {
	if len(t.Indices) == 0 || len(t.Indices)%3 != 0 {
		return fmt.Errorf("%w: %d face indices", ErrInvalidTree, len(t.Indices))
	}
	if len(t.Nodes) == 0 {
		return fmt.Errorf("%w: no nodes", ErrInvalidTree)
	}
	numFaces := int32(t.NumFaces())
	if len(t.Nodes) > int(2*numFaces-1) {
		return fmt.Errorf("%w: %d nodes for %d faces", ErrInvalidTree, len(t.Nodes), numFaces)
	}

	root := &t.Nodes[Root]
	if root.FaceStart != 0 || root.FaceCount != numFaces || root.Parent != NoNode {
		return fmt.Errorf("%w: root covers [%d,+%d) of %d faces", ErrInvalidTree, root.FaceStart, root.FaceCount, numFaces)
	}

	inRange := func(i int32) bool { return i > Root && int(i) < len(t.Nodes) }
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if !obbmath.IsProperRotation(n.Orientation, BasisTolerance) {
			return fmt.Errorf("%w: node %d: %w", ErrInvalidTree, i, ErrBadBasis)
		}
		if n.IsLeaf {
			if n.FaceCount < 1 {
				return fmt.Errorf("%w: leaf %d is empty", ErrInvalidTree, i)
			}
			if n.Child1 != NoNode || n.Child2 != NoNode {
				return fmt.Errorf("%w: leaf %d has children", ErrInvalidTree, i)
			}
			continue
		}

		if !inRange(n.Child1) || !inRange(n.Child2) {
			return fmt.Errorf("%w: node %d has child indices %d, %d", ErrInvalidTree, i, n.Child1, n.Child2)
		}
		c1, c2 := &t.Nodes[n.Child1], &t.Nodes[n.Child2]
		if c1.Parent != int32(i) || c2.Parent != int32(i) {
			return fmt.Errorf("%w: children of %d point elsewhere", ErrInvalidTree, i)
		}
		if c1.Depth != n.Depth+1 || c2.Depth != n.Depth+1 {
			return fmt.Errorf("%w: children of %d have wrong depth", ErrInvalidTree, i)
		}
		if c1.FaceStart != n.FaceStart || c2.FaceStart != c1.FaceStart+c1.FaceCount {
			return fmt.Errorf("%w: children of %d are not contiguous", ErrInvalidTree, i)
		}
		if c1.FaceCount < 1 || c2.FaceCount < 1 || c1.FaceCount+c2.FaceCount != n.FaceCount {
			return fmt.Errorf("%w: node %d: %w", ErrInvalidTree, i, ErrFaceCountMismatch)
		}
	}
	return nil
}
