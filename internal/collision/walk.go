package collision

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-obb/internal/obbtree"
)

// Result is one pair of intersecting leaves.
type Result struct {
	BodyA, BodyB int   // instance ids, filled in by the caller
	NodeA, NodeB int32 // colliding leaf nodes
	FaceA, FaceB int32 // first intersecting triangle pair (face slots)
}

// Detector walks pairs of OBB trees. A Detector holds no per-call state and is
// safe for concurrent use.
type Detector struct {
	Backend Backend
	// FirstContactOnly stops the walk at the first intersecting leaf pair.
	FirstContactOnly bool
}

// NewDetector returns a detector using the given backend.
func NewDetector(backend Backend, firstContactOnly bool) *Detector {
	return &Detector{Backend: backend, FirstContactOnly: firstContactOnly}
}

type nodePair struct{ a, b int32 }

// Collide returns the intersecting leaf pairs of two placed trees.
//
// Internal node pairs are pruned with the box test. When both nodes are
// leaves the box test is skipped and every face pair is tested exactly.
// Otherwise the walk descends into the larger box, or the non-leaf one.
func (d *Detector) Collide(a *obbtree.Tree, pa Placement, b *obbtree.Tree, pb Placement) []Result {
	var results []Result
	stack := make([]nodePair, 1, 64)
	stack[0] = nodePair{obbtree.Root, obbtree.Root}

	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		na, nb := a.Node(p.a), b.Node(p.b)

		if na.IsLeaf && nb.IsLeaf {
			if fa, fb, ok := leafContact(a, na, pa, b, nb, pb); ok {
				results = append(results, Result{NodeA: p.a, NodeB: p.b, FaceA: fa, FaceB: fb})
				if d.FirstContactOnly {
					return results
				}
			}
			continue
		}

		boxA, boxB := WorldBox(na, pa), WorldBox(nb, pb)
		if !d.Backend.Overlap(&boxA, &boxB) {
			continue
		}

		if nb.IsLeaf || (!na.IsLeaf && boxA.Volume() >= boxB.Volume()) {
			stack = append(stack, nodePair{na.Child2, p.b}, nodePair{na.Child1, p.b})
		} else {
			stack = append(stack, nodePair{p.a, nb.Child2}, nodePair{p.a, nb.Child1})
		}
	}
	return results
}

// Intersects reports whether two placed trees touch anywhere.
func (d *Detector) Intersects(a *obbtree.Tree, pa Placement, b *obbtree.Tree, pb Placement) bool {
	first := Detector{Backend: d.Backend, FirstContactOnly: true}
	return len(first.Collide(a, pa, b, pb)) > 0
}

// leafContact tests every face pair of two leaves and returns the first hit.
func leafContact(a *obbtree.Tree, na *obbtree.Node, pa Placement, b *obbtree.Tree, nb *obbtree.Node, pb Placement) (int32, int32, bool) {
	if !na.IsLeaf || !nb.IsLeaf {
		panic(fmt.Sprintf("collision: leaf test on internal node (leafA=%t leafB=%t)", na.IsLeaf, nb.IsLeaf))
	}
	for fa := na.FaceStart; fa < na.FaceStart+na.FaceCount; fa++ {
		ta := placeTriangle(a.Triangle(fa), pa)
		for fb := nb.FaceStart; fb < nb.FaceStart+nb.FaceCount; fb++ {
			if TrianglesIntersect(ta, placeTriangle(b.Triangle(fb), pb)) {
				return fa, fb, true
			}
		}
	}
	return 0, 0, false
}

func placeTriangle(t [3]mgl64.Vec3, p Placement) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{p.Apply(t[0]), p.Apply(t[1]), p.Apply(t[2])}
}
