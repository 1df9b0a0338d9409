package obbtree

import (
	"github.com/go-gl/mathgl/mgl64"
)

// NoNode marks an absent parent or child.
const NoNode int32 = -1

// Node is one oriented bounding box of the tree.
//
// Orientation rows are the box axes in object space; they are not relative to
// the parent box. The node covers triangles FaceStart..FaceStart+FaceCount-1
// of Tree.Indices.
type Node struct {
	HalfExtents mgl64.Vec3
	Orientation mgl64.Mat3
	Center      mgl64.Vec3

	FaceStart int32
	FaceCount int32

	Parent int32
	Child1 int32
	Child2 int32
	Depth  int32
	IsLeaf bool

	// Render holds the node's hull for debug drawing. Only set for shallow nodes.
	Render *RenderItem
}

// RenderItem is a convex hull in buffer form.
type RenderItem struct {
	Vertices []float32 // xyz triples
	Indices  []uint32
}

// VertexCount returns the number of hull vertices.
func (r *RenderItem) VertexCount() int {
	return len(r.Vertices) / 3
}

// Axis returns box axis i in object space.
func (n *Node) Axis(i int) mgl64.Vec3 {
	return n.Orientation.Row(i)
}

// Corners returns the eight box corners in object space.
// Bit k of the corner index selects the sign of axis k.
func (n *Node) Corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	ax := [3]mgl64.Vec3{
		n.Axis(0).Mul(n.HalfExtents[0]),
		n.Axis(1).Mul(n.HalfExtents[1]),
		n.Axis(2).Mul(n.HalfExtents[2]),
	}
	for i := range out {
		p := n.Center
		for k := 0; k < 3; k++ {
			if i&(1<<k) != 0 {
				p = p.Add(ax[k])
			} else {
				p = p.Sub(ax[k])
			}
		}
		out[i] = p
	}
	return out
}

func newNode(parent, start, count, depth int32) Node {
	return Node{
		FaceStart: start,
		FaceCount: count,
		Parent:    parent,
		Child1:    NoNode,
		Child2:    NoNode,
		Depth:     depth,
		IsLeaf:    true,
	}
}
