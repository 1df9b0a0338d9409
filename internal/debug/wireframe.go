// Package debug provides wireframe geometry for inspecting OBB trees.
package debug

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-obb/internal/broadphase"
	"github.com/Faultbox/midgard-obb/internal/collision"
	"github.com/Faultbox/midgard-obb/internal/obbtree"
)

// BoxWireframeVertexCount is the number of vertices for a box wireframe (12 edges × 2).
const BoxWireframeVertexCount = 24

// boxEdges joins corners that differ in exactly one index bit.
var boxEdges = [12][2]int{
	// Bottom face
	{0, 1}, {1, 3}, {3, 2}, {2, 0},
	// Top face
	{4, 5}, {5, 7}, {7, 6}, {6, 4},
	// Vertical edges
	{0, 4}, {1, 5}, {3, 7}, {2, 6},
}

// BoxWireframe creates line vertices for a box given its corners, where bit k
// of the corner index selects the sign along axis k. Format: [x, y, z] per vertex.
func BoxWireframe(corners [8]mgl64.Vec3) []float32 {
	out := make([]float32, 0, 3*BoxWireframeVertexCount)
	for _, e := range boxEdges {
		out = appendVertex(out, corners[e[0]])
		out = appendVertex(out, corners[e[1]])
	}
	return out
}

// AABBWireframe creates line vertices for an axis-aligned box expanded by
// padding on all sides.
func AABBWireframe(b broadphase.AABB, padding float64) []float32 {
	pad := mgl64.Vec3{padding, padding, padding}
	lo, hi := b.Min.Sub(pad), b.Max.Add(pad)
	var corners [8]mgl64.Vec3
	for i := range corners {
		for k := 0; k < 3; k++ {
			if i&(1<<k) != 0 {
				corners[i][k] = hi[k]
			} else {
				corners[i][k] = lo[k]
			}
		}
	}
	return BoxWireframe(corners)
}

// NodeWireframe returns the placed box of one tree node.
func NodeWireframe(n *obbtree.Node, p collision.Placement) []float32 {
	box := collision.WorldBox(n, p)
	return BoxWireframe(box.Corners())
}

// TreeWireframe returns the boxes of every node at or above maxDepth, or of
// every node when maxDepth is negative.
func TreeWireframe(t *obbtree.Tree, p collision.Placement, maxDepth int) []float32 {
	var out []float32
	for i := range t.Nodes {
		n := &t.Nodes[i]
		if maxDepth >= 0 && int(n.Depth) > maxDepth {
			continue
		}
		out = append(out, NodeWireframe(n, p)...)
	}
	return out
}

// HullWireframe returns the distinct edges of a node's hull render item.
func HullWireframe(item *obbtree.RenderItem, p collision.Placement) []float32 {
	if item == nil {
		return nil
	}
	vertex := func(i uint32) mgl64.Vec3 {
		return p.Apply(mgl64.Vec3{
			float64(item.Vertices[3*i]),
			float64(item.Vertices[3*i+1]),
			float64(item.Vertices[3*i+2]),
		})
	}

	seen := make(map[[2]uint32]struct{}, len(item.Indices))
	var out []float32
	for f := 0; f+2 < len(item.Indices); f += 3 {
		tri := item.Indices[f : f+3]
		for k := 0; k < 3; k++ {
			a, b := tri[k], tri[(k+1)%3]
			if a > b {
				a, b = b, a
			}
			if _, ok := seen[[2]uint32{a, b}]; ok {
				continue
			}
			seen[[2]uint32{a, b}] = struct{}{}
			out = appendVertex(out, vertex(a))
			out = appendVertex(out, vertex(b))
		}
	}
	return out
}

// RenderWireframe returns the hull edges of every node carrying a render item.
func RenderWireframe(t *obbtree.Tree, p collision.Placement) []float32 {
	var out []float32
	for i := range t.Nodes {
		out = append(out, HullWireframe(t.Nodes[i].Render, p)...)
	}
	return out
}

func appendVertex(out []float32, v mgl64.Vec3) []float32 {
	return append(out, float32(v[0]), float32(v[1]), float32(v[2]))
}

// WriteOBJ writes line vertex pairs as Wavefront OBJ "l" elements under an
// object named name.
func WriteOBJ(w io.Writer, name string, lines []float32) error {
	if len(lines)%6 != 0 {
		return fmt.Errorf("debug: %d floats is not a whole number of line segments", len(lines))
	}
	bw := bufio.NewWriter(w)
	if name != "" {
		fmt.Fprintf(bw, "o %s\n", name)
	}
	for i := 0; i < len(lines); i += 3 {
		fmt.Fprintf(bw, "v %g %g %g\n", lines[i], lines[i+1], lines[i+2])
	}
	for i := 1; i <= len(lines)/3; i += 2 {
		fmt.Fprintf(bw, "l %d %d\n", i, i+1)
	}
	return bw.Flush()
}
