package debug

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-obb/internal/broadphase"
	"github.com/Faultbox/midgard-obb/internal/collision"
	"github.com/Faultbox/midgard-obb/internal/obbtree"
	"github.com/Faultbox/midgard-obb/pkg/meshgen"
)

func TestAABBWireframe(t *testing.T) {
	verts := AABBWireframe(broadphase.AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 2, 3}}, 0)
	require.Len(t, verts, BoxWireframeVertexCount*3)

	// Every edge runs along exactly one axis with that axis's full length.
	size := [3]float32{1, 2, 3}
	for i := 0; i < len(verts); i += 6 {
		changed := 0
		for k := 0; k < 3; k++ {
			if d := verts[i+3+k] - verts[i+k]; d != 0 {
				changed++
				assert.Equal(t, size[k], float32(math.Abs(float64(d))))
			}
		}
		assert.Equal(t, 1, changed, "edge %d", i/6)
	}

	padded := AABBWireframe(broadphase.AABB{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}, 0.5)
	assert.Equal(t, []float32{-0.5, -0.5, -0.5}, padded[:3])
}

func TestTreeWireframe(t *testing.T) {
	m := meshgen.Torus("ring", 2, 0.5, 8, 6)
	opts := obbtree.DefaultOptions()
	opts.MaxRenderDepth = 1
	tree, err := obbtree.Build(m.Name, m.Vertices, m.Indices, opts)
	require.NoError(t, err)

	p := collision.At(mgl64.Vec3{10, 0, 0})
	assert.Len(t, TreeWireframe(tree, p, 0), BoxWireframeVertexCount*3)
	assert.Len(t, TreeWireframe(tree, p, 1), 3*BoxWireframeVertexCount*3)
	assert.Len(t, TreeWireframe(tree, p, -1), len(tree.Nodes)*BoxWireframeVertexCount*3)

	// The root box is centered on the placed mesh.
	root := TreeWireframe(tree, p, 0)
	var sum mgl64.Vec3
	for i := 0; i < len(root); i += 3 {
		sum = sum.Add(mgl64.Vec3{float64(root[i]), float64(root[i+1]), float64(root[i+2])})
	}
	center := sum.Mul(1.0 / BoxWireframeVertexCount)
	assert.InDeltaSlice(t, []float64{10, 0, 0}, center[:], 1e-4)

	hull := RenderWireframe(tree, collision.Identity())
	require.NotEmpty(t, hull)
	assert.Zero(t, len(hull)%6)
	assert.Nil(t, HullWireframe(nil, p))
}

func TestHullWireframeSharesEdges(t *testing.T) {
	// Two triangles sharing one edge have five distinct edges.
	item := &obbtree.RenderItem{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0},
		Indices:  []uint32{0, 1, 2, 0, 2, 3},
	}
	assert.Len(t, HullWireframe(item, collision.Identity()), 5*6)
}

func TestWriteOBJ(t *testing.T) {
	var buf bytes.Buffer
	lines := []float32{0, 0, 0, 1, 0, 0, 1, 0, 0, 1, 1, 0}
	require.NoError(t, WriteOBJ(&buf, "edges", lines))

	want := strings.Join([]string{
		"o edges",
		"v 0 0 0",
		"v 1 0 0",
		"v 1 0 0",
		"v 1 1 0",
		"l 1 2",
		"l 3 4",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())

	assert.Error(t, WriteOBJ(&buf, "bad", lines[:4]))
}
