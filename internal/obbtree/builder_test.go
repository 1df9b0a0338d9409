package obbtree

import (
	"errors"
	"math"
	"slices"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-obb/internal/hull"
	"github.com/Faultbox/midgard-obb/pkg/formats"
	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
	"github.com/Faultbox/midgard-obb/pkg/meshgen"
)

func buildMesh(t *testing.T, m *formats.Mesh, opts Options) *Tree {
	t.Helper()
	tree, err := Build(m.Name, m.Vertices, m.Indices, opts)
	require.NoError(t, err)
	return tree
}

func sortedFaces(indices []int32) [][3]int32 {
	out := make([][3]int32, len(indices)/3)
	for i := range out {
		out[i] = [3]int32{indices[3*i], indices[3*i+1], indices[3*i+2]}
	}
	sort.Slice(out, func(i, j int) bool {
		return slices.Compare(out[i][:], out[j][:]) < 0
	})
	return out
}

// assertContainsFaces checks every vertex of a node's faces lies inside its box.
func assertContainsFaces(t *testing.T, tree *Tree, tol float64) {
	t.Helper()
	for i := range tree.Nodes {
		n := &tree.Nodes[i]
		for f := n.FaceStart; f < n.FaceStart+n.FaceCount; f++ {
			for _, v := range tree.Triangle(f) {
				d := v.Sub(n.Center)
				for k := 0; k < 3; k++ {
					require.LessOrEqual(t, math.Abs(n.Axis(k).Dot(d)), n.HalfExtents[k]+tol,
						"node %d face %d axis %d", i, f, k)
				}
			}
		}
	}
}

func TestBuildTorusAllPolicies(t *testing.T) {
	m := meshgen.Torus("torus", 2, 0.5, 16, 8)

	for _, policy := range []SplitPolicy{SplitMedian, SplitMean, SplitGeometric} {
		t.Run(policy.String(), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Split = policy
			tree := buildMesh(t, m, opts)

			require.NoError(t, tree.Validate())
			// Every internal node with more than one face splits, so leaves hold one face.
			stats := tree.Stats()
			assert.Equal(t, m.NumFaces(), stats.Leaves)
			assert.Equal(t, 2*m.NumFaces()-1, stats.Nodes)
			assert.Equal(t, int32(1), stats.MaxLeafFaces)

			assert.Equal(t, sortedFaces(m.Indices), sortedFaces(tree.Indices), "faces must be a permutation of the input")
			assertContainsFaces(t, tree, 1e-9)
		})
	}
}

func TestBuildDoesNotModifyInput(t *testing.T) {
	m := meshgen.Torus("torus", 1, 0.3, 8, 6)
	before := slices.Clone(m.Indices)
	buildMesh(t, m, DefaultOptions())
	assert.Equal(t, before, m.Indices)
}

func TestBuildIsDeterministic(t *testing.T) {
	m := meshgen.Torus("torus", 1, 0.3, 12, 6)
	opts := DefaultOptions()
	opts.Perturb = true
	opts.Seed = 42

	a := buildMesh(t, m, opts)
	b := buildMesh(t, m, opts)
	assert.Equal(t, a.Nodes, b.Nodes)
	assert.Equal(t, a.Indices, b.Indices)
}

func TestBuildSingleTriangle(t *testing.T) {
	m := meshgen.Triangle("tri", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	tree := buildMesh(t, m, DefaultOptions())

	require.Len(t, tree.Nodes, 1)
	root := tree.Nodes[Root]
	assert.True(t, root.IsLeaf)
	assert.Equal(t, int32(1), root.FaceCount)
	assert.True(t, obbmath.IsProperRotation(root.Orientation, BasisTolerance))

	// Axes are the first edge, the normal and their cross product.
	assert.InDelta(t, 1, root.Axis(0).Dot(mgl64.Vec3{1, 0, 0}), 1e-12)
	assert.InDelta(t, 1, root.Axis(1).Dot(mgl64.Vec3{0, 0, 1}), 1e-12)
	assert.InDelta(t, 0.5, root.HalfExtents[0], 1e-12)
	assert.Equal(t, minHalfExtent, root.HalfExtents[1])
	assert.InDelta(t, 0.5, root.HalfExtents[2], 1e-12)
	require.NoError(t, tree.Validate())
}

type failingHull struct{ calls *int }

func (failingHull) Name() string { return "failing" }

func (f failingHull) Build([]r3.Vector) (hull.Hull, error) {
	*f.calls++
	return hull.Hull{}, hull.ErrDegenerate
}

func TestBuildCoplanarQuadWithFailingHull(t *testing.T) {
	tests := []struct {
		name     string
		vertices []mgl64.Vec3
		indices  []int32
	}{
		{
			name:     "two triangles",
			vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
			indices:  []int32{0, 1, 2, 0, 2, 3},
		},
		{
			name:     "center fan",
			vertices: []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {0.5, 0.5, 0}},
			indices:  []int32{4, 0, 1, 4, 1, 2, 4, 2, 3, 4, 3, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &formats.Mesh{Name: "quad", Vertices: tt.vertices, Indices: tt.indices}
			var calls int
			opts := DefaultOptions()
			opts.Perturb = false
			opts.Hulls = hull.Chain{failingHull{calls: &calls}}

			tree := buildMesh(t, m, opts)
			require.NoError(t, tree.Validate())
			assert.GreaterOrEqual(t, calls, 1, "the root has at least four unique vertices")

			stats := tree.Stats()
			assert.Equal(t, m.NumFaces(), stats.Leaves)
			assertContainsFaces(t, tree, 1e-9)

			// The flat axis is floored rather than zero.
			root := tree.Nodes[Root]
			flat := 0
			for k := 0; k < 3; k++ {
				if root.HalfExtents[k] == minHalfExtent {
					flat++
				}
			}
			assert.Equal(t, 1, flat)
		})
	}
}

func TestBuildDegenerateTriangleFails(t *testing.T) {
	m := meshgen.Triangle("sliver", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0})

	_, err := Build(m.Name, m.Vertices, m.Indices, DefaultOptions())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrZeroHullArea)

	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "sliver", be.Mesh)
	assert.Equal(t, int32(0), be.Depth)
	assert.Equal(t, int32(1), be.FaceCount)
}

func TestBuildRejectsInvalidMesh(t *testing.T) {
	verts := []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	tests := []struct {
		name    string
		indices []int32
	}{
		{"empty", nil},
		{"partial face", []int32{0, 1}},
		{"out of range", []int32{0, 1, 3}},
		{"negative", []int32{0, -1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build("bad", verts, tt.indices, DefaultOptions())
			assert.ErrorIs(t, err, ErrInvalidMesh)
		})
	}
}

func TestBuildDepthControls(t *testing.T) {
	m := meshgen.Torus("torus", 2, 0.5, 8, 6)

	t.Run("no split", func(t *testing.T) {
		opts := DefaultOptions()
		opts.NoSplit = true
		tree := buildMesh(t, m, opts)
		require.Len(t, tree.Nodes, 1)
		assert.True(t, tree.Nodes[Root].IsLeaf)
		assert.Equal(t, int32(m.NumFaces()), tree.Nodes[Root].FaceCount)
	})

	t.Run("one level only", func(t *testing.T) {
		opts := DefaultOptions()
		opts.OneLevelOnly = true
		tree := buildMesh(t, m, opts)
		require.Len(t, tree.Nodes, 3)
		require.NoError(t, tree.Validate())
		assert.True(t, tree.Nodes[1].IsLeaf)
		assert.True(t, tree.Nodes[2].IsLeaf)
	})
}

func TestBuildRenderDepth(t *testing.T) {
	m := meshgen.Torus("torus", 2, 0.5, 8, 6)

	opts := DefaultOptions()
	opts.MaxRenderDepth = 1
	tree := buildMesh(t, m, opts)
	for i, n := range tree.Nodes {
		if n.Depth <= 1 {
			require.NotNil(t, n.Render, "node %d", i)
			assert.NotEmpty(t, n.Render.Indices)
			assert.Zero(t, len(n.Render.Vertices)%3)
		} else {
			assert.Nil(t, n.Render, "node %d", i)
		}
	}
	assert.Equal(t, 3, tree.Stats().RenderItems)

	opts.MaxRenderDepth = -1
	tree = buildMesh(t, m, opts)
	assert.Zero(t, tree.Stats().RenderItems)
}

func TestBuildFarFromOrigin(t *testing.T) {
	m := meshgen.Torus("far", 1, 0.25, 12, 6)
	for i := range m.Vertices {
		m.Vertices[i] = m.Vertices[i].Add(mgl64.Vec3{1e5, -2e5, 3e4})
	}
	tree := buildMesh(t, m, DefaultOptions())
	require.NoError(t, tree.Validate())
	assertContainsFaces(t, tree, 1e-6)
}

func TestValidateDetectsBrokenPartition(t *testing.T) {
	m := meshgen.Torus("torus", 2, 0.5, 8, 6)
	tree := buildMesh(t, m, DefaultOptions())

	c1 := tree.Nodes[Root].Child1
	tree.Nodes[c1].FaceCount--
	assert.ErrorIs(t, tree.Validate(), ErrInvalidTree)
}

func TestValidateDetectsBadBasis(t *testing.T) {
	m := meshgen.Box("box", mgl64.Vec3{1, 2, 3})
	tree := buildMesh(t, m, DefaultOptions())

	tree.Nodes[Root].Orientation = mgl64.Diag3(mgl64.Vec3{1, 1, -1})
	err := tree.Validate()
	assert.ErrorIs(t, err, ErrInvalidTree)
	assert.ErrorIs(t, err, ErrBadBasis)
}

func TestBoxAxesFollowShape(t *testing.T) {
	m := meshgen.Box("slab", mgl64.Vec3{4, 1, 0.25})
	tree := buildMesh(t, m, DefaultOptions())

	root := tree.Nodes[Root]
	half := root.HalfExtents
	got := []float64{half[0], half[1], half[2]}
	sort.Float64s(got)
	assert.InDeltaSlice(t, []float64{0.25, 1, 4}, got, 1e-6)
	assert.InDelta(t, 0, root.Center.Len(), 1e-9)
}

func TestParseSplitPolicy(t *testing.T) {
	for _, p := range []SplitPolicy{SplitMedian, SplitMean, SplitGeometric} {
		got, err := ParseSplitPolicy(p.String())
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
	_, err := ParseSplitPolicy("surface-area")
	assert.Error(t, err)
}
