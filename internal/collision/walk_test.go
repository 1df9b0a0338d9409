package collision

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-obb/internal/obbtree"
	"github.com/Faultbox/midgard-obb/pkg/formats"
	"github.com/Faultbox/midgard-obb/pkg/meshgen"
)

func buildTree(t *testing.T, m *formats.Mesh) *obbtree.Tree {
	t.Helper()
	tree, err := obbtree.Build(m.Name, m.Vertices, m.Indices, obbtree.DefaultOptions())
	require.NoError(t, err)
	return tree
}

// bruteForce reports whether any triangle pair of the two placed meshes intersects.
func bruteForce(a *obbtree.Tree, pa Placement, b *obbtree.Tree, pb Placement) bool {
	for fa := int32(0); fa < int32(a.NumFaces()); fa++ {
		ta := placeTriangle(a.Triangle(fa), pa)
		for fb := int32(0); fb < int32(b.NumFaces()); fb++ {
			if TrianglesIntersect(ta, placeTriangle(b.Triangle(fb), pb)) {
				return true
			}
		}
	}
	return false
}

func TestCollideCubes(t *testing.T) {
	cube := buildTree(t, meshgen.Box("cube", mgl64.Vec3{0.5, 0.5, 0.5}))
	d := NewDetector(BackendCrossCheck, false)

	far := d.Collide(cube, Identity(), cube, At(mgl64.Vec3{3, 0, 0}))
	assert.Empty(t, far)

	near := d.Collide(cube, Identity(), cube, At(mgl64.Vec3{0.9, 0.3, 0.2}))
	require.NotEmpty(t, near)
	for _, r := range near {
		assert.True(t, cube.Node(r.NodeA).IsLeaf)
		assert.True(t, cube.Node(r.NodeB).IsLeaf)
		ta := cube.Triangle(r.FaceA)
		tb := placeTriangle(cube.Triangle(r.FaceB), At(mgl64.Vec3{0.9, 0.3, 0.2}))
		assert.True(t, TrianglesIntersect(ta, tb))
	}

	// A box strictly inside another touches no surface triangle.
	small := buildTree(t, meshgen.Box("small", mgl64.Vec3{0.1, 0.1, 0.1}))
	assert.Empty(t, d.Collide(cube, Identity(), small, Identity()))
}

func TestCollideMatchesBruteForce(t *testing.T) {
	torus := buildTree(t, meshgen.Torus("torus", 2, 0.5, 16, 8))
	box := buildTree(t, meshgen.Box("box", mgl64.Vec3{0.4, 0.4, 0.4}))
	d := NewDetector(BackendCrossCheck, false)

	placements := []Placement{
		At(mgl64.Vec3{2, 0, 0}),
		At(mgl64.Vec3{0, 0, 0}),
		At(mgl64.Vec3{2.3, 0.4, 0.3}),
		{Rotation: mgl64.Rotate3DX(0.7), Translation: mgl64.Vec3{-1.6, 1.2, 0.5}, Scale: 1.5},
		{Rotation: mgl64.Rotate3DY(1.1), Translation: mgl64.Vec3{0, 2.6, 0}, Scale: 0.5},
		At(mgl64.Vec3{5, 5, 5}),
	}
	for i, p := range placements {
		want := bruteForce(torus, Identity(), box, p)
		got := d.Collide(torus, Identity(), box, p)
		assert.Equal(t, want, len(got) > 0, "placement %d", i)

		// Swapping the arguments finds the same contact set.
		swapped := d.Collide(box, p, torus, Identity())
		assert.Equal(t, len(got), len(swapped), "placement %d", i)
	}
}

func TestCollideBackendsAgree(t *testing.T) {
	torus := buildTree(t, meshgen.Torus("torus", 2, 0.5, 16, 8))
	p := Placement{Rotation: mgl64.Rotate3DX(0.2), Translation: mgl64.Vec3{1, 0, 0}, Scale: 1}

	scalar := NewDetector(BackendScalar, false).Collide(torus, Identity(), torus, p)
	lanes := NewDetector(BackendLanes, false).Collide(torus, Identity(), torus, p)
	require.NotEmpty(t, scalar)
	assert.Equal(t, scalar, lanes)
}

func TestFirstContactOnly(t *testing.T) {
	torus := buildTree(t, meshgen.Torus("torus", 2, 0.5, 16, 8))
	p := Placement{Rotation: mgl64.Rotate3DX(0.2), Translation: mgl64.Vec3{1, 0, 0}, Scale: 1}

	all := NewDetector(BackendScalar, false).Collide(torus, Identity(), torus, p)
	require.Greater(t, len(all), 1)

	d := NewDetector(BackendScalar, true)
	first := d.Collide(torus, Identity(), torus, p)
	require.Len(t, first, 1)
	assert.Equal(t, all[0], first[0])
	assert.True(t, d.Intersects(torus, Identity(), torus, p))
}

func TestCollideAfterReload(t *testing.T) {
	m := meshgen.Torus("ring", 2, 0.5, 16, 8)
	tree := buildTree(t, m)
	box := buildTree(t, meshgen.Box("box", mgl64.Vec3{0.4, 0.4, 0.4}))
	place := Placement{Rotation: mgl64.Rotate3DZ(0.3), Translation: mgl64.Vec3{2.3, 0.4, 0.3}, Scale: 1}

	d := NewDetector(BackendScalar, false)
	before := d.Collide(tree, Identity(), box, place)
	require.NotEmpty(t, before)

	dir := t.TempDir()
	require.NoError(t, obbtree.Save(dir, "ring", tree, true))
	loaded, err := obbtree.Load(dir, "ring", m.Vertices, m.NumFaces(), tree.Fingerprint, true)
	require.NoError(t, err)

	assert.Equal(t, before, d.Collide(loaded, Identity(), box, place))
}

func TestLeafTestOnInternalNodePanics(t *testing.T) {
	torus := buildTree(t, meshgen.Torus("torus", 2, 0.5, 8, 4))
	root := torus.Node(obbtree.Root)
	require.False(t, root.IsLeaf)

	assert.Panics(t, func() {
		leafContact(torus, root, Identity(), torus, root, Identity())
	})
}
