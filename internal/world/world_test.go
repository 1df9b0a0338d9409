package world

import (
	"sync/atomic"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-obb/internal/assets"
	"github.com/Faultbox/midgard-obb/internal/broadphase"
	"github.com/Faultbox/midgard-obb/internal/collision"
	"github.com/Faultbox/midgard-obb/internal/config"
	"github.com/Faultbox/midgard-obb/internal/obbtree"
	"github.com/Faultbox/midgard-obb/pkg/formats"
	"github.com/Faultbox/midgard-obb/pkg/meshgen"
)

func meshAsset(t *testing.T, m *formats.Mesh) *assets.Mesh {
	t.Helper()
	tree, err := obbtree.Build(m.Name, m.Vertices, m.Indices, obbtree.DefaultOptions())
	require.NoError(t, err)
	return &assets.Mesh{Mesh: m, Tree: tree}
}

func at(x, y, z float64) Transform {
	tr := IdentityTransform()
	tr.Translation = mgl64.Vec3{x, y, z}
	return tr
}

func TestStepFindsContacts(t *testing.T) {
	cube := meshAsset(t, meshgen.Box("cube", mgl64.Vec3{0.5, 0.5, 0.5}))
	w := New(collision.NewDetector(collision.BackendCrossCheck, false), 2)
	w.AddBody("a", cube, at(0, 0, 0))
	w.AddBody("b", cube, at(3, 0, 0))

	assert.Empty(t, w.Step())

	require.NoError(t, w.SetTransform(1, at(0.9, 0.3, 0.2)))
	results := w.Step()
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.Equal(t, 0, r.BodyA)
		assert.Equal(t, 1, r.BodyB)
	}
	assert.Equal(t, []broadphase.Pair{{A: 0, B: 1}}, Colliding(results))

	assert.ErrorIs(t, w.SetTransform(5, at(0, 0, 0)), ErrUnknownBody)
}

func TestStepWorkerCountDoesNotChangeResults(t *testing.T) {
	ring := meshAsset(t, meshgen.Torus("ring", 1, 0.25, 16, 8))
	cube := meshAsset(t, meshgen.Box("cube", mgl64.Vec3{0.3, 0.3, 0.3}))

	build := func(workers int) *World {
		w := New(collision.NewDetector(collision.BackendScalar, false), workers)
		w.AddBody("ring", ring, IdentityTransform())
		for i := 0; i < 6; i++ {
			w.AddBody("cube", cube, at(float64(i)*0.4-1, 0.05*float64(i), 0))
		}
		return w
	}

	want := build(1).Step()
	require.NotEmpty(t, want)
	assert.Equal(t, want, build(4).Step())
	assert.Equal(t, want, build(64).Step())
}

func TestAdvanceMovesBodiesIntoContact(t *testing.T) {
	cube := meshAsset(t, meshgen.Box("cube", mgl64.Vec3{0.5, 0.5, 0.5}))
	w := NewFromConfig(config.Default().Collision, config.Default().Simulation)
	w.AddBody("still", cube, IdentityTransform())
	mover := w.AddBody("mover", cube, at(4, 0.2, 0.1))
	mover.LinearVelocity = mgl64.Vec3{-1, 0, 0}
	mover.AngularVelocity = mgl64.Vec3{0, 0, 0.5}

	hit := -1
	for step := 0; step < 60; step++ {
		w.Advance(0.1)
		if len(w.Step()) > 0 {
			hit = step
			break
		}
	}
	require.NotEqual(t, -1, hit, "bodies never touched")
	assert.Less(t, mover.Transform.Translation.X(), 2.0)
	assert.InDelta(t, 1, mover.Transform.Rotation.Len(), 1e-12)
}

func TestRemoveBodyRenumbers(t *testing.T) {
	cube := meshAsset(t, meshgen.Box("cube", mgl64.Vec3{0.5, 0.5, 0.5}))
	w := New(collision.NewDetector(collision.BackendScalar, false), 1)
	w.AddBody("a", cube, at(0, 0, 0))
	w.AddBody("b", cube, at(10, 0, 0))
	w.AddBody("c", cube, at(0.5, 0.5, 0.5))

	require.NoError(t, w.RemoveBody(1))
	require.Len(t, w.Bodies(), 2)
	c, err := w.Body(1)
	require.NoError(t, err)
	assert.Equal(t, "c", c.Name)
	assert.Equal(t, 1, c.ID)

	assert.Equal(t, []broadphase.Pair{{A: 0, B: 1}}, Colliding(w.Step()))
	assert.ErrorIs(t, w.RemoveBody(2), ErrUnknownBody)
}

func TestTransformPlacement(t *testing.T) {
	tr := Transform{
		Rotation:    mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1}),
		Translation: mgl64.Vec3{1, 2, 3},
		Scale:       2,
	}
	got := tr.Placement().Apply(mgl64.Vec3{1, 0, 0})
	assert.InDeltaSlice(t, []float64{1, 4, 3}, got[:], 1e-12)

	// A zero scale is treated as unscaled.
	tr.Scale = 0
	assert.Equal(t, 1.0, tr.Placement().Scale)
}

func TestTaskVisitsEveryItemOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 7, 100} {
		data := make([]int, 23)
		var calls atomic.Int32
		task(workers, data, func(i int, _ int) {
			data[i]++
			calls.Add(1)
		})
		assert.Equal(t, int32(len(data)), calls.Load(), "workers %d", workers)
		for i, v := range data {
			assert.Equal(t, 1, v, "workers %d item %d", workers, i)
		}
	}
}
