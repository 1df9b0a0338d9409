package collision

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-obb/internal/obbtree"
)

func axisAligned(center, half mgl64.Vec3) Box {
	return Box{
		Center: center,
		Axes:   [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
		Half:   half,
	}
}

func randomBox(rng *rand.Rand) Box {
	axis := mgl64.Vec3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}.Normalize()
	rot := mgl64.QuatRotate(rng.Float64()*2*3.141592653589793, axis).Mat4().Mat3()
	return Box{
		Center: mgl64.Vec3{rng.Float64()*4 - 2, rng.Float64()*4 - 2, rng.Float64()*4 - 2},
		Axes:   [3]mgl64.Vec3{rot.Row(0), rot.Row(1), rot.Row(2)},
		Half:   mgl64.Vec3{0.1 + rng.Float64(), 0.1 + rng.Float64(), 0.1 + rng.Float64()},
	}
}

func TestOverlapUnitCubes(t *testing.T) {
	half := mgl64.Vec3{0.5, 0.5, 0.5}
	tests := []struct {
		name    string
		offset  mgl64.Vec3
		overlap bool
	}{
		{"gap of two", mgl64.Vec3{3, 0, 0}, false},
		{"overlap of a tenth", mgl64.Vec3{0.9, 0, 0}, true},
		{"coincident", mgl64.Vec3{}, true},
		{"diagonal gap", mgl64.Vec3{1.01, 1.01, 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := axisAligned(mgl64.Vec3{}, half)
			b := axisAligned(tt.offset, half)
			for _, backend := range []Backend{BackendScalar, BackendLanes, BackendCrossCheck} {
				assert.Equal(t, tt.overlap, backend.Overlap(&a, &b), backend.String())
				assert.Equal(t, tt.overlap, backend.Overlap(&b, &a), backend.String())
			}
		})
	}
}

func TestSeparatingAxisOrder(t *testing.T) {
	half := mgl64.Vec3{0.5, 0.5, 0.5}
	a := axisAligned(mgl64.Vec3{}, half)
	b := axisAligned(mgl64.Vec3{3, 0, 0}, half)
	assert.Equal(t, 0, SeparatingAxis(&a, &b), "x face of A separates first")

	b = axisAligned(mgl64.Vec3{0, 0, -3}, half)
	assert.Equal(t, 2, SeparatingAxis(&a, &b))

	b = axisAligned(mgl64.Vec3{0.9, 0, 0}, half)
	assert.Equal(t, -1, SeparatingAxis(&a, &b))
}

func TestOverlapSymmetry(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	for i := 0; i < 5000; i++ {
		a, b := randomBox(rng), randomBox(rng)
		require.Equal(t, OverlapScalar(&a, &b), OverlapScalar(&b, &a), "pair %d", i)
	}
}

func TestScalarLanesParity(t *testing.T) {
	rng := rand.New(rand.NewPCG(17, 19))
	var hits, edgeSeparated int
	for i := 0; i < 20000; i++ {
		a, b := randomBox(rng), randomBox(rng)
		s := OverlapScalar(&a, &b)
		require.Equal(t, s, OverlapLanes(&a, &b), "pair %d: %+v %+v", i, a, b)
		require.NotPanics(t, func() { BackendCrossCheck.Overlap(&a, &b) })
		if s {
			hits++
		}
		if SeparatingAxis(&a, &b) >= 6 {
			edgeSeparated++
		}
	}
	// The generator must exercise both outcomes and the edge axes.
	assert.Positive(t, hits)
	assert.Less(t, hits, 20000)
	assert.Positive(t, edgeSeparated)
}

func TestParityOnParallelBoxes(t *testing.T) {
	// Identical orientations make every edge cross product vanish.
	rng := rand.New(rand.NewPCG(23, 29))
	for i := 0; i < 2000; i++ {
		a := randomBox(rng)
		b := a
		b.Center = a.Center.Add(mgl64.Vec3{rng.Float64()*3 - 1.5, rng.Float64()*3 - 1.5, rng.Float64()*3 - 1.5})
		require.Equal(t, OverlapScalar(&a, &b), OverlapLanes(&a, &b), "pair %d", i)
	}
}

func TestWorldBox(t *testing.T) {
	n := &obbtree.Node{
		Center:      mgl64.Vec3{1, 0, 0},
		Orientation: mgl64.Ident3(),
		HalfExtents: mgl64.Vec3{1, 2, 3},
	}
	p := Placement{
		Rotation:    mgl64.Rotate3DZ(mgl64.DegToRad(90)),
		Translation: mgl64.Vec3{0, 0, 5},
		Scale:       2,
	}
	b := WorldBox(n, p)

	assert.InDeltaSlice(t, []float64{0, 2, 5}, b.Center[:], 1e-12)
	assert.InDeltaSlice(t, []float64{2, 4, 6}, b.Half[:], 1e-12)
	assert.InDeltaSlice(t, []float64{0, 1, 0}, b.Axes[0][:], 1e-12)
	assert.InDeltaSlice(t, []float64{-1, 0, 0}, b.Axes[1][:], 1e-12)
	assert.InDeltaSlice(t, []float64{0, 0, 1}, b.Axes[2][:], 1e-12)

	lo, hi := b.Bounds()
	assert.InDeltaSlice(t, []float64{-4, 0, -1}, lo[:], 1e-12)
	assert.InDeltaSlice(t, []float64{4, 4, 11}, hi[:], 1e-12)

	for _, c := range b.Corners() {
		for k := 0; k < 3; k++ {
			assert.InDelta(t, b.Half[k], math.Abs(b.Axes[k].Dot(c.Sub(b.Center))), 1e-12)
		}
	}
}

func TestSelectBackend(t *testing.T) {
	assert.Equal(t, BackendCrossCheck, SelectBackend(true, true))
	assert.Equal(t, BackendScalar, SelectBackend(false, false))
	assert.Equal(t, DefaultBackend(), SelectBackend(true, false))
	assert.Equal(t, "lanes", BackendLanes.String())
}
