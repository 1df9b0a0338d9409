// Package collision implements the narrow phase: separating-axis tests between
// oriented boxes, exact triangle intersection, and the paired walk of two OBB
// trees down to intersecting leaf triangles.
package collision

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-obb/internal/obbtree"
)

// Placement positions a mesh in the world: p' = Rotation*(Scale*p) + Translation.
type Placement struct {
	Rotation    mgl64.Mat3
	Translation mgl64.Vec3
	Scale       float64
}

// Identity returns the placement that leaves object space unchanged.
func Identity() Placement {
	return Placement{Rotation: mgl64.Ident3(), Scale: 1}
}

// At returns an unrotated, unscaled placement at t.
func At(t mgl64.Vec3) Placement {
	return Placement{Rotation: mgl64.Ident3(), Translation: t, Scale: 1}
}

// Apply transforms an object-space point into world space.
func (p Placement) Apply(v mgl64.Vec3) mgl64.Vec3 {
	return p.Rotation.Mul3x1(v.Mul(p.Scale)).Add(p.Translation)
}

// Box is an oriented box in world space. Axes are unit rows.
type Box struct {
	Center mgl64.Vec3
	Axes   [3]mgl64.Vec3
	Half   mgl64.Vec3
}

// WorldBox places an object-space tree node in the world.
func WorldBox(n *obbtree.Node, p Placement) Box {
	return Box{
		Center: p.Apply(n.Center),
		Axes: [3]mgl64.Vec3{
			p.Rotation.Mul3x1(n.Axis(0)),
			p.Rotation.Mul3x1(n.Axis(1)),
			p.Rotation.Mul3x1(n.Axis(2)),
		},
		Half: n.HalfExtents.Mul(p.Scale),
	}
}

// Volume returns the box volume.
func (b *Box) Volume() float64 {
	return 8 * b.Half[0] * b.Half[1] * b.Half[2]
}

// Bounds returns the world-space axis-aligned box enclosing b.
func (b *Box) Bounds() (lo, hi mgl64.Vec3) {
	var r mgl64.Vec3
	for k := 0; k < 3; k++ {
		r[k] = math.Abs(b.Axes[0][k])*b.Half[0] +
			math.Abs(b.Axes[1][k])*b.Half[1] +
			math.Abs(b.Axes[2][k])*b.Half[2]
	}
	return b.Center.Sub(r), b.Center.Add(r)
}

// Corners returns the eight box corners. Bit k of the index selects the sign
// along axis k.
func (b *Box) Corners() [8]mgl64.Vec3 {
	var c [8]mgl64.Vec3
	for i := range c {
		p := b.Center
		for k := 0; k < 3; k++ {
			s := b.Half[k]
			if i&(1<<k) == 0 {
				s = -s
			}
			p = p.Add(b.Axes[k].Mul(s))
		}
		c[i] = p
	}
	return c
}
