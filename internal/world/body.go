package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-obb/internal/assets"
	"github.com/Faultbox/midgard-obb/internal/broadphase"
	"github.com/Faultbox/midgard-obb/internal/collision"
	"github.com/Faultbox/midgard-obb/internal/obbtree"
)

// Transform places a body: rotate, then scale uniformly, then translate.
type Transform struct {
	Rotation    mgl64.Quat
	Translation mgl64.Vec3
	Scale       float64
}

// IdentityTransform returns the transform of a body at the origin.
func IdentityTransform() Transform {
	return Transform{Rotation: mgl64.QuatIdent(), Scale: 1}
}

// Placement converts the transform to the form used by the narrow phase.
func (t Transform) Placement() collision.Placement {
	scale := t.Scale
	if scale == 0 {
		scale = 1
	}
	return collision.Placement{
		Rotation:    t.Rotation.Normalize().Mat4().Mat3(),
		Translation: t.Translation,
		Scale:       scale,
	}
}

// Body is a rigid body carrying a collision mesh. The mesh is shared and
// read only; each body owns its transform.
type Body struct {
	ID        int
	Name      string
	Mesh      *assets.Mesh
	Transform Transform

	// Velocities drive Advance, a kinematic stand-in for a real integrator.
	LinearVelocity  mgl64.Vec3
	AngularVelocity mgl64.Vec3 // radians per second, world axes

	placement collision.Placement
}

// Tree returns the body's OBB tree.
func (b *Body) Tree() *obbtree.Tree { return b.Mesh.Tree }

// Advance moves the body by its velocities over dt seconds.
func (b *Body) Advance(dt float64) {
	b.Transform.Translation = b.Transform.Translation.Add(b.LinearVelocity.Mul(dt))
	if w := b.AngularVelocity.Len(); w > 0 {
		spin := mgl64.QuatRotate(w*dt, b.AngularVelocity.Mul(1/w))
		b.Transform.Rotation = spin.Mul(b.Transform.Rotation).Normalize()
	}
}

// bounds refreshes the cached placement and returns the world AABB of the
// root box.
func (b *Body) bounds() broadphase.AABB {
	b.placement = b.Transform.Placement()
	root := collision.WorldBox(b.Mesh.Tree.Node(obbtree.Root), b.placement)
	lo, hi := root.Bounds()
	return broadphase.AABB{Min: lo, Max: hi}
}
