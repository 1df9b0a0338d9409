package obbtree

import (
	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
)

func newRenderItem(h *hullMesh) *RenderItem {
	r := &RenderItem{
		Vertices: make([]float32, 0, 3*len(h.verts)),
		Indices:  make([]uint32, len(h.tris)),
	}
	for _, v := range h.verts {
		f := obbmath.ToFloat32(v)
		r.Vertices = append(r.Vertices, f[:]...)
	}
	copy(r.Indices, h.tris)
	return r
}
