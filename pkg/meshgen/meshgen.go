// Package meshgen generates simple procedural triangle meshes.
package meshgen

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/midgard-obb/pkg/formats"
)

// Box returns a closed axis-aligned box centered at the origin.
func Box(name string, half mgl64.Vec3) *formats.Mesh {
	m := &formats.Mesh{Name: name}
	for i := 0; i < 8; i++ {
		v := half
		for k := 0; k < 3; k++ {
			if i&(1<<k) == 0 {
				v[k] = -v[k]
			}
		}
		m.Vertices = append(m.Vertices, v)
	}
	// Two triangles per face; corner bit k set means +axis k.
	quads := [6][4]int32{
		{0, 2, 6, 4}, // -x
		{1, 5, 7, 3}, // +x
		{0, 4, 5, 1}, // -y
		{2, 3, 7, 6}, // +y
		{0, 1, 3, 2}, // -z
		{4, 6, 7, 5}, // +z
	}
	for _, q := range quads {
		m.Indices = append(m.Indices, q[0], q[1], q[2], q[0], q[2], q[3])
	}
	return m
}

// Torus returns a torus around the z axis with major radius R and minor
// radius r, tessellated into nu*nv quads.
func Torus(name string, R, r float64, nu, nv int) *formats.Mesh {
	m := &formats.Mesh{Name: name}
	for i := 0; i < nu; i++ {
		u := 2 * math.Pi * float64(i) / float64(nu)
		for j := 0; j < nv; j++ {
			v := 2 * math.Pi * float64(j) / float64(nv)
			ring := R + r*math.Cos(v)
			m.Vertices = append(m.Vertices, mgl64.Vec3{ring * math.Cos(u), ring * math.Sin(u), r * math.Sin(v)})
		}
	}
	at := func(i, j int) int32 { return int32((i%nu)*nv + j%nv) }
	for i := 0; i < nu; i++ {
		for j := 0; j < nv; j++ {
			a, b, c, d := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			m.Indices = append(m.Indices, a, b, c, a, c, d)
		}
	}
	return m
}

// Grid returns a flat n*n quad grid of the given size in the z=0 plane.
func Grid(name string, size float64, n int) *formats.Mesh {
	m := &formats.Mesh{Name: name}
	step := size / float64(n)
	for i := 0; i <= n; i++ {
		for j := 0; j <= n; j++ {
			m.Vertices = append(m.Vertices, mgl64.Vec3{float64(i)*step - size/2, float64(j)*step - size/2, 0})
		}
	}
	at := func(i, j int) int32 { return int32(i*(n+1) + j) }
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			a, b, c, d := at(i, j), at(i+1, j), at(i+1, j+1), at(i, j+1)
			m.Indices = append(m.Indices, a, b, c, a, c, d)
		}
	}
	return m
}

// Triangle returns a single-triangle mesh.
func Triangle(name string, a, b, c mgl64.Vec3) *formats.Mesh {
	return &formats.Mesh{Name: name, Vertices: []mgl64.Vec3{a, b, c}, Indices: []int32{0, 1, 2}}
}

// Shape builds a named primitive with unit-ish dimensions. It reports false for
// unknown shapes.
func Shape(kind, name string) (*formats.Mesh, bool) {
	switch kind {
	case "box":
		return Box(name, mgl64.Vec3{0.5, 0.5, 0.5}), true
	case "torus":
		return Torus(name, 1, 0.25, 24, 12), true
	case "grid":
		return Grid(name, 4, 8), true
	default:
		return nil, false
	}
}
