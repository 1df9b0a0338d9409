// Package formats provides loaders for triangle mesh files used as collision geometry.
package formats

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh errors.
var (
	ErrEmptyMesh         = errors.New("mesh has no triangles")
	ErrIndexOutOfRange   = errors.New("mesh index out of range")
	ErrUnsupportedFormat = errors.New("unsupported mesh format")
)

// Mesh is an indexed triangle mesh.
type Mesh struct {
	Name     string
	Vertices []mgl64.Vec3
	Indices  []int32 // three per triangle
}

// NumFaces returns the number of triangles.
func (m *Mesh) NumFaces() int {
	return len(m.Indices) / 3
}

// Triangle returns the corners of triangle f.
func (m *Mesh) Triangle(f int) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{
		m.Vertices[m.Indices[3*f]],
		m.Vertices[m.Indices[3*f+1]],
		m.Vertices[m.Indices[3*f+2]],
	}
}

// Bounds returns the axis-aligned bounds of the vertices.
func (m *Mesh) Bounds() (lo, hi mgl64.Vec3) {
	lo = mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi = mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for _, v := range m.Vertices {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], v[k])
			hi[k] = math.Max(hi[k], v[k])
		}
	}
	return lo, hi
}

// Validate checks the mesh has triangles and every index is in range.
func (m *Mesh) Validate() error {
	if len(m.Indices) == 0 || len(m.Indices)%3 != 0 {
		return fmt.Errorf("%s: %w", m.Name, ErrEmptyMesh)
	}
	for i, idx := range m.Indices {
		if idx < 0 || int(idx) >= len(m.Vertices) {
			return fmt.Errorf("%s: index %d = %d: %w", m.Name, i, idx, ErrIndexOutOfRange)
		}
	}
	return nil
}

// LoadFile reads a mesh, choosing the parser by file extension.
// The mesh is named after the file without its extension.
func LoadFile(path string) (*Mesh, error) {
	var (
		m   *Mesh
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".obj":
		m, err = ParseOBJFile(path)
	case ".stl":
		m, err = ParseSTLFile(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, err
	}
	m.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return m, nil
}
