package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
)

// STL format errors.
var (
	ErrTruncatedSTLData = errors.New("truncated STL data")
	ErrASCIISTL         = errors.New("ASCII STL is not supported")
	ErrInvalidSTLData   = errors.New("invalid STL data")
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal, 3 vertices, attribute count
)

// stlTriangle is one binary STL facet record.
type stlTriangle struct {
	Normal    [3]float32
	Vertices  [3][3]float32
	Attribute uint16
}

// ParseSTL parses binary STL data. Facets carry their own corner copies, so
// corners with identical coordinates are welded into shared vertices.
func ParseSTL(data []byte) (*Mesh, error) {
	if len(data) < stlHeaderSize+4 {
		return nil, ErrTruncatedSTLData
	}
	if bytes.HasPrefix(data, []byte("solid")) && !bytes.Contains(data[:stlHeaderSize], []byte{0}) {
		// Binary files may also start with "solid"; only reject when the
		// declared size does not match.
		count := binary.LittleEndian.Uint32(data[stlHeaderSize:])
		if int64(len(data)) != stlHeaderSize+4+int64(count)*stlTriangleSize {
			return nil, ErrASCIISTL
		}
	}

	r := bytes.NewReader(data[stlHeaderSize:])
	var count uint32
	binary.Read(r, binary.LittleEndian, &count)
	if int64(r.Len()) < int64(count)*stlTriangleSize {
		return nil, fmt.Errorf("%w: %d facets declared, %d bytes remain", ErrTruncatedSTLData, count, r.Len())
	}

	facets := make([]stlTriangle, count)
	if err := binary.Read(r, binary.LittleEndian, facets); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedSTLData, err)
	}

	m := &Mesh{Indices: make([]int32, 0, 3*count)}
	weld := make(map[[3]float32]int32, count)
	for _, f := range facets {
		for _, c := range f.Vertices {
			if hasNaN(c) {
				return nil, fmt.Errorf("%w: NaN coordinate", ErrInvalidSTLData)
			}
			idx, ok := weld[c]
			if !ok {
				idx = int32(len(m.Vertices))
				weld[c] = idx
				m.Vertices = append(m.Vertices, mgl64.Vec3{float64(c[0]), float64(c[1]), float64(c[2])})
			}
			m.Indices = append(m.Indices, idx)
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// ParseSTLFile parses a binary STL file from disk.
func ParseSTLFile(path string) (*Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading STL file: %w", err)
	}
	return ParseSTL(data)
}

func hasNaN(c [3]float32) bool {
	return math.IsNaN(float64(c[0])) || math.IsNaN(float64(c[1])) || math.IsNaN(float64(c[2]))
}
