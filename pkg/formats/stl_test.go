package formats

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
)

// makeSTL builds a binary STL file from facet corners.
func makeSTL(facets [][3][3]float32) []byte {
	data := make([]byte, stlHeaderSize+4, stlHeaderSize+4+len(facets)*stlTriangleSize)
	copy(data, "binary test mesh")
	binary.LittleEndian.PutUint32(data[stlHeaderSize:], uint32(len(facets)))
	for _, f := range facets {
		rec := make([]byte, stlTriangleSize)
		for c := 0; c < 3; c++ {
			for k := 0; k < 3; k++ {
				off := 12 + 12*c + 4*k
				binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(f[c][k]))
			}
		}
		data = append(data, rec...)
	}
	return data
}

func TestParseSTL_WeldsCorners(t *testing.T) {
	data := makeSTL([][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}},
		{{0, 0, 0}, {1, 1, 0}, {0, 1, 0}},
	})
	m, err := ParseSTL(data)
	if err != nil {
		t.Fatalf("ParseSTL() error = %v", err)
	}
	if len(m.Vertices) != 4 {
		t.Errorf("len(Vertices) = %d, want 4 after welding", len(m.Vertices))
	}
	want := []int32{0, 1, 2, 0, 2, 3}
	if !equalIndices(m.Indices, want) {
		t.Errorf("Indices = %v, want %v", m.Indices, want)
	}
	if got := m.Vertices[2]; got[0] != 1 || got[1] != 1 || got[2] != 0 {
		t.Errorf("Vertices[2] = %v", got)
	}
}

func TestParseSTL_SolidHeader(t *testing.T) {
	// Some exporters start binary headers with "solid".
	data := makeSTL([][3][3]float32{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}})
	copy(data, "solid exported by CAD")
	for i := len("solid exported by CAD"); i < stlHeaderSize; i++ {
		data[i] = ' '
	}
	if _, err := ParseSTL(data); err != nil {
		t.Errorf("ParseSTL() error = %v", err)
	}
}

func TestParseSTL_Errors(t *testing.T) {
	ascii := []byte("solid cube\n  facet normal 0 0 1\n    outer loop\n      vertex 0 0 0\n      vertex 1 0 0\n      vertex 0 1 0\n    endloop\n  endfacet\nendsolid cube\n")
	one := makeSTL([][3][3]float32{{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}})
	nan := makeSTL([][3][3]float32{{{0, 0, 0}, {float32(math.NaN()), 0, 0}, {0, 1, 0}}})

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"empty data", []byte{}, ErrTruncatedSTLData},
		{"header only", one[:stlHeaderSize], ErrTruncatedSTLData},
		{"truncated facet", one[:len(one)-10], ErrTruncatedSTLData},
		{"ascii", ascii, ErrASCIISTL},
		{"nan coordinate", nan, ErrInvalidSTLData},
		{"no facets", makeSTL(nil), ErrEmptyMesh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSTL(tt.data)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ParseSTL() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
