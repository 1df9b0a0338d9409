package formats

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// OBJ format errors.
var (
	ErrInvalidOBJVertex = errors.New("invalid OBJ vertex")
	ErrInvalidOBJFace   = errors.New("invalid OBJ face")
)

// ParseOBJ parses Wavefront OBJ geometry. Only positions and faces are read;
// polygons are fan triangulated and negative (relative) indices are resolved.
func ParseOBJ(data []byte) (*Mesh, error) {
	return readOBJ(bytes.NewReader(data))
}

// ParseOBJFile parses an OBJ file from disk.
func ParseOBJFile(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading OBJ file: %w", err)
	}
	defer f.Close()
	return readOBJ(f)
}

func readOBJ(r io.Reader) (*Mesh, error) {
	m := &Mesh{}
	var poly []int32

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 || strings.HasPrefix(tokens[0], "#") {
			continue
		}

		switch tokens[0] {
		case "o":
			if m.Name == "" && len(tokens) > 1 {
				m.Name = tokens[1]
			}
		case "v":
			v, err := parseOBJVec3(tokens)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNum, err)
			}
			m.Vertices = append(m.Vertices, v)
		case "f":
			if len(tokens) < 4 {
				return nil, fmt.Errorf("line %d: %w: need at least 3 vertices, got %d", lineNum, ErrInvalidOBJFace, len(tokens)-1)
			}
			poly = poly[:0]
			for _, tok := range tokens[1:] {
				idx, err := parseOBJIndex(tok, len(m.Vertices))
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNum, err)
				}
				poly = append(poly, idx)
			}
			for i := 1; i+1 < len(poly); i++ {
				m.Indices = append(m.Indices, poly[0], poly[i], poly[i+1])
			}
		default:
			// Normals, texture coordinates, groups and materials carry no collision data.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ data: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func parseOBJVec3(tokens []string) (mgl64.Vec3, error) {
	// A fourth (w) component is allowed and ignored.
	if len(tokens) < 4 {
		return mgl64.Vec3{}, fmt.Errorf("%w: expected 3 coordinates, got %d", ErrInvalidOBJVertex, len(tokens)-1)
	}
	var v mgl64.Vec3
	for k := 0; k < 3; k++ {
		f, err := strconv.ParseFloat(tokens[k+1], 64)
		if err != nil {
			return mgl64.Vec3{}, fmt.Errorf("%w: %v", ErrInvalidOBJVertex, err)
		}
		v[k] = f
	}
	return v, nil
}

// parseOBJIndex resolves the position part of a "v", "v/vt", "v//vn" or
// "v/vt/vn" face token to a zero-based index.
func parseOBJIndex(tok string, numVertices int) (int32, error) {
	if slash := strings.IndexByte(tok, '/'); slash >= 0 {
		tok = tok[:slash]
	}
	n, err := strconv.Atoi(tok)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: bad index %q", ErrInvalidOBJFace, tok)
	}
	if n < 0 {
		n += numVertices
	} else {
		n--
	}
	if n < 0 || n >= numVertices {
		return 0, fmt.Errorf("%w: index %q with %d vertices", ErrIndexOutOfRange, tok, numVertices)
	}
	return int32(n), nil
}

// WriteOBJ writes the mesh as OBJ positions and triangles.
func WriteOBJ(w io.Writer, m *Mesh) error {
	bw := bufio.NewWriter(w)
	if m.Name != "" {
		fmt.Fprintf(bw, "o %s\n", m.Name)
	}
	for _, v := range m.Vertices {
		fmt.Fprintf(bw, "v %g %g %g\n", v[0], v[1], v[2])
	}
	for f := 0; f < m.NumFaces(); f++ {
		fmt.Fprintf(bw, "f %d %d %d\n", m.Indices[3*f]+1, m.Indices[3*f+1]+1, m.Indices[3*f+2]+1)
	}
	return bw.Flush()
}
