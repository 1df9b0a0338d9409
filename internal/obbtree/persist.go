package obbtree

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/multierr"
)

// ErrNotCached is returned by Load when a persisted tree is missing or
// unusable. Callers rebuild the tree.
var ErrNotCached = errors.New("obbtree: no usable cached tree")

// Stream file suffixes, in the order they are written.
const (
	SuffixNodes      = "_OBB.bin"
	SuffixIndices    = "_OBB_index.bin"
	SuffixHullIndex  = "_OBB_CH_ind.bin"
	SuffixHullVertex = "_OBB_CH_vert.bin"
	SuffixRender     = "_OBB_RI.bin"

	gzipExt = ".gz"
)

// NodeRecordSize is the on-disk size of one node.
const NodeRecordSize = 148

// nodeStreamFraming is the capacity header, size trailer and fingerprint
// around the node records.
const nodeStreamFraming = 4 + 4 + 8

const renderRecordSize = 12

// maxHullVertices bounds allocations driven by a corrupt render stream.
const maxHullVertices = 1 << 24

// nodeRecord is the little-endian layout of a node.
type nodeRecord struct {
	HalfExtents [3]float64
	Orientation [9]float64 // row major
	Center      [3]float64
	FaceStart   int32
	FaceCount   int32
	Parent      int32
	Child1      int32
	Child2      int32
	Depth       int32
	IsLeaf      uint8
	HasRender   uint8
	_           [2]uint8
}

type renderRecord struct {
	Node        int32
	VertexCount uint32
	IndexCount  uint32
}

// Paths returns the five stream paths of a persisted tree.
func Paths(dir, name string, compress bool) [5]string {
	ext := ""
	if compress {
		ext = gzipExt
	}
	base := filepath.Join(dir, name)
	return [5]string{
		base + SuffixNodes + ext,
		base + SuffixIndices + ext,
		base + SuffixHullIndex + ext,
		base + SuffixHullVertex + ext,
		base + SuffixRender + ext,
	}
}

func toRecord(n *Node) nodeRecord {
	r := nodeRecord{
		HalfExtents: n.HalfExtents,
		Center:      n.Center,
		FaceStart:   n.FaceStart,
		FaceCount:   n.FaceCount,
		Parent:      n.Parent,
		Child1:      n.Child1,
		Child2:      n.Child2,
		Depth:       n.Depth,
	}
	for i := 0; i < 3; i++ {
		row := n.Orientation.Row(i)
		copy(r.Orientation[3*i:3*i+3], row[:])
	}
	if n.IsLeaf {
		r.IsLeaf = 1
	}
	if n.Render != nil {
		r.HasRender = 1
	}
	return r
}

func fromRecord(r *nodeRecord) Node {
	var rows [3]mgl64.Vec3
	for i := range rows {
		rows[i] = mgl64.Vec3{r.Orientation[3*i], r.Orientation[3*i+1], r.Orientation[3*i+2]}
	}
	return Node{
		HalfExtents: r.HalfExtents,
		Orientation: mgl64.Mat3FromRows(rows[0], rows[1], rows[2]),
		Center:      r.Center,
		FaceStart:   r.FaceStart,
		FaceCount:   r.FaceCount,
		Parent:      r.Parent,
		Child1:      r.Child1,
		Child2:      r.Child2,
		Depth:       r.Depth,
		IsLeaf:      r.IsLeaf != 0,
	}
}

// writeStream is a buffered file, optionally gzip compressed.
type writeStream struct {
	f  *os.File
	gz *gzip.Writer
	bw *bufio.Writer
}

func createStream(path string, compress bool) (*writeStream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &writeStream{f: f}
	if compress {
		s.gz = gzip.NewWriter(f)
		s.bw = bufio.NewWriter(s.gz)
	} else {
		s.bw = bufio.NewWriter(f)
	}
	return s, nil
}

func (s *writeStream) write(data any) error {
	return binary.Write(s.bw, binary.LittleEndian, data)
}

func (s *writeStream) Close() error {
	err := s.bw.Flush()
	if s.gz != nil {
		err = multierr.Append(err, s.gz.Close())
	}
	return multierr.Append(err, s.f.Close())
}

// Save writes the tree as five streams named after name under dir. On failure
// any partially written files are removed.
func Save(dir, name string, t *Tree, compress bool) (err error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("obbtree: create cache dir: %w", err)
	}
	paths := Paths(dir, name, compress)

	var streams [5]*writeStream
	defer func() {
		for _, s := range streams {
			if s != nil {
				err = multierr.Append(err, s.Close())
			}
		}
		if err != nil {
			for _, p := range paths {
				os.Remove(p)
			}
			err = fmt.Errorf("obbtree: save %q: %w", name, err)
		}
	}()

	for i, p := range paths {
		if streams[i], err = createStream(p, compress); err != nil {
			return err
		}
	}
	nodes, faces, hullIdx, hullVert, render := streams[0], streams[1], streams[2], streams[3], streams[4]

	capacity := 2*t.NumFaces() - 1
	records := make([]nodeRecord, capacity)
	for i := range t.Nodes {
		records[i] = toRecord(&t.Nodes[i])
	}
	if err = nodes.write(uint32(capacity)); err != nil {
		return err
	}
	if err = nodes.write(records); err != nil {
		return err
	}
	if err = nodes.write(uint32(len(t.Nodes))); err != nil {
		return err
	}
	if err = nodes.write(t.Fingerprint); err != nil {
		return err
	}

	if err = faces.write(t.Indices); err != nil {
		return err
	}

	for i := range t.Nodes {
		r := t.Nodes[i].Render
		if r == nil {
			continue
		}
		rec := renderRecord{Node: int32(i), VertexCount: uint32(r.VertexCount()), IndexCount: uint32(len(r.Indices))}
		if err = render.write(rec); err != nil {
			return err
		}
		if err = hullIdx.write(r.Indices); err != nil {
			return err
		}
		if err = hullVert.write(r.Vertices); err != nil {
			return err
		}
	}
	return nil
}

// readStream is an open stream. size is the file size for raw streams and -1
// for compressed ones.
type readStream struct {
	io.Reader
	closers []io.Closer
	size    int64
}

func openStream(path string, compress bool) (*readStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	s := &readStream{closers: []io.Closer{f}, size: -1}
	if !compress {
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, err
		}
		s.size = info.Size()
		s.Reader = bufio.NewReader(f)
		return s, nil
	}
	gz, err := gzip.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, err
	}
	s.Reader = gz
	s.closers = append([]io.Closer{gz}, s.closers...)
	return s, nil
}

func (s *readStream) read(data any) error {
	return binary.Read(s, binary.LittleEndian, data)
}

func (s *readStream) Close() error {
	var err error
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}

// Load reads a tree persisted by Save. vertices is the mesh vertex buffer the
// tree was built from, numFaces its triangle count and fingerprint the value
// Fingerprint returns for the mesh and current options. Any missing, truncated,
// inconsistent or stale stream yields an error wrapping ErrNotCached.
func Load(dir, name string, vertices []mgl64.Vec3, numFaces int, fingerprint uint64, compress bool) (*Tree, error) {
	t, err := load(dir, name, vertices, numFaces, fingerprint, compress)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotCached, name, err)
	}
	return t, nil
}

func load(dir, name string, vertices []mgl64.Vec3, numFaces int, fingerprint uint64, compress bool) (t *Tree, err error) {
	if numFaces < 1 {
		return nil, fmt.Errorf("invalid face count %d", numFaces)
	}
	paths := Paths(dir, name, compress)

	var streams [5]*readStream
	defer func() {
		for _, s := range streams {
			if s != nil {
				err = multierr.Append(err, s.Close())
			}
		}
		if err != nil {
			t = nil
		}
	}()
	for i, p := range paths {
		if streams[i], err = openStream(p, compress); err != nil {
			return nil, err
		}
	}
	nodes, faces, hullIdx, hullVert, render := streams[0], streams[1], streams[2], streams[3], streams[4]

	capacity := 2*numFaces - 1
	if !compress {
		if err := checkRawSizes(streams, capacity, numFaces); err != nil {
			return nil, err
		}
	}

	var storedCap uint32
	if err := nodes.read(&storedCap); err != nil {
		return nil, fmt.Errorf("node header: %w", err)
	}
	if int(storedCap) != capacity {
		return nil, fmt.Errorf("stored capacity %d, mesh implies %d", storedCap, capacity)
	}
	records := make([]nodeRecord, capacity)
	if err := nodes.read(records); err != nil {
		return nil, fmt.Errorf("node records: %w", err)
	}
	var size uint32
	if err := nodes.read(&size); err != nil {
		return nil, fmt.Errorf("node trailer: %w", err)
	}
	if size < 1 || int(size) > capacity {
		return nil, fmt.Errorf("stored size %d exceeds capacity %d", size, capacity)
	}
	var stored uint64
	if err := nodes.read(&stored); err != nil {
		return nil, fmt.Errorf("fingerprint: %w", err)
	}
	if stored != fingerprint {
		return nil, fmt.Errorf("stale tree: fingerprint %016x, mesh has %016x", stored, fingerprint)
	}

	t = &Tree{
		Name:        name,
		Nodes:       make([]Node, size, capacity),
		Indices:     make([]int32, 3*numFaces),
		Vertices:    vertices,
		Fingerprint: stored,
	}
	for i := range t.Nodes {
		t.Nodes[i] = fromRecord(&records[i])
	}
	if err := faces.read(t.Indices); err != nil {
		return nil, fmt.Errorf("face indices: %w", err)
	}
	if err := checkMesh(vertices, t.Indices); err != nil {
		return nil, err
	}

	if err := loadRenderItems(t, records[:size], render, hullIdx, hullVert); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func checkRawSizes(s [5]*readStream, capacity, numFaces int) error {
	if n := s[0].size - nodeStreamFraming; n < 0 || n%NodeRecordSize != 0 || n/NodeRecordSize != int64(capacity) {
		return fmt.Errorf("node stream has %d bytes, want %d", s[0].size, nodeStreamFraming+capacity*NodeRecordSize)
	}
	if s[1].size != int64(numFaces)*3*4 {
		return fmt.Errorf("index stream has %d bytes, want %d", s[1].size, numFaces*3*4)
	}
	if s[2].size%4 != 0 || s[3].size%4 != 0 || s[4].size%renderRecordSize != 0 {
		return errors.New("hull stream size is not a whole number of records")
	}
	return nil
}

func loadRenderItems(t *Tree, records []nodeRecord, render, hullIdx, hullVert *readStream) error {
	for i := range records {
		if records[i].HasRender == 0 {
			continue
		}
		var rec renderRecord
		if err := render.read(&rec); err != nil {
			return fmt.Errorf("render item for node %d: %w", i, err)
		}
		if int(rec.Node) != i {
			return fmt.Errorf("render item for node %d found, want %d", rec.Node, i)
		}
		if rec.VertexCount > maxHullVertices || rec.IndexCount > 6*maxHullVertices {
			return fmt.Errorf("render item for node %d is implausibly large", i)
		}
		item := &RenderItem{
			Vertices: make([]float32, 3*rec.VertexCount),
			Indices:  make([]uint32, rec.IndexCount),
		}
		if err := hullIdx.read(item.Indices); err != nil {
			return fmt.Errorf("hull indices for node %d: %w", i, err)
		}
		if err := hullVert.read(item.Vertices); err != nil {
			return fmt.Errorf("hull vertices for node %d: %w", i, err)
		}
		for _, v := range item.Indices {
			if v >= rec.VertexCount {
				return fmt.Errorf("hull index %d out of range for node %d", v, i)
			}
		}
		t.Nodes[i].Render = item
	}
	return nil
}
