package obbtree

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/golang/geo/r3"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-obb/internal/hull"
	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
)

// builder owns the scratch buffers of one tree build. They are sized for the
// root and reused by every node.
type builder struct {
	tree  *Tree
	opts  Options
	chain hull.Chain
	log   *zap.Logger
	rng   *rand.Rand

	unique *uniqueSet
	points []r3.Vector
	hm     hullMesh
	proj   []float64
	sel    []float64
	stack  []int32

	rawHulls int
}

// Build constructs the OBB tree of a triangle mesh.
//
// indices holds three vertex indices per face and is copied; the tree's own
// copy is permuted so that every node covers a contiguous face range.
// Construction failures that leave the tree unusable are returned as *BuildError.
func Build(name string, vertices []mgl64.Vec3, indices []int32, opts Options) (*Tree, error) {
	if err := checkMesh(vertices, indices); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidMesh, name, err)
	}
	start := time.Now()
	numFaces := len(indices) / 3

	t := &Tree{
		Name:     name,
		Nodes:    make([]Node, 0, 2*numFaces-1),
		Indices:  slices.Clone(indices),
		Vertices: vertices,

		Fingerprint: Fingerprint(vertices, indices, opts),
	}
	b := newBuilder(t, opts)

	t.Nodes = append(t.Nodes, newNode(NoNode, 0, int32(numFaces), 0))
	b.stack = append(b.stack, Root)
	for len(b.stack) > 0 {
		n := b.stack[len(b.stack)-1]
		b.stack = b.stack[:len(b.stack)-1]

		if err := b.buildNode(n); err != nil {
			node := &t.Nodes[n]
			return nil, &BuildError{Mesh: name, Depth: node.Depth, FaceCount: node.FaceCount, Err: err}
		}
	}

	stats := t.Stats()
	b.log.Info("tree built",
		zap.String("mesh", name),
		zap.Int("faces", numFaces),
		zap.Int("nodes", stats.Nodes),
		zap.Int32("depth", stats.MaxDepth),
		zap.Int("rawHulls", b.rawHulls),
		zap.Duration("elapsed", time.Since(start)),
	)
	return t, nil
}

func checkMesh(vertices []mgl64.Vec3, indices []int32) error {
	if len(indices) == 0 || len(indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a positive multiple of 3", len(indices))
	}
	for i, v := range indices {
		if v < 0 || int(v) >= len(vertices) {
			return fmt.Errorf("index %d references vertex %d of %d", i, v, len(vertices))
		}
	}
	return nil
}

func newBuilder(t *Tree, opts Options) *builder {
	chain := opts.Hulls
	if chain == nil {
		chain, _ = hull.NewChain(hull.QuickHull{}.Name())
	}
	numFaces := t.NumFaces()
	return &builder{
		tree:   t,
		opts:   opts,
		chain:  chain,
		log:    opts.logger(),
		rng:    rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
		unique: newUniqueSet(len(t.Vertices)),
		proj:   make([]float64, numFaces),
		sel:    make([]float64, numFaces),
		stack:  make([]int32, 0, 64),
	}
}

func (b *builder) buildNode(n int32) error {
	t := b.tree
	node := &t.Nodes[n]
	faces := t.Indices[3*node.FaceStart : 3*(node.FaceStart+node.FaceCount)]
	unique := b.unique.collect(faces)

	hm := b.nodeHull(faces, unique)
	axes, err := computeAxes(hm)
	if err != nil {
		return err
	}
	bx := fitBox(axes, t.Vertices, unique)

	node.Orientation = obbmath.FromRows(axes)
	node.HalfExtents = bx.half
	node.Center = bx.center
	if b.opts.MaxRenderDepth >= 0 && int(node.Depth) <= b.opts.MaxRenderDepth {
		node.Render = newRenderItem(hm)
	}

	if !b.shouldSplit(node) {
		return nil
	}
	left := b.chooseSplit(node, faces, &bx)
	return b.addChildren(n, left)
}

// nodeHull runs the hull chain on the node's unique vertices and falls back to
// the node's own triangles when every algorithm fails.
func (b *builder) nodeHull(faces, unique []int32) *hullMesh {
	vertices := b.tree.Vertices
	hm := &b.hm
	hm.verts = hm.verts[:0]
	hm.tris = hm.tris[:0]

	if len(unique) >= 4 && len(b.chain) > 0 {
		b.points = b.points[:0]
		for _, v := range unique {
			p := vertices[v]
			if b.opts.Perturb {
				p = b.jitter(p)
			}
			b.points = append(b.points, r3.Vector{X: p[0], Y: p[1], Z: p[2]})
		}

		h, _, err := b.chain.Build(b.points)
		if err == nil {
			// Hull vertices map back to unperturbed positions.
			for _, src := range h.Source {
				hm.verts = append(hm.verts, vertices[unique[src]])
			}
			hm.tris = append(hm.tris, h.Indices...)
			return hm
		}
		b.rawHulls++
		b.log.Debug("hull chain failed, using node faces",
			zap.String("mesh", b.tree.Name),
			zap.Int("vertices", len(unique)),
			zap.Error(err),
		)
	}

	for _, v := range unique {
		hm.verts = append(hm.verts, vertices[v])
	}
	for _, v := range faces {
		hm.tris = append(hm.tris, uint32(b.unique.index(v)))
	}
	return hm
}

func (b *builder) jitter(p mgl64.Vec3) mgl64.Vec3 {
	eps := b.opts.PerturbEpsilon
	for k := 0; k < 3; k++ {
		p[k] += (2*b.rng.Float64() - 1) * eps
	}
	return p
}

func (b *builder) shouldSplit(node *Node) bool {
	switch {
	case b.opts.NoSplit, node.FaceCount < 2:
		return false
	case b.opts.OneLevelOnly && node.Depth > 0:
		return false
	}
	return true
}

// chooseSplit partitions the node's faces and returns the size of the first
// child. Axes are tried longest first; if none separates the faces the range
// is cut in half by index.
func (b *builder) chooseSplit(node *Node, faces []int32, bx *box) int32 {
	count := int(node.FaceCount)
	if count == 2 {
		return 1
	}

	proj, sel := b.proj[:count], b.sel[:count]
	for _, k := range bx.axisOrder() {
		projectCentroids(proj, faces, b.tree.Vertices, bx.axes[k])
		at := splitPoint(b.opts.Split, bx, k, proj, sel)
		if left := partitionFaces(faces, proj, at); left > 0 && left < count {
			return int32(left)
		}
	}

	b.log.Debug("no axis separates faces, splitting by index",
		zap.String("mesh", b.tree.Name),
		zap.Int32("depth", node.Depth),
		zap.Int("faces", count),
	)
	return int32(count / 2)
}

func (b *builder) addChildren(n, left int32) error {
	t := b.tree
	parent := t.Nodes[n]
	right := parent.FaceCount - left
	if left < 1 || right < 1 || len(t.Nodes)+2 > cap(t.Nodes) {
		return ErrCannotSplit
	}

	c1 := int32(len(t.Nodes))
	c2 := c1 + 1
	t.Nodes = append(t.Nodes,
		newNode(n, parent.FaceStart, left, parent.Depth+1),
		newNode(n, parent.FaceStart+left, right, parent.Depth+1),
	)
	if t.Nodes[c1].FaceCount+t.Nodes[c2].FaceCount != parent.FaceCount {
		return ErrFaceCountMismatch
	}

	p := &t.Nodes[n]
	p.Child1, p.Child2, p.IsLeaf = c1, c2, false

	// Pop order visits child1 first.
	b.stack = append(b.stack, c2, c1)
	return nil
}
