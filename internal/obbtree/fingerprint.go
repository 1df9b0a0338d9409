package obbtree

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl64"
)

// fingerprintVersion changes whenever the node layout or the builder's output
// for identical input changes.
const fingerprintVersion = 1

// Fingerprint hashes a mesh and the options that shape its tree. A persisted
// tree is only reused when its stored fingerprint matches.
func Fingerprint(vertices []mgl64.Vec3, indices []int32, opts Options) uint64 {
	d := xxhash.New()
	var buf [24]byte

	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:8], v)
		d.Write(buf[:8])
	}
	put(fingerprintVersion)

	put(uint64(len(vertices)))
	for _, v := range vertices {
		binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(v[0]))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(v[1]))
		binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(v[2]))
		d.Write(buf[:])
	}
	put(uint64(len(indices)))
	for _, i := range indices {
		binary.LittleEndian.PutUint32(buf[:4], uint32(i))
		d.Write(buf[:4])
	}

	var flags uint64
	for i, on := range []bool{opts.Perturb, opts.NoSplit, opts.OneLevelOnly} {
		if on {
			flags |= 1 << i
		}
	}
	put(flags)
	put(math.Float64bits(opts.PerturbEpsilon))
	put(opts.Seed)
	put(uint64(opts.Split))
	put(uint64(int64(opts.MaxRenderDepth)))
	for _, alg := range opts.Hulls {
		d.WriteString(alg.Name())
		d.Write([]byte{0})
	}
	return d.Sum64()
}
