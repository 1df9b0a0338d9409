package collision

import (
	"math"
)

// absEpsilon is added to |R| so nearly parallel edge pairs, whose cross
// product vanishes, cannot produce a false separating axis.
const absEpsilon = 1e-12

// numAxes is the number of candidate separating axes for two boxes:
// 3 face normals of A, 3 of B, then the 9 edge cross products A_i x B_j.
const numAxes = 15

// frame expresses box B in the local frame of box A.
type frame struct {
	r, absR [3][3]float64
	t       [3]float64
	ha, hb  [3]float64
}

// dot3 sums the rounded products left to right. The explicit conversions stop
// the compiler from fusing multiply-adds, which keeps every backend that goes
// through this function bit-identical.
func dot3(u, v [3]float64) float64 {
	return float64(u[0]*v[0]) + float64(u[1]*v[1]) + float64(u[2]*v[2])
}

func newFrame(a, b *Box) frame {
	var f frame
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			f.r[i][j] = dot3(a.Axes[i], b.Axes[j])
			f.absR[i][j] = math.Abs(f.r[i][j]) + absEpsilon
		}
	}
	d := b.Center.Sub(a.Center)
	for i := 0; i < 3; i++ {
		f.t[i] = dot3(d, a.Axes[i])
	}
	f.ha = a.Half
	f.hb = b.Half
	return f
}

// axisTerms describes one candidate axis in a common form:
// the axis separates the boxes when |p.q| > ua.va + ub.vb.
type axisTerms struct {
	p, q   [3]float64
	ua, va [3]float64
	ub, vb [3]float64
}

var unitX = [3]float64{1, 0, 0}

// terms returns the operands of candidate axis k, following Ericson,
// Real-Time Collision Detection, 4.4.1.
func (f *frame) terms(k int) axisTerms {
	switch {
	case k < 3:
		i := k
		return axisTerms{
			p: [3]float64{f.t[i], 0, 0}, q: unitX,
			ua: [3]float64{f.ha[i], 0, 0}, va: unitX,
			ub: f.hb, vb: f.absR[i],
		}
	case k < 6:
		j := k - 3
		return axisTerms{
			p: f.t, q: [3]float64{f.r[0][j], f.r[1][j], f.r[2][j]},
			ua: f.ha, va: [3]float64{f.absR[0][j], f.absR[1][j], f.absR[2][j]},
			ub: [3]float64{f.hb[j], 0, 0}, vb: unitX,
		}
	default:
		i, j := (k-6)/3, (k-6)%3
		i1, i2 := (i+1)%3, (i+2)%3
		j1, j2 := (j+1)%3, (j+2)%3
		return axisTerms{
			p: [3]float64{f.t[i2], f.t[i1], 0}, q: [3]float64{f.r[i1][j], -f.r[i2][j], 0},
			ua: [3]float64{f.ha[i1], f.ha[i2], 0}, va: [3]float64{f.absR[i2][j], f.absR[i1][j], 0},
			ub: [3]float64{f.hb[j1], f.hb[j2], 0}, vb: [3]float64{f.absR[i][j2], f.absR[i][j1], 0},
		}
	}
}

// OverlapScalar reports whether two boxes overlap, testing the 15 axes one at
// a time and stopping at the first separating axis.
func OverlapScalar(a, b *Box) bool {
	f := newFrame(a, b)
	for k := 0; k < numAxes; k++ {
		at := f.terms(k)
		if math.Abs(dot3(at.p, at.q)) > dot3(at.ua, at.va)+dot3(at.ub, at.vb) {
			return false
		}
	}
	return true
}

// SeparatingAxis returns the index of the first separating axis, or -1 when the
// boxes overlap. Axes 0-2 are A's faces, 3-5 B's faces, 6-14 edge pairs.
func SeparatingAxis(a, b *Box) int {
	f := newFrame(a, b)
	for k := 0; k < numAxes; k++ {
		at := f.terms(k)
		if math.Abs(dot3(at.p, at.q)) > dot3(at.ua, at.va)+dot3(at.ub, at.vb) {
			return k
		}
	}
	return -1
}
