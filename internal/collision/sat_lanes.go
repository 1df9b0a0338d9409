package collision

import (
	"math"
)

// lanes is one 4-wide register worth of float64 values.
type lanes [4]float64

func mulLanes(a, b *lanes) (out lanes) {
	for i := range out {
		out[i] = float64(a[i] * b[i])
	}
	return out
}

func addLanes(a, b *lanes) (out lanes) {
	for i := range out {
		out[i] = a[i] + b[i]
	}
	return out
}

func absLanes(a *lanes) (out lanes) {
	for i := range out {
		out[i] = math.Abs(a[i])
	}
	return out
}

// dot3Lanes evaluates dot3 in every lane with the same rounding and order.
func dot3Lanes(u, v *[3]lanes) lanes {
	p0 := mulLanes(&u[0], &v[0])
	p1 := mulLanes(&u[1], &v[1])
	p2 := mulLanes(&u[2], &v[2])
	s := addLanes(&p0, &p1)
	return addLanes(&s, &p2)
}

func anyGreater(a, b *lanes) bool {
	return a[0] > b[0] || a[1] > b[1] || a[2] > b[2] || a[3] > b[3]
}

// laneBatch holds the operands of four axes, transposed so that component c of
// operand x for lane l sits at x[c][l].
type laneBatch struct {
	p, q   [3]lanes
	ua, va [3]lanes
	ub, vb [3]lanes
}

func (lb *laneBatch) set(l int, at *axisTerms) {
	for c := 0; c < 3; c++ {
		lb.p[c][l], lb.q[c][l] = at.p[c], at.q[c]
		lb.ua[c][l], lb.va[c][l] = at.ua[c], at.va[c]
		lb.ub[c][l], lb.vb[c][l] = at.ub[c], at.vb[c]
	}
}

// separates reports whether any lane holds a separating axis. Unused lanes are
// zero, which never separates.
func (lb *laneBatch) separates() bool {
	d := dot3Lanes(&lb.p, &lb.q)
	dist := absLanes(&d)
	ra := dot3Lanes(&lb.ua, &lb.va)
	rb := dot3Lanes(&lb.ub, &lb.vb)
	r := addLanes(&ra, &rb)
	return anyGreater(&dist, &r)
}

// OverlapLanes is OverlapScalar with the 15 axes evaluated four at a time.
// Every lane performs the scalar operations in the scalar order, so both
// functions reach the same decision for every input.
func OverlapLanes(a, b *Box) bool {
	f := newFrame(a, b)
	for k := 0; k < numAxes; k += 4 {
		var lb laneBatch
		for l := 0; l < 4 && k+l < numAxes; l++ {
			at := f.terms(k + l)
			lb.set(l, &at)
		}
		if lb.separates() {
			return false
		}
	}
	return true
}
