// Package broadphase culls body pairs whose world-space bounding boxes are
// apart on any axis before the tree walk runs.
package broadphase

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box in world space.
type AABB struct {
	Min, Max mgl64.Vec3
}

// Overlaps reports whether two boxes touch on every axis.
func (a AABB) Overlaps(b AABB) bool {
	for k := 0; k < 3; k++ {
		if a.Max[k] < b.Min[k] || b.Max[k] < a.Min[k] {
			return false
		}
	}
	return true
}

// Pair is a candidate body pair with A < B.
type Pair struct {
	A, B int
}

// Overlap flags are stored 3 bits per pair, 21 pairs per word.
const (
	pairsPerWord = 21
	allAxes      = 0b111
)

// axisMask has the bit of one axis set for every pair slot of a word.
var axisMask = func() (m [3]uint64) {
	for axis := range m {
		for k := 0; k < pairsPerWord; k++ {
			m[axis] |= 1 << (3*k + axis)
		}
	}
	return m
}()

// SweepAndPrune keeps one body ordering per world axis, sorted by box minimum,
// and an upper-triangular matrix of per-axis overlap flags.
//
// The orderings survive between updates, so insertion sort runs in near
// linear time while bodies move little per step. A SweepAndPrune is not safe
// for concurrent use.
type SweepAndPrune struct {
	n      int
	order  [3][]int
	bits   []uint64
	active []int
	pairs  []Pair
}

// New returns a sweep for n bodies.
func New(n int) *SweepAndPrune {
	s := &SweepAndPrune{}
	s.Resize(n)
	return s
}

// Len returns the number of bodies tracked.
func (s *SweepAndPrune) Len() int { return s.n }

// Resize changes the number of tracked bodies. Bodies below the new count
// keep their place in each ordering; new bodies are appended. All overlap
// flags are cleared.
func (s *SweepAndPrune) Resize(n int) {
	if n < 0 {
		panic(fmt.Sprintf("broadphase: negative body count %d", n))
	}
	for axis := range s.order {
		kept := s.order[axis][:0]
		for _, i := range s.order[axis] {
			if i < n {
				kept = append(kept, i)
			}
		}
		for i := len(kept); i < n; i++ {
			kept = append(kept, i)
		}
		s.order[axis] = kept
	}
	s.n = n
	words := (numPairs(n) + pairsPerWord - 1) / pairsPerWord
	if cap(s.bits) >= words {
		s.bits = s.bits[:words]
		clear(s.bits)
	} else {
		s.bits = make([]uint64, words)
	}
}

func numPairs(n int) int { return n * (n - 1) / 2 }

// slot returns the packed index of pair (i, j), i < j.
func (s *SweepAndPrune) slot(i, j int) int {
	return i*(2*s.n-i-1)/2 + (j - i - 1)
}

func (s *SweepAndPrune) flags(i, j int) uint64 {
	if i > j {
		i, j = j, i
	}
	p := s.slot(i, j)
	return (s.bits[p/pairsPerWord] >> (3 * (p % pairsPerWord))) & allAxes
}

func (s *SweepAndPrune) set(i, j, axis int) {
	if i > j {
		i, j = j, i
	}
	p := s.slot(i, j)
	s.bits[p/pairsPerWord] |= 1 << (3*(p%pairsPerWord) + axis)
}

// Update re-sorts and sweeps every axis for the given boxes, indexed by body,
// and returns the candidate pairs. The returned slice is reused by the next
// call. A change in the number of boxes resizes the sweep first.
func (s *SweepAndPrune) Update(boxes []AABB) []Pair {
	if len(boxes) != s.n {
		s.Resize(len(boxes))
	}
	for axis := 0; axis < 3; axis++ {
		s.sweep(boxes, axis)
	}
	return s.Candidates()
}

func (s *SweepAndPrune) sweep(boxes []AABB, axis int) {
	order := s.order[axis]
	insertionSort(order, boxes, axis)

	for w := range s.bits {
		s.bits[w] &^= axisMask[axis]
	}

	s.active = s.active[:0]
	for _, i := range order {
		lo := boxes[i].Min[axis]
		kept := s.active[:0]
		for _, j := range s.active {
			if boxes[j].Max[axis] < lo {
				continue
			}
			s.set(i, j, axis)
			kept = append(kept, j)
		}
		s.active = append(kept, i)
	}
}

// insertionSort orders body indices by box minimum on one axis. It is stable,
// so ties keep their previous order.
func insertionSort(order []int, boxes []AABB, axis int) {
	for i := 1; i < len(order); i++ {
		key := order[i]
		v := boxes[key].Min[axis]
		j := i - 1
		for j >= 0 && boxes[order[j]].Min[axis] > v {
			order[j+1] = order[j]
			j--
		}
		order[j+1] = key
	}
}

// Candidates returns the pairs flagged on all three axes by the last Update.
func (s *SweepAndPrune) Candidates() []Pair {
	return s.collect(allAxes)
}

// AxisOverlaps returns the pairs whose intervals overlapped on one axis in
// the last Update.
func (s *SweepAndPrune) AxisOverlaps(axis int) []Pair {
	if axis < 0 || axis > 2 {
		panic(fmt.Sprintf("broadphase: axis %d out of range", axis))
	}
	return s.collect(1 << axis)
}

// Overlapping reports whether bodies i and j were flagged on all three axes.
func (s *SweepAndPrune) Overlapping(i, j int) bool {
	return i != j && s.flags(i, j) == allAxes
}

func (s *SweepAndPrune) collect(mask uint64) []Pair {
	s.pairs = s.pairs[:0]
	p := 0
	for i := 0; i < s.n; i++ {
		for j := i + 1; j < s.n; j++ {
			if (s.bits[p/pairsPerWord]>>(3*(p%pairsPerWord)))&mask == mask {
				s.pairs = append(s.pairs, Pair{A: i, B: j})
			}
			p++
		}
	}
	return s.pairs
}

// Order returns the current ordering of bodies on one axis.
func (s *SweepAndPrune) Order(axis int) []int {
	return s.order[axis]
}
