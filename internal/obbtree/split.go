package obbtree

import (
	"github.com/go-gl/mathgl/mgl64"
)

// splitPoint returns the position along the axis that separates the two children.
// proj holds the face centroid projections; sel is scratch of the same length.
func splitPoint(policy SplitPolicy, b *box, axis int, proj, sel []float64) float64 {
	switch policy {
	case SplitGeometric:
		return (b.min[axis] + b.max[axis]) / 2
	case SplitMean:
		var sum float64
		for _, p := range proj {
			sum += p
		}
		return sum / float64(len(proj))
	default:
		copy(sel, proj)
		return quickselect(sel, len(sel)/2)
	}
}

// quickselect returns the k-th smallest value of s, reordering s.
func quickselect(s []float64, k int) float64 {
	lo, hi := 0, len(s)-1
	for lo < hi {
		// median of three pivot
		mid := lo + (hi-lo)/2
		if s[mid] < s[lo] {
			s[mid], s[lo] = s[lo], s[mid]
		}
		if s[hi] < s[lo] {
			s[hi], s[lo] = s[lo], s[hi]
		}
		if s[hi] < s[mid] {
			s[hi], s[mid] = s[mid], s[hi]
		}
		pivot := s[mid]

		i, j := lo, hi
		for i <= j {
			for s[i] < pivot {
				i++
			}
			for s[j] > pivot {
				j--
			}
			if i <= j {
				s[i], s[j] = s[j], s[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return s[k]
		}
	}
	return s[k]
}

// projectCentroids fills proj with the centroid of each face projected onto axis.
func projectCentroids(proj []float64, faces []int32, vertices []mgl64.Vec3, axis mgl64.Vec3) {
	for f := range proj {
		a, b, c := vertices[faces[3*f]], vertices[faces[3*f+1]], vertices[faces[3*f+2]]
		proj[f] = axis.Dot(a.Add(b).Add(c)) / 3
	}
}

// partitionFaces moves faces with projection below split to the front and
// returns how many there are. faces and proj are permuted together.
func partitionFaces(faces []int32, proj []float64, split float64) int {
	i, j := 0, len(proj)-1
	for i <= j {
		if proj[i] < split {
			i++
			continue
		}
		proj[i], proj[j] = proj[j], proj[i]
		faces[3*i], faces[3*j] = faces[3*j], faces[3*i]
		faces[3*i+1], faces[3*j+1] = faces[3*j+1], faces[3*i+1]
		faces[3*i+2], faces[3*j+2] = faces[3*j+2], faces[3*i+2]
		j--
	}
	return i
}
