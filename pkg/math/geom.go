// Package math provides geometry helpers on top of mathgl for collision code.
package math

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Rows returns the rows of m.
func Rows(m mgl64.Mat3) [3]mgl64.Vec3 {
	return [3]mgl64.Vec3{m.Row(0), m.Row(1), m.Row(2)}
}

// FromRows builds a matrix whose rows are the given axes.
func FromRows(axes [3]mgl64.Vec3) mgl64.Mat3 {
	return mgl64.Mat3FromRows(axes[0], axes[1], axes[2])
}

// At returns the element at row i, column j.
func At(m mgl64.Mat3, i, j int) float64 {
	// mgl64 stores matrices column-major.
	return m[j*3+i]
}

// AbsPlus returns |m[i][j]| + eps for every element.
func AbsPlus(m mgl64.Mat3, eps float64) mgl64.Mat3 {
	var out mgl64.Mat3
	for i := range m {
		out[i] = math.Abs(m[i]) + eps
	}
	return out
}

// IsOrthonormal reports whether the rows of m are unit length and pairwise
// perpendicular within tol.
func IsOrthonormal(m mgl64.Mat3, tol float64) bool {
	r := Rows(m)
	for i := 0; i < 3; i++ {
		if math.Abs(r[i].Len()-1) > tol {
			return false
		}
		for j := i + 1; j < 3; j++ {
			if math.Abs(r[i].Dot(r[j])) > tol {
				return false
			}
		}
	}
	return true
}

// IsProperRotation reports whether m is orthonormal with determinant +1.
func IsProperRotation(m mgl64.Mat3, tol float64) bool {
	return IsOrthonormal(m, tol) && math.Abs(m.Det()-1) <= tol
}

// TriangleArea returns the area of triangle abc.
func TriangleArea(a, b, c mgl64.Vec3) float64 {
	return 0.5 * b.Sub(a).Cross(c.Sub(a)).Len()
}

// Centroid returns the centroid of triangle abc.
func Centroid(a, b, c mgl64.Vec3) mgl64.Vec3 {
	return a.Add(b).Add(c).Mul(1.0 / 3.0)
}

// AbsVec returns the component-wise absolute value of v.
func AbsVec(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{math.Abs(v[0]), math.Abs(v[1]), math.Abs(v[2])}
}

// ToFloat32 narrows a vector for GPU-style buffers.
func ToFloat32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}

// FromFloat32 widens a float32 triple.
func FromFloat32(v [3]float32) mgl64.Vec3 {
	return mgl64.Vec3{float64(v[0]), float64(v[1]), float64(v[2])}
}

// EulerDegrees returns the rotation for X, then Y, then Z euler angles in degrees.
func EulerDegrees(x, y, z float64) mgl64.Quat {
	return mgl64.AnglesToQuat(mgl64.DegToRad(x), mgl64.DegToRad(y), mgl64.DegToRad(z), mgl64.XYZ)
}
