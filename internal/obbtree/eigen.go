package obbtree

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
)

var errEigen = fmt.Errorf("%w: eigen decomposition did not converge", ErrBadBasis)

// principalAxes returns the eigenvectors of the symmetric covariance c as a
// right-handed orthonormal basis.
func principalAxes(c mgl64.Mat3) ([3]mgl64.Vec3, error) {
	sym := mat.NewSymDense(3, []float64{
		c.At(0, 0), c.At(0, 1), c.At(0, 2),
		c.At(0, 1), c.At(1, 1), c.At(1, 2),
		c.At(0, 2), c.At(1, 2), c.At(2, 2),
	})

	var es mat.EigenSym
	if ok := es.Factorize(sym, true); !ok {
		return [3]mgl64.Vec3{}, errEigen
	}
	var vecs mat.Dense
	es.VectorsTo(&vecs)

	var axes [3]mgl64.Vec3
	for k := 0; k < 3; k++ {
		axes[k] = mgl64.Vec3{vecs.At(0, k), vecs.At(1, k), vecs.At(2, k)}
	}
	return rightHanded(axes)
}

// rightHanded flips the third axis of a left-handed basis and checks the result.
func rightHanded(axes [3]mgl64.Vec3) ([3]mgl64.Vec3, error) {
	if obbmath.FromRows(axes).Det() < 0 {
		axes[2] = axes[2].Mul(-1)
	}
	if !obbmath.IsProperRotation(obbmath.FromRows(axes), BasisTolerance) {
		return axes, ErrBadBasis
	}
	return axes, nil
}
