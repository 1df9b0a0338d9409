package collision

import (
	"errors"
	"fmt"

	"golang.org/x/sys/cpu"
)

// ErrBackendMismatch is the panic value when cross-checked backends disagree.
var ErrBackendMismatch = errors.New("collision: scalar and lane backends disagree")

// Backend selects the box overlap implementation.
type Backend int

const (
	// BackendScalar tests one axis at a time.
	BackendScalar Backend = iota
	// BackendLanes tests four axes per step in portable Go; no assembly.
	BackendLanes
	// BackendCrossCheck runs both and panics if they disagree.
	BackendCrossCheck
)

func (b Backend) String() string {
	switch b {
	case BackendScalar:
		return "scalar"
	case BackendLanes:
		return "lanes"
	case BackendCrossCheck:
		return "crosscheck"
	default:
		return fmt.Sprintf("Backend(%d)", int(b))
	}
}

// DefaultBackend picks BackendLanes on CPUs with AVX or ASIMD and
// BackendScalar elsewhere. Both are plain Go and give identical results; the
// feature check only guesses whether the compiler's code for the four-wide
// array loops will run faster than the scalar early exits.
func DefaultBackend() Backend {
	if cpu.X86.HasAVX || cpu.ARM64.HasASIMD {
		return BackendLanes
	}
	return BackendScalar
}

// SelectBackend maps the collision configuration flags to a backend.
func SelectBackend(useSIMD, crossCheck bool) Backend {
	switch {
	case crossCheck:
		return BackendCrossCheck
	case useSIMD:
		return DefaultBackend()
	default:
		return BackendScalar
	}
}

// Overlap runs the selected box test.
func (b Backend) Overlap(x, y *Box) bool {
	switch b {
	case BackendLanes:
		return OverlapLanes(x, y)
	case BackendCrossCheck:
		s, l := OverlapScalar(x, y), OverlapLanes(x, y)
		if s != l {
			panic(fmt.Errorf("%w: scalar=%t lanes=%t for %+v and %+v", ErrBackendMismatch, s, l, *x, *y))
		}
		return s
	default:
		return OverlapScalar(x, y)
	}
}
