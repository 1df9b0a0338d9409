package main

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// vec3 reads an optional three component flag value.
func vec3(values []float64, def mgl64.Vec3) (mgl64.Vec3, error) {
	switch len(values) {
	case 0:
		return def, nil
	case 3:
		return mgl64.Vec3{values[0], values[1], values[2]}, nil
	default:
		return def, fmt.Errorf("expected 3 components, got %d", len(values))
	}
}
