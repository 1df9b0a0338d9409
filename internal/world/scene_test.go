package world

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-obb/internal/assets"
	"github.com/Faultbox/midgard-obb/internal/config"
)

const testScene = `
steps: 40
time_step: 0.05
bodies:
  - name: ring
    mesh: {shape: torus}
  - name: crate
    mesh: {name: crate, shape: box}
    position: [3, 0, 0]
    rotation: [0, 0, 45]
    linear_velocity: [-2, 0, 0]
    angular_velocity: [0, 90, 0]
  - mesh: {name: crate, shape: box}
    position: [-3, 0, 0]
    scale: 0.5
`

func TestParseScene(t *testing.T) {
	s, err := ParseScene([]byte(testScene))
	require.NoError(t, err)
	assert.Equal(t, 40, s.Steps)
	require.Len(t, s.Bodies, 3)
	assert.Equal(t, "body2", s.Bodies[2].Name)
	assert.Equal(t, 1.0, s.Bodies[0].Scale)
	assert.Equal(t, 0.5, s.Bodies[2].Scale)

	assert.Equal(t, []assets.Source{{Shape: "torus"}, {Name: "crate", Shape: "box"}}, s.Sources())

	tr := s.Bodies[1].Transform()
	assert.InDelta(t, 1, tr.Rotation.Len(), 1e-12)
	x := tr.Placement().Apply([3]float64{1, 0, 0})
	assert.InDelta(t, 3+0.7071067811865476, x[0], 1e-12)
}

func TestParseSceneErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"syntax", "bodies: [\n"},
		{"empty", "steps: 3\n"},
		{"no mesh", "bodies:\n  - name: a\n"},
		{"negative scale", "bodies:\n  - mesh: {shape: box}\n    scale: -1\n"},
		{"nan scale", "bodies:\n  - mesh: {shape: box}\n    scale: .nan\n"},
		{"conflicting mesh", "bodies:\n  - mesh: {name: m, shape: box}\n  - mesh: {name: m, shape: torus}\n"},
		{"negative steps", "steps: -1\nbodies:\n  - mesh: {shape: box}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScene([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrInvalidScene)
		})
	}
}

func TestSceneRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testScene), 0644))
	s, err := LoadScene(path)
	require.NoError(t, err)

	cfg := config.Default()
	cfg.Cache.Enabled = false
	m, err := assets.NewManager(cfg.Build, cfg.Cache)
	require.NoError(t, err)
	meshes, err := s.LoadMeshes(context.Background(), m, 2)
	require.NoError(t, err)
	require.Len(t, meshes, 2)

	w := NewFromConfig(cfg.Collision, cfg.Simulation)
	require.NoError(t, s.Populate(w, meshes))
	require.Len(t, w.Bodies(), 3)
	assert.Same(t, w.Bodies()[1].Mesh, w.Bodies()[2].Mesh)

	touched := false
	for step := 0; step < s.Steps; step++ {
		w.Advance(s.TimeStep)
		if len(w.Step()) > 0 {
			touched = true
		}
	}
	assert.True(t, touched, "the moving crate crosses the ring")

	assert.ErrorIs(t, s.Populate(w, map[string]*assets.Mesh{}), ErrInvalidScene)
}
