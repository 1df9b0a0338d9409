package world

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-obb/internal/assets"
	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
)

// ErrInvalidScene is returned for scenes that cannot be populated.
var ErrInvalidScene = errors.New("invalid scene")

// Scene describes bodies moving at constant velocity, for driving a world
// without an integrator.
type Scene struct {
	Steps    int         `yaml:"steps"`
	TimeStep float64     `yaml:"time_step"`
	Bodies   []SceneBody `yaml:"bodies"`
}

// SceneBody is one body of a scene. Rotation is XYZ euler angles in degrees;
// angular velocity is in degrees per second about world axes.
type SceneBody struct {
	Name            string        `yaml:"name"`
	Mesh            assets.Source `yaml:"mesh"`
	Position        [3]float64    `yaml:"position"`
	Rotation        [3]float64    `yaml:"rotation"`
	Scale           float64       `yaml:"scale"`
	LinearVelocity  [3]float64    `yaml:"linear_velocity"`
	AngularVelocity [3]float64    `yaml:"angular_velocity"`
}

// LoadScene reads a scene file.
func LoadScene(path string) (*Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := ParseScene(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// ParseScene decodes and checks a YAML scene.
func ParseScene(data []byte) (*Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidScene, err)
	}
	if len(s.Bodies) == 0 {
		return nil, fmt.Errorf("%w: no bodies", ErrInvalidScene)
	}
	for i := range s.Bodies {
		b := &s.Bodies[i]
		if b.Name == "" {
			b.Name = fmt.Sprintf("body%d", i)
		}
		if b.Mesh.Path == "" && b.Mesh.Shape == "" {
			return nil, fmt.Errorf("%w: body %s has no mesh", ErrInvalidScene, b.Name)
		}
		if b.Scale == 0 {
			b.Scale = 1
		}
		if !(b.Scale > 0) {
			return nil, fmt.Errorf("%w: body %s has scale %g", ErrInvalidScene, b.Name, b.Scale)
		}
	}
	seen := make(map[string]assets.Source)
	for _, b := range s.Bodies {
		if prev, ok := seen[b.Mesh.Key()]; ok && prev != b.Mesh {
			return nil, fmt.Errorf("%w: mesh %q names two different sources", ErrInvalidScene, b.Mesh.Key())
		}
		seen[b.Mesh.Key()] = b.Mesh
	}
	if s.TimeStep < 0 || s.Steps < 0 {
		return nil, fmt.Errorf("%w: negative step settings", ErrInvalidScene)
	}
	return &s, nil
}

// Sources returns the distinct meshes the scene uses.
func (s *Scene) Sources() []assets.Source {
	return lo.UniqBy(lo.Map(s.Bodies, func(b SceneBody, _ int) assets.Source {
		return b.Mesh
	}), assets.Source.Key)
}

// LoadMeshes loads every scene mesh through m and returns them by source key.
func (s *Scene) LoadMeshes(ctx context.Context, m *assets.Manager, limit int) (map[string]*assets.Mesh, error) {
	srcs := s.Sources()
	meshes, err := m.LoadAll(ctx, srcs, limit)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*assets.Mesh, len(srcs))
	for i, src := range srcs {
		out[src.Key()] = meshes[i]
	}
	return out, nil
}

// Transform returns the initial transform of a scene body.
func (b *SceneBody) Transform() Transform {
	return Transform{
		Rotation:    obbmath.EulerDegrees(b.Rotation[0], b.Rotation[1], b.Rotation[2]),
		Translation: mgl64.Vec3(b.Position),
		Scale:       b.Scale,
	}
}

// Populate adds the scene's bodies to w. meshes holds the loaded meshes by
// source key.
func (s *Scene) Populate(w *World, meshes map[string]*assets.Mesh) error {
	for _, sb := range s.Bodies {
		mesh, ok := meshes[sb.Mesh.Key()]
		if !ok {
			return fmt.Errorf("%w: mesh for body %s not loaded", ErrInvalidScene, sb.Name)
		}
		b := w.AddBody(sb.Name, mesh, sb.Transform())
		b.LinearVelocity = mgl64.Vec3(sb.LinearVelocity)
		b.AngularVelocity = mgl64.Vec3{
			mgl64.DegToRad(sb.AngularVelocity[0]),
			mgl64.DegToRad(sb.AngularVelocity[1]),
			mgl64.DegToRad(sb.AngularVelocity[2]),
		}
	}
	return nil
}
