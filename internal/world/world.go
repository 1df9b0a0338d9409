// Package world drives per-step collision detection for a set of rigid
// bodies: a sweep-and-prune broad phase followed by OBB tree walks on the
// candidate pairs.
package world

import (
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-obb/internal/assets"
	"github.com/Faultbox/midgard-obb/internal/broadphase"
	"github.com/Faultbox/midgard-obb/internal/collision"
	"github.com/Faultbox/midgard-obb/internal/config"
	"github.com/Faultbox/midgard-obb/internal/logger"
)

const defaultWorkers = 1

// ErrUnknownBody is returned for a body id not in the world.
var ErrUnknownBody = errors.New("unknown body")

// World owns the bodies and the broad phase state. Step must not run
// concurrently with itself or with body changes.
type World struct {
	Detector *collision.Detector
	Workers  int

	bodies []*Body
	sap    *broadphase.SweepAndPrune
	boxes  []broadphase.AABB
	slots  [][]collision.Result
	steps  int
	log    *zap.Logger
}

// New creates an empty world.
func New(detector *collision.Detector, workers int) *World {
	return &World{
		Detector: detector,
		Workers:  workers,
		sap:      broadphase.New(0),
		log:      logger.Named("world"),
	}
}

// NewFromConfig creates a world using the collision and simulation settings.
func NewFromConfig(col config.CollisionConfig, sim config.SimulationConfig) *World {
	backend := collision.SelectBackend(col.UseSIMD, col.CrossCheck)
	return New(collision.NewDetector(backend, col.FirstContactOnly), sim.Workers)
}

// AddBody adds a body carrying mesh and returns it. Ids are dense and follow
// insertion order.
func (w *World) AddBody(name string, mesh *assets.Mesh, t Transform) *Body {
	b := &Body{ID: len(w.bodies), Name: name, Mesh: mesh, Transform: t}
	w.bodies = append(w.bodies, b)
	w.sap.Resize(len(w.bodies))
	return b
}

// RemoveBody removes a body. Bodies after it move down one id.
func (w *World) RemoveBody(id int) error {
	if id < 0 || id >= len(w.bodies) {
		return fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	w.bodies = append(w.bodies[:id], w.bodies[id+1:]...)
	for i := id; i < len(w.bodies); i++ {
		w.bodies[i].ID = i
	}
	// Id shifts invalidate the axis orderings.
	w.sap = broadphase.New(len(w.bodies))
	return nil
}

// Body returns the body with the given id.
func (w *World) Body(id int) (*Body, error) {
	if id < 0 || id >= len(w.bodies) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBody, id)
	}
	return w.bodies[id], nil
}

// Bodies returns all bodies, indexed by id.
func (w *World) Bodies() []*Body { return w.bodies }

// SetTransform updates a body's transform for the next step.
func (w *World) SetTransform(id int, t Transform) error {
	b, err := w.Body(id)
	if err != nil {
		return err
	}
	b.Transform = t
	return nil
}

// Advance moves every body by its velocities.
func (w *World) Advance(dt float64) {
	for _, b := range w.bodies {
		b.Advance(dt)
	}
}

// Step runs the broad phase and then walks the trees of every candidate pair
// across the worker pool. Results are grouped by pair in broad phase order.
func (w *World) Step() []collision.Result {
	start := time.Now()
	w.steps++

	w.boxes = w.boxes[:0]
	for _, b := range w.bodies {
		w.boxes = append(w.boxes, b.bounds())
	}
	pairs := w.sap.Update(w.boxes)

	if cap(w.slots) < len(pairs) {
		w.slots = make([][]collision.Result, len(pairs))
	}
	slots := w.slots[:len(pairs)]

	task(max(defaultWorkers, w.Workers), pairs, func(i int, p broadphase.Pair) {
		a, b := w.bodies[p.A], w.bodies[p.B]
		res := w.Detector.Collide(a.Tree(), a.placement, b.Tree(), b.placement)
		for k := range res {
			res[k].BodyA, res[k].BodyB = p.A, p.B
		}
		slots[i] = res
	})

	results := lo.Flatten(slots)
	clear(slots)

	w.log.Debug("step",
		zap.Int("step", w.steps),
		zap.Int("bodies", len(w.bodies)),
		zap.Int("candidates", len(pairs)),
		zap.Int("contacts", len(results)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

// Colliding returns the distinct body pairs with at least one contact.
func Colliding(results []collision.Result) []broadphase.Pair {
	return lo.Uniq(lo.Map(results, func(r collision.Result, _ int) broadphase.Pair {
		return broadphase.Pair{A: r.BodyA, B: r.BodyB}
	}))
}
