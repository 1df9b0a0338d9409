package main

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-obb/internal/broadphase"
	"github.com/Faultbox/midgard-obb/internal/logger"
	"github.com/Faultbox/midgard-obb/internal/world"
)

var simulateCommand = &cli.Command{
	Name:  "simulate",
	Usage: "step a scene of moving bodies and report contacts",
	Description: `Load a scene YAML file, move every body at its constant linear and
angular velocity, and run collision detection once per step.

  steps: 120
  time_step: 0.0166
  bodies:
    - name: ring
      mesh: {shape: torus}
    - name: crate
      mesh: {path: crate.obj}
      position: [3, 0, 0]
      rotation: [0, 0, 45]
      linear_velocity: [-1, 0, 0]`,
	ArgsUsage: "scene.yaml",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "steps", Usage: "override the scene step count"},
	},
	Action: simulate,
}

// contactSpan records when a body pair was in contact.
type contactSpan struct {
	first, last int
	steps       int
	touching    bool
}

func simulate(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	scene, err := world.LoadScene(ctx.Args().First())
	if err != nil {
		return err
	}
	steps := scene.Steps
	if steps == 0 {
		steps = cfg.Simulation.Steps
	}
	if ctx.IsSet("steps") {
		steps = ctx.Int("steps")
	}
	dt := scene.TimeStep
	if dt == 0 {
		dt = cfg.Simulation.TimeStep
	}

	m, err := newManager()
	if err != nil {
		return err
	}
	meshes, err := scene.LoadMeshes(ctx.Context, m, cfg.Simulation.Workers)
	if err != nil {
		return err
	}
	w := world.NewFromConfig(cfg.Collision, cfg.Simulation)
	if err := scene.Populate(w, meshes); err != nil {
		return err
	}

	log := logger.Named("simulate")
	spans := make(map[broadphase.Pair]*contactSpan)
	start := time.Now()
	for step := 0; step < steps; step++ {
		if step > 0 {
			w.Advance(dt)
		}
		colliding := world.Colliding(w.Step())

		for _, p := range colliding {
			s, ok := spans[p]
			if !ok {
				s = &contactSpan{first: step}
				spans[p] = s
			}
			if !s.touching {
				log.Info("contact begin", zap.Int("step", step), zap.String("a", w.Bodies()[p.A].Name), zap.String("b", w.Bodies()[p.B].Name))
			}
			s.touching = true
			s.last = step
			s.steps++
		}
		for p, s := range spans {
			if s.touching && !slices.Contains(colliding, p) {
				s.touching = false
				log.Info("contact end", zap.Int("step", step), zap.String("a", w.Bodies()[p.A].Name), zap.String("b", w.Bodies()[p.B].Name))
			}
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("%d bodies, %d steps of %gs in %s\n", len(w.Bodies()), steps, dt, elapsed.Round(time.Millisecond))
	if len(spans) == 0 {
		fmt.Println("no contacts")
		return nil
	}

	pairs := make([]broadphase.Pair, 0, len(spans))
	for p := range spans {
		pairs = append(pairs, p)
	}
	slices.SortFunc(pairs, func(x, y broadphase.Pair) int {
		if x.A != y.A {
			return x.A - y.A
		}
		return x.B - y.B
	})

	table := newTable("Body A", "Body B", "First step", "Last step", "Steps in contact")
	for _, p := range pairs {
		s := spans[p]
		table.Append([]string{
			w.Bodies()[p.A].Name,
			w.Bodies()[p.B].Name,
			strconv.Itoa(s.first),
			strconv.Itoa(s.last),
			strconv.Itoa(s.steps),
		})
	}
	table.Render()
	return nil
}
