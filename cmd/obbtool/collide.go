package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/urfave/cli/v2"

	"github.com/Faultbox/midgard-obb/internal/collision"
	"github.com/Faultbox/midgard-obb/internal/world"
	obbmath "github.com/Faultbox/midgard-obb/pkg/math"
)

var collideCommand = &cli.Command{
	Name:  "collide",
	Usage: "test two meshes for contact",
	Description: `Place the first mesh at the origin and the second with the given
offset, rotation and scale, then list the intersecting leaf pairs.`,
	ArgsUsage: "meshA meshB",
	Flags: []cli.Flag{
		&cli.Float64SliceFlag{Name: "offset", Aliases: []string{"o"}, Usage: "translation of meshB: x,y,z"},
		&cli.Float64SliceFlag{Name: "rotate", Aliases: []string{"r"}, Usage: "XYZ euler rotation of meshB in degrees"},
		&cli.Float64Flag{Name: "scale", Value: 1, Usage: "uniform scale of meshB"},
		&cli.BoolFlag{Name: "first", Usage: "stop at the first contact"},
		&cli.IntFlag{Name: "limit", Value: 20, Usage: "contacts to list"},
	},
	Action: collide,
}

func collide(ctx *cli.Context) error {
	if err := requireArgs(ctx, 2); err != nil {
		return err
	}
	offset, err := vec3(ctx.Float64Slice("offset"), mgl64.Vec3{})
	if err != nil {
		return fmt.Errorf("--offset: %w", err)
	}
	euler, err := vec3(ctx.Float64Slice("rotate"), mgl64.Vec3{})
	if err != nil {
		return fmt.Errorf("--rotate: %w", err)
	}
	scale, limit := ctx.Float64("scale"), ctx.Int("limit")
	if err := checkCollideFlags(scale, limit); err != nil {
		return err
	}

	m, err := newManager()
	if err != nil {
		return err
	}
	a, err := m.Load(parseSource(ctx.Args().Get(0)))
	if err != nil {
		return err
	}
	b, err := m.Load(parseSource(ctx.Args().Get(1)))
	if err != nil {
		return err
	}

	placeB := world.Transform{
		Rotation:    obbmath.EulerDegrees(euler[0], euler[1], euler[2]),
		Translation: offset,
		Scale:       scale,
	}.Placement()

	backend := collision.SelectBackend(cfg.Collision.UseSIMD, cfg.Collision.CrossCheck)
	d := collision.NewDetector(backend, ctx.Bool("first") || cfg.Collision.FirstContactOnly)

	start := time.Now()
	results := d.Collide(a.Tree, collision.Identity(), b.Tree, placeB)
	elapsed := time.Since(start)

	fmt.Printf("%s vs %s: %d contact(s) in %s using the %s box test\n",
		a.Name(), b.Name(), len(results), elapsed, backend)
	if len(results) == 0 {
		return nil
	}

	table := newTable("Leaf A", "Leaf B", "Face A", "Face B")
	for _, r := range results[:min(len(results), limit)] {
		table.Append([]string{
			strconv.Itoa(int(r.NodeA)),
			strconv.Itoa(int(r.NodeB)),
			fmt.Sprint(a.Tree.Face(r.FaceA)),
			fmt.Sprint(b.Tree.Face(r.FaceB)),
		})
	}
	table.Render()
	return nil
}

func checkCollideFlags(scale float64, limit int) error {
	if !(scale > 0) {
		return fmt.Errorf("--scale must be positive, got %g", scale)
	}
	if limit < 0 {
		return fmt.Errorf("--limit must not be negative, got %d", limit)
	}
	return nil
}
