package main

import (
	"fmt"
	"math"
	"os"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"

	"github.com/Faultbox/midgard-obb/internal/collision"
	"github.com/Faultbox/midgard-obb/internal/debug"
)

var wireframeCommand = &cli.Command{
	Name:      "wireframe",
	Usage:     "export tree boxes and hulls as OBJ line geometry",
	ArgsUsage: "mesh",
	Flags: []cli.Flag{
		&cli.IntFlag{Name: "depth", Value: 3, Usage: "deepest level to draw (-1 for all)"},
		&cli.BoolFlag{Name: "hulls", Usage: "also draw hull render items"},
		&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default <mesh>_obb.obj)"},
	},
	Action: exportWireframe,
}

func exportWireframe(ctx *cli.Context) (err error) {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	depth := ctx.Int("depth")
	if depth < 0 {
		depth = math.MaxInt32
	}
	if ctx.Bool("hulls") && cfg.Build.MaxRenderDepth < depth {
		// Render items are only kept down to MaxRenderDepth.
		cfg.Build.MaxRenderDepth = depth
		cfg.Cache.Enabled = false
	}
	m, err := newManager()
	if err != nil {
		return err
	}
	mesh, err := m.Load(parseSource(ctx.Args().First()))
	if err != nil {
		return err
	}

	lines := debug.TreeWireframe(mesh.Tree, collision.Identity(), depth)
	if ctx.Bool("hulls") {
		lines = append(lines, debug.RenderWireframe(mesh.Tree, collision.Identity())...)
	}

	out := ctx.String("out")
	if out == "" {
		out = mesh.Name() + "_obb.obj"
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	if err := debug.WriteOBJ(f, mesh.Name()+"_obb", lines); err != nil {
		return err
	}
	fmt.Printf("wrote %d segments to %s\n", len(lines)/6, out)
	return nil
}
