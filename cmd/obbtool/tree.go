package main

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"

	"github.com/Faultbox/midgard-obb/internal/assets"
	"github.com/Faultbox/midgard-obb/internal/obbtree"
)

var buildCommand = &cli.Command{
	Name:  "build",
	Usage: "build OBB trees and persist them to the cache directory",
	Description: `Build the tree of every mesh argument and write it to the cache
directory. Mesh arguments are .obj/.stl files or shape:<box|torus|grid>[=name].
Existing cached trees are reused unless --force is given.`,
	ArgsUsage: "mesh1.obj mesh2.stl shape:torus ...",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Aliases: []string{"f"}, Usage: "rebuild even when a cached tree exists"},
	},
	Action: buildTrees,
}

var infoCommand = &cli.Command{
	Name:      "info",
	Usage:     "show tree statistics",
	ArgsUsage: "mesh",
	Action:    showInfo,
}

var verifyCommand = &cli.Command{
	Name:      "verify",
	Usage:     "check a cached tree against a fresh build",
	ArgsUsage: "mesh",
	Action:    verifyTree,
}

func buildTrees(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	cfg.Cache.Enabled = true
	srcs := lo.Map(ctx.Args().Slice(), func(arg string, _ int) assets.Source { return parseSource(arg) })

	if ctx.Bool("force") {
		for _, src := range srcs {
			for _, p := range obbtree.Paths(cfg.Cache.Dir, src.CacheName(), cfg.Cache.Compress) {
				if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
		}
	}

	m, err := newManager()
	if err != nil {
		return err
	}
	start := time.Now()
	meshes, err := m.LoadAll(ctx.Context, srcs, cfg.Simulation.Workers)
	if err != nil {
		return err
	}

	table := newTable("Mesh", "Faces", "Nodes", "Depth", "Source")
	for _, mesh := range meshes {
		stats := mesh.Tree.Stats()
		table.Append([]string{
			mesh.Name(),
			strconv.Itoa(mesh.Tree.NumFaces()),
			strconv.Itoa(stats.Nodes),
			strconv.Itoa(int(stats.MaxDepth)),
			lo.Ternary(mesh.FromDisk, "cache", "built"),
		})
	}
	table.Render()
	fmt.Printf("%d tree(s) in %s, cache dir %s\n", len(meshes), time.Since(start).Round(time.Millisecond), cfg.Cache.Dir)
	return nil
}

func showInfo(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	m, err := newManager()
	if err != nil {
		return err
	}
	mesh, err := m.Load(parseSource(ctx.Args().First()))
	if err != nil {
		return err
	}

	t := mesh.Tree
	stats := t.Stats()
	root := t.Node(obbtree.Root)
	lo3, hi3 := mesh.Mesh.Bounds()

	table := newTable("Property", "Value")
	table.AppendBulk([][]string{
		{"Name", mesh.Name()},
		{"Vertices", strconv.Itoa(len(t.Vertices))},
		{"Faces", strconv.Itoa(t.NumFaces())},
		{"Nodes", fmt.Sprintf("%d of %d", stats.Nodes, cap(t.Nodes))},
		{"Leaves", strconv.Itoa(stats.Leaves)},
		{"Max depth", strconv.Itoa(int(stats.MaxDepth))},
		{"Max leaf faces", strconv.Itoa(int(stats.MaxLeafFaces))},
		{"Render items", strconv.Itoa(stats.RenderItems)},
		{"Bounds", fmt.Sprintf("%.4g .. %.4g", lo3, hi3)},
		{"Root center", fmt.Sprintf("%.4g", root.Center)},
		{"Root half extents", fmt.Sprintf("%.4g", root.HalfExtents)},
		{"Loaded from cache", strconv.FormatBool(mesh.FromDisk)},
	})
	table.Render()
	return nil
}

func verifyTree(ctx *cli.Context) error {
	if err := requireArgs(ctx, 1); err != nil {
		return err
	}
	cfg.Cache.Enabled = false
	m, err := newManager()
	if err != nil {
		return err
	}
	src := parseSource(ctx.Args().First())
	fresh, err := m.Load(src)
	if err != nil {
		return err
	}
	raw := fresh.Mesh

	cached, err := obbtree.Load(cfg.Cache.Dir, src.CacheName(), raw.Vertices, raw.NumFaces(), fresh.Tree.Fingerprint, cfg.Cache.Compress)
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(cached.Indices, fresh.Tree.Indices) || !reflect.DeepEqual(cached.Nodes, fresh.Tree.Nodes) {
		return fmt.Errorf("%s: cached tree differs from a fresh build with the current settings", raw.Name)
	}
	fmt.Printf("%s: ok (%d nodes)\n", raw.Name, len(cached.Nodes))
	return nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(header)
	return table
}
