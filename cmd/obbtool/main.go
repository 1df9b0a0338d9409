// obbtool builds, inspects and exercises OBB collision trees for triangle meshes.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-obb/internal/assets"
	"github.com/Faultbox/midgard-obb/internal/config"
	"github.com/Faultbox/midgard-obb/internal/logger"
)

// Flags.
const (
	flagConfig      = "config"
	flagDebug       = "debug"
	flagLogFile     = "log-file"
	flagCacheDir    = "cache-dir"
	flagNoCache     = "no-cache"
	flagRaw         = "raw"
	flagSplit       = "split"
	flagHull        = "hull"
	flagScalar      = "scalar"
	flagCrossCheck  = "cross-check"
	flagRenderDepth = "render-depth"
	flagOneLevel    = "one-level"
	flagWorkers     = "workers"
)

// shapePrefix marks a mesh argument naming a generated shape.
const shapePrefix = "shape:"

var cfg *config.Config

func main() {
	app := &cli.App{
		Name:  "obbtool",
		Usage: "build and test OBB collision trees",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagConfig, Aliases: []string{"c"}, Usage: "config file (default: ./obb.yaml or the user config dir)"},
			&cli.BoolFlag{Name: flagDebug, Aliases: []string{"d"}, Usage: "enable debug logging"},
			&cli.StringFlag{Name: flagLogFile, Usage: "also log to this file"},
			&cli.StringFlag{Name: flagCacheDir, Usage: "directory for persisted trees"},
			&cli.BoolFlag{Name: flagNoCache, Usage: "never read or write persisted trees"},
			&cli.BoolFlag{Name: flagRaw, Usage: "persist trees uncompressed"},
			&cli.StringFlag{Name: flagSplit, Usage: "split policy: median, mean or geometric"},
			&cli.StringFlag{Name: flagHull, Usage: "preferred hull algorithm: quickhull or incremental"},
			&cli.BoolFlag{Name: flagScalar, Usage: "use the scalar box test"},
			&cli.BoolFlag{Name: flagCrossCheck, Usage: "run both box tests and panic if they disagree"},
			&cli.IntFlag{Name: flagRenderDepth, Usage: "keep hull render items down to this depth (-1 disables)"},
			&cli.BoolFlag{Name: flagOneLevel, Usage: "split the root only"},
			&cli.IntFlag{Name: flagWorkers, Aliases: []string{"j"}, Usage: "worker goroutines"},
		},
		Before: setup,
		After: func(*cli.Context) error {
			logger.Sync()
			return nil
		},
		Commands: []*cli.Command{
			buildCommand,
			infoCommand,
			verifyCommand,
			collideCommand,
			wireframeCommand,
			simulateCommand,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setup(ctx *cli.Context) error {
	overrides := config.Overrides{
		Debug:        ctx.Bool(flagDebug),
		CacheDir:     ctx.String(flagCacheDir),
		NoCache:      ctx.Bool(flagNoCache),
		Raw:          ctx.Bool(flagRaw),
		SplitPolicy:  ctx.String(flagSplit),
		Hull:         ctx.String(flagHull),
		Scalar:       ctx.Bool(flagScalar),
		CrossCheck:   ctx.Bool(flagCrossCheck),
		OneLevelOnly: ctx.Bool(flagOneLevel),
		Workers:      ctx.Int(flagWorkers),
	}
	if ctx.IsSet(flagRenderDepth) {
		depth := ctx.Int(flagRenderDepth)
		overrides.RenderDepth = &depth
	}

	var err error
	cfg, err = config.Load(ctx.String(flagConfig), overrides)
	if err != nil {
		return err
	}

	logFile := cfg.Logging.LogFile
	if f := ctx.String(flagLogFile); f != "" {
		logFile = f
	}
	if err := logger.Init(cfg.Logging.Level, logFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.Debug("config loaded",
		zap.String("split", cfg.Build.SplitPolicy),
		zap.String("hull", cfg.Build.PreferredHull),
		zap.Bool("cache", cfg.Cache.Enabled),
		zap.Int("workers", cfg.Simulation.Workers),
	)
	return nil
}

// parseSource reads a mesh argument: a mesh file, or shape:<kind>[=name].
func parseSource(arg string) assets.Source {
	kind, ok := strings.CutPrefix(arg, shapePrefix)
	if !ok {
		return assets.Source{Path: arg}
	}
	kind, name, _ := strings.Cut(kind, "=")
	return assets.Source{Name: name, Shape: kind}
}

func newManager() (*assets.Manager, error) {
	return assets.NewManager(cfg.Build, cfg.Cache)
}

func requireArgs(ctx *cli.Context, n int) error {
	if ctx.NArg() < n {
		return fmt.Errorf("%s: expected %d argument(s), usage: %s %s", ctx.Command.Name, n, ctx.Command.Name, ctx.Command.ArgsUsage)
	}
	return nil
}
