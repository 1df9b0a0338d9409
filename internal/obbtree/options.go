package obbtree

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-obb/internal/config"
	"github.com/Faultbox/midgard-obb/internal/hull"
	"github.com/Faultbox/midgard-obb/internal/logger"
)

// SplitPolicy chooses the split point along a candidate axis.
type SplitPolicy int

const (
	// SplitMedian splits at the median face centroid projection.
	SplitMedian SplitPolicy = iota
	// SplitMean splits at the mean face centroid projection.
	SplitMean
	// SplitGeometric splits at the projection of the box center.
	SplitGeometric
)

func (p SplitPolicy) String() string {
	switch p {
	case SplitMedian:
		return config.SplitMedian
	case SplitMean:
		return config.SplitMean
	case SplitGeometric:
		return config.SplitGeometric
	default:
		return fmt.Sprintf("SplitPolicy(%d)", int(p))
	}
}

// ParseSplitPolicy converts a config value to a SplitPolicy.
func ParseSplitPolicy(s string) (SplitPolicy, error) {
	switch s {
	case config.SplitMedian, "":
		return SplitMedian, nil
	case config.SplitMean:
		return SplitMean, nil
	case config.SplitGeometric:
		return SplitGeometric, nil
	default:
		return 0, fmt.Errorf("obbtree: unknown split policy %q", s)
	}
}

// Options controls tree construction.
type Options struct {
	// Perturb jitters hull input points by up to PerturbEpsilon per axis.
	// Stored geometry and extents always use the original vertices.
	Perturb        bool
	PerturbEpsilon float64
	Seed           uint64

	// Hulls is tried in order before falling back to the node's raw faces.
	Hulls hull.Chain

	Split SplitPolicy

	// MaxRenderDepth keeps hull render items for nodes at or above this depth.
	// Negative disables them.
	MaxRenderDepth int

	// NoSplit builds the root only.
	NoSplit bool
	// OneLevelOnly splits the root and nothing below it.
	OneLevelOnly bool

	Logger *zap.Logger
}

// DefaultOptions returns the options used when no configuration is given.
func DefaultOptions() Options {
	opts, _ := OptionsFromConfig(config.Default().Build)
	return opts
}

// OptionsFromConfig converts the build section of the configuration.
func OptionsFromConfig(c config.BuildConfig) (Options, error) {
	split, err := ParseSplitPolicy(c.SplitPolicy)
	if err != nil {
		return Options{}, err
	}
	chain, err := hull.NewChain(c.PreferredHull)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Perturb:        c.AddVertexPerturbation,
		PerturbEpsilon: c.PerturbationEpsilon,
		Seed:           c.PerturbationSeed,
		Hulls:          chain,
		Split:          split,
		MaxRenderDepth: c.MaxRenderDepth,
		OneLevelOnly:   c.OneLevelOnly,
	}, nil
}

func (o *Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logger.Named("obbtree")
}
