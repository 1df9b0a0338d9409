// Package config handles loading and management of collision engine settings.
package config

import (
	"errors"
	"fmt"
	"runtime"
)

// Recognized enum values.
const (
	HullQuickHull   = "quickhull"
	HullIncremental = "incremental"

	SplitGeometric = "geometric"
	SplitMedian    = "median"
	SplitMean      = "mean"
)

// ErrInvalidConfig is returned by Validate for out-of-range settings.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all engine settings.
type Config struct {
	Build      BuildConfig      `yaml:"build"`
	Collision  CollisionConfig  `yaml:"collision"`
	Cache      CacheConfig      `yaml:"cache"`
	Simulation SimulationConfig `yaml:"simulation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// BuildConfig holds OBB tree construction settings.
type BuildConfig struct {
	AddVertexPerturbation bool    `yaml:"add_vertex_perturbation"`
	PerturbationEpsilon   float64 `yaml:"perturbation_epsilon"`
	PerturbationSeed      uint64  `yaml:"perturbation_seed"`
	PreferredHull         string  `yaml:"preferred_hull"`   // quickhull | incremental
	SplitPolicy           string  `yaml:"split_policy"`     // geometric | median | mean
	MaxRenderDepth        int     `yaml:"max_render_depth"` // -1 disables hull render items
	OneLevelOnly          bool    `yaml:"one_level_only"`
}

// CollisionConfig holds narrow phase settings.
type CollisionConfig struct {
	// UseSIMD allows the four-lane box test; see collision.DefaultBackend.
	UseSIMD          bool `yaml:"use_simd"`
	CrossCheck       bool `yaml:"cross_check"`
	FirstContactOnly bool `yaml:"first_contact_only"`
}

// CacheConfig holds OBB tree cache settings.
type CacheConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
}

// SimulationConfig holds physics step settings.
type SimulationConfig struct {
	Workers  int     `yaml:"workers"`
	Steps    int     `yaml:"steps"`
	TimeStep float64 `yaml:"time_step"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Build: BuildConfig{
			AddVertexPerturbation: true,
			PerturbationEpsilon:   1e-6,
			PerturbationSeed:      1,
			PreferredHull:         HullQuickHull,
			SplitPolicy:           SplitMedian,
			MaxRenderDepth:        3,
			OneLevelOnly:          false,
		},
		Collision: CollisionConfig{
			UseSIMD:          true,
			CrossCheck:       false,
			FirstContactOnly: false,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Dir:      "obbcache",
			Compress: true,
		},
		Simulation: SimulationConfig{
			Workers:  runtime.NumCPU(),
			Steps:    120,
			TimeStep: 1.0 / 60.0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks enum fields and numeric ranges.
func (c *Config) Validate() error {
	switch c.Build.PreferredHull {
	case HullQuickHull, HullIncremental:
	default:
		return fmt.Errorf("%w: build.preferred_hull %q", ErrInvalidConfig, c.Build.PreferredHull)
	}
	switch c.Build.SplitPolicy {
	case SplitGeometric, SplitMedian, SplitMean:
	default:
		return fmt.Errorf("%w: build.split_policy %q", ErrInvalidConfig, c.Build.SplitPolicy)
	}
	if c.Build.PerturbationEpsilon < 0 {
		return fmt.Errorf("%w: build.perturbation_epsilon must not be negative", ErrInvalidConfig)
	}
	if c.Simulation.Workers < 1 {
		return fmt.Errorf("%w: simulation.workers must be at least 1", ErrInvalidConfig)
	}
	if c.Simulation.TimeStep <= 0 {
		return fmt.Errorf("%w: simulation.time_step must be positive", ErrInvalidConfig)
	}
	return nil
}
