package config

// Overrides carries command-line settings that take priority over the config file.
// Zero values leave the loaded setting untouched.
type Overrides struct {
	Debug        bool
	CacheDir     string
	NoCache      bool
	Raw          bool   // write/read uncompressed cache streams
	SplitPolicy  string
	Hull         string
	Scalar       bool // force the scalar SAT backend
	CrossCheck   bool
	RenderDepth  *int
	OneLevelOnly bool
	Workers      int
}

// apply applies override values to the config.
func (o Overrides) apply(cfg *Config) {
	if o.Debug {
		cfg.Logging.Level = "debug"
	}
	if o.CacheDir != "" {
		cfg.Cache.Dir = o.CacheDir
	}
	if o.NoCache {
		cfg.Cache.Enabled = false
	}
	if o.Raw {
		cfg.Cache.Compress = false
	}
	if o.SplitPolicy != "" {
		cfg.Build.SplitPolicy = o.SplitPolicy
	}
	if o.Hull != "" {
		cfg.Build.PreferredHull = o.Hull
	}
	if o.Scalar {
		cfg.Collision.UseSIMD = false
	}
	if o.CrossCheck {
		cfg.Collision.CrossCheck = true
	}
	if o.RenderDepth != nil {
		cfg.Build.MaxRenderDepth = *o.RenderDepth
	}
	if o.OneLevelOnly {
		cfg.Build.OneLevelOnly = true
	}
	if o.Workers > 0 {
		cfg.Simulation.Workers = o.Workers
	}
}
