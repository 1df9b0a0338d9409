// Package assets loads collision meshes and prepares their OBB trees, reusing
// trees persisted on disk when the cache holds a usable copy.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/midgard-obb/internal/config"
	"github.com/Faultbox/midgard-obb/internal/logger"
	"github.com/Faultbox/midgard-obb/internal/obbtree"
	"github.com/Faultbox/midgard-obb/pkg/formats"
	"github.com/Faultbox/midgard-obb/pkg/meshgen"
)

// ErrUnknownShape is returned for a source naming no generated shape.
var ErrUnknownShape = errors.New("unknown shape")

// Source names a mesh to load: a mesh file, or a generated shape when Path
// is empty.
type Source struct {
	Name  string `yaml:"name"`
	Path  string `yaml:"path"`
	Shape string `yaml:"shape"`
}

// Key identifies the source: its name, else its path, else its shape.
func (s Source) Key() string {
	if s.Name != "" {
		return s.Name
	}
	if s.Path != "" {
		return s.Path
	}
	return s.Shape
}

// CacheName is the file name stem of the source's persisted tree: the
// readable tail of the key plus a hash of the whole key, so files sharing a
// name in different directories get separate cache entries.
func (s Source) CacheName() string {
	key := s.Key()
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '_'
	}, filepath.Base(key))
	return fmt.Sprintf("%s-%016x", stem, xxhash.Sum64String(key))
}

// Mesh is a loaded mesh with its tree. A Mesh is shared by every body using
// it and is read only once loaded.
type Mesh struct {
	Mesh *formats.Mesh
	Tree *obbtree.Tree
	// FromDisk is set when the tree was read from the cache directory.
	FromDisk bool
}

// Name returns the mesh name.
func (m *Mesh) Name() string { return m.Mesh.Name }

// Manager loads meshes and their trees.
type Manager struct {
	opts  obbtree.Options
	cfg   config.CacheConfig
	cache *Cache
	log   *zap.Logger
}

// NewManager creates a manager from build and cache settings.
func NewManager(build config.BuildConfig, cache config.CacheConfig) (*Manager, error) {
	opts, err := obbtree.OptionsFromConfig(build)
	if err != nil {
		return nil, err
	}
	return &Manager{
		opts:  opts,
		cfg:   cache,
		cache: NewCache(),
		log:   logger.Named("assets"),
	}, nil
}

// Load returns the mesh for src, building its tree if neither memory nor the
// disk cache holds one.
func (m *Manager) Load(src Source) (*Mesh, error) {
	key := src.Key()
	if mesh, ok := m.cache.Get(key); ok {
		return mesh, nil
	}

	raw, err := readSource(src)
	if err != nil {
		return nil, fmt.Errorf("loading mesh %s: %w", key, err)
	}
	if src.Name != "" {
		raw.Name = src.Name
	}

	mesh, err := m.prepare(src.CacheName(), raw)
	if err != nil {
		return nil, err
	}
	m.cache.Set(key, mesh)
	return mesh, nil
}

func readSource(src Source) (*formats.Mesh, error) {
	if src.Path != "" {
		return formats.LoadFile(src.Path)
	}
	mesh, ok := meshgen.Shape(src.Shape, src.Key())
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, src.Shape)
	}
	return mesh, nil
}

// prepare loads the tree persisted under name, or builds and stores it. A
// persisted tree is only used when it was built from the same mesh data with
// the same options.
func (m *Manager) prepare(name string, raw *formats.Mesh) (*Mesh, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	log := m.log.With(zap.String("mesh", raw.Name), zap.String("cache", name))

	if m.cfg.Enabled {
		start := time.Now()
		fp := obbtree.Fingerprint(raw.Vertices, raw.Indices, m.opts)
		tree, err := obbtree.Load(m.cfg.Dir, name, raw.Vertices, raw.NumFaces(), fp, m.cfg.Compress)
		if err == nil {
			tree.Name = raw.Name
			log.Debug("tree loaded from cache", zap.Duration("elapsed", time.Since(start)))
			return &Mesh{Mesh: raw, Tree: tree, FromDisk: true}, nil
		}
		log.Debug("cache miss", zap.Error(err))
	}

	tree, err := obbtree.Build(raw.Name, raw.Vertices, raw.Indices, m.opts)
	if err != nil {
		return nil, err
	}
	if m.cfg.Enabled {
		if err := obbtree.Save(m.cfg.Dir, name, tree, m.cfg.Compress); err != nil {
			// The tree is usable without a cached copy.
			log.Warn("failed to cache tree", zap.Error(err))
		}
	}
	return &Mesh{Mesh: raw, Tree: tree}, nil
}

// LoadAll loads every distinct source, preparing up to limit trees at once.
// Results follow the order of first appearance in srcs.
func (m *Manager) LoadAll(ctx context.Context, srcs []Source, limit int) ([]*Mesh, error) {
	srcs = lo.UniqBy(srcs, Source.Key)
	out := make([]*Mesh, len(srcs))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, src := range srcs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mesh, err := m.Load(src)
			if err != nil {
				return err
			}
			out[i] = mesh
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a previously loaded mesh.
func (m *Manager) Get(name string) (*Mesh, bool) {
	return m.cache.Peek(name)
}

// Stats returns in-memory cache statistics.
func (m *Manager) Stats() (hits, misses int) {
	return m.cache.Stats()
}

// Clear drops all loaded meshes.
func (m *Manager) Clear() {
	m.cache.Clear()
}

// Cache is an in-memory store of loaded meshes.
type Cache struct {
	data map[string]*Mesh
	mu   sync.RWMutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*Mesh),
	}
}

// Get retrieves a mesh and counts the lookup.
func (c *Cache) Get(key string) (*Mesh, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	mesh, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return mesh, ok
}

// Peek retrieves a mesh without counting the lookup.
func (c *Cache) Peek(key string) (*Mesh, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mesh, ok := c.data[key]
	return mesh, ok
}

// Set stores a mesh.
func (c *Cache) Set(key string, mesh *Mesh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = mesh
}

// Len returns the number of cached meshes.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*Mesh)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
