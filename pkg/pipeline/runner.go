package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/transitmap/pkg/cache"
	"github.com/matzehuels/transitmap/pkg/core/network"
	pkgio "github.com/matzehuels/transitmap/pkg/io"
	"github.com/matzehuels/transitmap/pkg/observability"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// cachedRun is the stored form of a Result.
type cachedRun struct {
	RunID     string          `json:"run_id"`
	InputHash string          `json:"input_hash"`
	Stats     Stats           `json:"stats"`
	Network   json.RawMessage `json:"network"`
}

// Execute schematizes n, reusing a cached result for the same input and
// options.
func (r *Runner) Execute(ctx context.Context, n *network.Network, opts Options) (*Result, error) {
	res, _, err := r.ExecuteWithCacheInfo(ctx, n, opts)
	return res, err
}

// ExecuteWithCacheInfo is [Runner.Execute] that also reports whether the
// result came from the cache.
func (r *Runner) ExecuteWithCacheInfo(ctx context.Context, n *network.Network, opts Options) (*Result, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}
	if err := n.Validate(); err != nil {
		return nil, false, err
	}

	input, err := pkgio.MarshalNetwork(n)
	if err != nil {
		return nil, false, fmt.Errorf("serialize input for cache key: %w", err)
	}
	inputHash := cache.Hash(input)
	key := r.Keyer.SchematicKey(inputHash, opts.KeyOpts())
	hooks := observability.Cache()

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			if res, err := decodeRun(data); err == nil {
				hooks.OnCacheHit(ctx, "schematic")
				res.CacheInfo = CacheInfo{Hit: true, Key: key}
				r.Logger.Debug("schematic cache hit", "key", key, "run", res.RunID)
				return res, true, nil
			}
			// Undecodable entries are recomputed and overwritten.
		} else if err != nil {
			r.Logger.Warn("cache read failed", "key", key, "err", err)
		}
	}
	hooks.OnCacheMiss(ctx, "schematic")

	res, err := Schematize(ctx, n, opts)
	if err != nil {
		return nil, false, err
	}
	res.InputHash = inputHash
	res.CacheInfo = CacheInfo{Key: key}

	if data, err := encodeRun(res); err == nil {
		if err := r.Cache.Set(ctx, key, data, cache.TTLSchematic); err != nil {
			r.Logger.Warn("cache write failed", "key", key, "err", err)
		} else {
			hooks.OnCacheSet(ctx, "schematic", len(data))
		}
	}
	return res, false, nil
}

func encodeRun(res *Result) ([]byte, error) {
	netData, err := pkgio.MarshalNetwork(res.Network)
	if err != nil {
		return nil, err
	}
	return json.Marshal(cachedRun{
		RunID:     res.RunID,
		InputHash: res.InputHash,
		Stats:     res.Stats,
		Network:   netData,
	})
}

func decodeRun(data []byte) (*Result, error) {
	var c cachedRun
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	n, err := pkgio.UnmarshalNetwork(c.Network)
	if err != nil {
		return nil, err
	}
	return &Result{RunID: c.RunID, InputHash: c.InputHash, Stats: c.Stats, Network: n}, nil
}

// RenderWithCacheInfo renders n in every format, reusing cached artifacts.
// The hit flag is true only when every format came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, n *network.Network, formats []string, opts RenderOptions) (map[string][]byte, bool, error) {
	if err := ValidateFormats(formats); err != nil {
		return nil, false, err
	}
	data, err := pkgio.MarshalNetwork(n)
	if err != nil {
		return nil, false, fmt.Errorf("serialize network for cache key: %w", err)
	}
	netHash := cache.Hash(data)
	hooks := observability.Cache()

	artifacts := make(map[string][]byte, len(formats))
	var missing []string
	for _, format := range formats {
		key := r.Keyer.ArtifactKey(netHash, artifactKeyOpts(format, opts))
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			hooks.OnCacheHit(ctx, "artifact")
			artifacts[format] = data
			continue
		}
		hooks.OnCacheMiss(ctx, "artifact")
		missing = append(missing, format)
	}
	if len(missing) == 0 {
		return artifacts, true, nil
	}

	rendered, err := Render(ctx, n, missing, opts)
	if err != nil {
		return nil, false, err
	}
	for format, data := range rendered {
		artifacts[format] = data
		key := r.Keyer.ArtifactKey(netHash, artifactKeyOpts(format, opts))
		if err := r.Cache.Set(ctx, key, data, cache.TTLArtifact); err == nil {
			hooks.OnCacheSet(ctx, "artifact", len(data))
		}
	}
	return artifacts, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, n *network.Network, formats []string, opts RenderOptions) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, n, formats, opts)
	return artifacts, err
}

func artifactKeyOpts(format string, opts RenderOptions) cache.ArtifactKeyOpts {
	return cache.ArtifactKeyOpts{
		Format:      format,
		Detailed:    opts.Detailed,
		CellSize:    opts.CellSize,
		Interactive: opts.Interactive,
		Scale:       opts.Scale,
	}
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
