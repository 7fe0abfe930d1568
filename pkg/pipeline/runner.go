package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/spikeraster/pkg/cache"
	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/observability"
	"github.com/matzehuels/spikeraster/pkg/raster"
	"github.com/matzehuels/spikeraster/pkg/render/sink"
)

// Cache key types reported to observability hooks.
const (
	keyTypeLayout   = "layout"
	keyTypeArtifact = "artifact"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and server use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// TTL overrides the cache lifetime of layouts and artifacts when positive.
	TTL time.Duration
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

// LayoutResult is the outcome of the layout stage.
type LayoutResult struct {
	DatasetHash string
	Suppressed  bool
	Diagnostics []raster.Diagnostic
	Layout      raster.Layout
}

// Execute loads a dataset from src and runs layout and render.
func (r *Runner) Execute(ctx context.Context, src Source, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	loadStart := time.Now()
	ds, err := r.Load(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	loadTime := time.Since(loadStart)

	result, err := r.Run(ctx, ds, opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = loadTime
	return result, nil
}

// Run executes the layout → render stages on a loaded dataset.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	result := &Result{
		RunID:     uuid.NewString(),
		Dataset:   ds.Name,
		Artifacts: make(map[string][]byte),
	}
	result.Stats.Events = ds.Len()

	// Stage 1: Layout
	layoutStart := time.Now()
	computed, layoutHit, err := r.ComputeLayoutWithCacheInfo(ctx, ds, opts)
	if err != nil {
		return nil, fmt.Errorf("layout: %w", err)
	}
	result.DatasetHash = computed.DatasetHash
	result.Suppressed = computed.Suppressed
	result.Diagnostics = computed.Diagnostics
	result.Layout = computed.Layout
	result.Stats.LayoutTime = time.Since(layoutStart)
	result.Stats.Rows = len(computed.Layout.CategoryOrder)
	result.Stats.Groups = len(computed.Layout.GroupOrder)
	result.CacheInfo.LayoutHit = layoutHit

	for _, d := range computed.Diagnostics {
		opts.Logger.Debug(d.Message, "code", d.Code, "fatal", d.Fatal)
	}

	if computed.Suppressed {
		if opts.Strict {
			return nil, firstFatal(computed.Diagnostics).Err()
		}
		opts.Logger.Debug("dataset failed validation, chart suppressed", "run", result.RunID)
		return result, nil
	}

	opts.Logger.Info("computed layout",
		"rows", result.Stats.Rows,
		"groups", result.Stats.Groups,
		"ticks", computed.Layout.Ticks(),
		"duration", result.Stats.LayoutTime)

	// Stage 2: Render
	renderStart := time.Now()
	artifacts, renderHit, err := r.RenderWithCacheInfo(ctx, computed.Layout, computed.Diagnostics, opts)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)
	result.CacheInfo.RenderHit = renderHit

	opts.Logger.Info("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// Load reads a dataset from src, reporting to the pipeline hooks.
func (r *Runner) Load(ctx context.Context, src Source) (*dataset.Dataset, error) {
	hooks := observability.Pipeline()
	hooks.OnLoadStart(ctx, src.String())
	start := time.Now()

	ds, err := src.Load(ctx)
	events := 0
	if ds != nil {
		events = ds.Len()
	}
	hooks.OnLoadComplete(ctx, src.String(), events, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	r.Logger.Debug("loaded dataset", "source", src.String(), "events", events, "unit", ds.Unit)
	return ds, nil
}

// ComputeLayoutWithCacheInfo validates, aligns and lays out ds with caching
// and returns cache hit info. Suppressed datasets are never cached.
func (r *Runner) ComputeLayoutWithCacheInfo(ctx context.Context, ds *dataset.Dataset, opts Options) (LayoutResult, bool, error) {
	r.applyLogger(&opts)
	hooks := observability.Pipeline()

	in := ds.Input()
	if opts.Reference != nil {
		in.Reference = opts.Reference
	}

	hooks.OnLayoutStart(ctx, len(in.Timestamps))
	start := time.Now()

	hash, err := DatasetHash(ds)
	if err != nil {
		hooks.OnLayoutComplete(ctx, 0, 0, time.Since(start), err)
		return LayoutResult{}, false, err
	}

	v := raster.Validate(in.Timestamps, in.Trials, in.Groups, in.Reference)
	if !v.OK {
		reportDiagnostics(ctx, v.Diagnostics)
		hooks.OnLayoutComplete(ctx, 0, 0, time.Since(start), nil)
		return LayoutResult{DatasetHash: hash, Suppressed: true, Diagnostics: v.Diagnostics}, false, nil
	}

	cacheKey := r.Keyer.LayoutKey(hash, opts.LayoutKeyOpts(in.Reference))

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			l, diags, err := sink.DecodeJSON(data)
			if err == nil {
				observability.Cache().OnCacheHit(ctx, keyTypeLayout)
				reportDiagnostics(ctx, diags)
				hooks.OnLayoutComplete(ctx, len(l.CategoryOrder), len(l.GroupOrder), time.Since(start), nil)
				return LayoutResult{DatasetHash: hash, Diagnostics: diags, Layout: l}, true, nil
			}
			// If deserialization fails, fall through to recompute
		}
		observability.Cache().OnCacheMiss(ctx, keyTypeLayout)
	}

	res := raster.Compute(in)
	reportDiagnostics(ctx, res.Diagnostics)

	if data, err := sink.RenderJSON(res.Layout, sink.WithJSONDiagnostics(res.Diagnostics), sink.WithJSONNanoseconds()); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, r.ttl(cache.LayoutTTL)); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeLayout, len(data))
		} else {
			opts.Logger.Debug("cache write failed", "key", cacheKey, "err", err)
		}
	}

	hooks.OnLayoutComplete(ctx, len(res.Layout.CategoryOrder), len(res.Layout.GroupOrder), time.Since(start), nil)
	return LayoutResult{
		DatasetHash: hash,
		Suppressed:  res.Suppressed,
		Diagnostics: res.Diagnostics,
		Layout:      res.Layout,
	}, false, nil
}

// ComputeLayout is a convenience wrapper that calls ComputeLayoutWithCacheInfo and discards the cache hit info.
func (r *Runner) ComputeLayout(ctx context.Context, ds *dataset.Dataset, opts Options) (LayoutResult, error) {
	res, _, err := r.ComputeLayoutWithCacheInfo(ctx, ds, opts)
	return res, err
}

// RenderWithCacheInfo generates artifacts with caching and returns cache hit info.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, l raster.Layout, diags []raster.Diagnostic, opts Options) (map[string][]byte, bool, error) {
	r.applyLogger(&opts)
	if err := opts.ValidateForRender(); err != nil {
		return nil, false, err
	}
	hooks := observability.Pipeline()

	// Compute cache key from layout data
	layoutData, err := sink.RenderJSON(l, sink.WithJSONDiagnostics(diags), sink.WithJSONNanoseconds())
	if err != nil {
		return nil, false, fmt.Errorf("serialize layout for cache key: %w", err)
	}
	layoutHash := cache.Hash(layoutData)

	// Try to get all formats from cache
	allCached := !opts.Refresh
	artifacts := make(map[string][]byte)

	for _, format := range opts.Formats {
		if !allCached {
			break
		}
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if data, hit, err := r.Cache.Get(ctx, cacheKey); err == nil && hit {
			artifacts[format] = data
			observability.Cache().OnCacheHit(ctx, keyTypeArtifact)
		} else {
			allCached = false
			observability.Cache().OnCacheMiss(ctx, keyTypeArtifact)
		}
	}

	if allCached && len(artifacts) == len(opts.Formats) {
		return artifacts, true, nil // All artifacts from cache
	}

	// Render all formats
	hooks.OnRenderStart(ctx, opts.Formats)
	start := time.Now()
	rendered, err := RenderLayout(l, diags, opts)
	hooks.OnRenderComplete(ctx, opts.Formats, time.Since(start), err)
	if err != nil {
		return nil, false, err
	}

	// Cache each format
	for format, data := range rendered {
		cacheKey := r.Keyer.ArtifactKey(layoutHash, opts.ArtifactKeyOpts(format))
		if err := r.Cache.Set(ctx, cacheKey, data, r.ttl(cache.ArtifactTTL)); err == nil {
			observability.Cache().OnCacheSet(ctx, keyTypeArtifact, len(data))
		}
	}

	return rendered, false, nil // Cache miss
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, l raster.Layout, diags []raster.Diagnostic, opts Options) (map[string][]byte, error) {
	artifacts, _, err := r.RenderWithCacheInfo(ctx, l, diags, opts)
	return artifacts, err
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// DatasetHash returns the content hash of the events and categories of ds.
// The name, source unit and alignment reference do not contribute. Times are
// hashed as integer nanoseconds.
func DatasetHash(ds *dataset.Dataset) (string, error) {
	labels := dataset.ToDocument(&dataset.Dataset{Trials: ds.Trials, Groups: ds.Groups})
	return cache.HashJSON(hashedDataset{
		Timestamps:      ds.Timestamps,
		Trials:          labels.Trials,
		Groups:          labels.Groups,
		TrialCategories: labels.TrialCategories,
		GroupCategories: labels.GroupCategories,
	})
}

type hashedDataset struct {
	Timestamps      []time.Duration `json:"timestamps_ns"`
	Trials          []*string       `json:"trials,omitempty"`
	Groups          []*string       `json:"groups,omitempty"`
	TrialCategories []string        `json:"trial_categories,omitempty"`
	GroupCategories []string        `json:"group_categories,omitempty"`
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}

func reportDiagnostics(ctx context.Context, diags []raster.Diagnostic) {
	for _, d := range diags {
		observability.Pipeline().OnDiagnostic(ctx, string(d.Code), d.Fatal)
	}
}

func firstFatal(diags []raster.Diagnostic) raster.Diagnostic {
	for _, d := range diags {
		if d.Fatal {
			return d
		}
	}
	return diags[0]
}
