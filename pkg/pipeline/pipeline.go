// Package pipeline provides the raster pipeline shared by the CLI and the
// HTTP server.
//
// This package implements the complete load → layout → render pipeline. By
// centralizing this logic, every entry point validates, aligns, caches and
// renders the same way.
//
// # Architecture
//
// The pipeline consists of three stages:
//
//  1. Load: Read a dataset from a file, a MongoDB collection or memory
//  2. Layout: Validate, align and lay out the events ([raster.Compute])
//  3. Render: Generate output in various formats (SVG, PNG, PDF, JSON)
//
// A dataset that fails validation is suppressed: the result carries the
// diagnostics and no layout or artifacts, unless Options.Strict turns the
// mismatch into an error.
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{Formats: []string{"svg"}}
//	result, err := runner.Execute(ctx, pipeline.FileSource("spikes.csv"), opts)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svg := result.Artifacts["svg"]
//
// Run individual stages:
//
//	ds, err := runner.Load(ctx, src)
//	computed, err := runner.ComputeLayout(ctx, ds, opts)
//	artifacts, err := runner.Render(ctx, computed.Layout, computed.Diagnostics, opts)
//
// [raster.Compute]: github.com/matzehuels/spikeraster/pkg/raster.Compute
package pipeline

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spikeraster/pkg/cache"
	"github.com/matzehuels/spikeraster/pkg/raster"
	"github.com/matzehuels/spikeraster/pkg/render/sink"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and Server
// =============================================================================

const (
	// DefaultWidth is the default canvas width.
	DefaultWidth = sink.DefaultWidth

	// DefaultHeight is the default canvas height.
	DefaultHeight = sink.DefaultHeight

	// MaxDimension bounds width and height.
	MaxDimension = 20000.0
)

// Format constants for output formats.
const (
	FormatSVG  = "svg"
	FormatPNG  = "png"
	FormatPDF  = "pdf"
	FormatJSON = "json"
)

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatSVG:  true,
	FormatPNG:  true,
	FormatPDF:  true,
	FormatJSON: true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the raster pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Layout options

	// Reference replaces the dataset's alignment reference when non-nil.
	Reference []time.Duration `json:"reference,omitempty"`
	Strict    bool            `json:"strict,omitempty"`
	Refresh   bool            `json:"refresh,omitempty"`

	// Render options
	Formats []string `json:"formats,omitempty"`
	Width   float64  `json:"width,omitempty"`
	Height  float64  `json:"height,omitempty"`
	Title   string   `json:"title,omitempty"`
	XLabel  string   `json:"xlabel,omitempty"`
	YLabel  string   `json:"ylabel,omitempty"`
	Grid    bool     `json:"grid,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// RunID identifies this run in logs and API responses.
	RunID string

	// Dataset is the name of the loaded dataset.
	Dataset string

	// DatasetHash is the content hash of the dataset.
	DatasetHash string

	// Suppressed is true when the dataset failed validation. Layout and
	// Artifacts are empty and the chart should be hidden.
	Suppressed bool

	// Diagnostics lists validation and alignment warnings.
	Diagnostics []raster.Diagnostic

	// Layout is the computed raster layout.
	Layout raster.Layout

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Events     int
	Rows       int
	Groups     int
	LoadTime   time.Duration
	LayoutTime time.Duration
	RenderTime time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	LayoutHit bool // Whether the layout came from cache
	RenderHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: svg, png, pdf, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateDimension checks a canvas width or height.
func ValidateDimension(name string, v float64) error {
	if v <= 0 || v > MaxDimension {
		return fmt.Errorf("invalid %s: %g (must be in (0, %g])", name, v, MaxDimension)
	}
	return nil
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults applies defaults and checks every field.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = []string{FormatSVG}
	}
	if o.Width == 0 {
		o.Width = DefaultWidth
	}
	if o.Height == 0 {
		o.Height = DefaultHeight
	}
	if o.XLabel == "" {
		o.XLabel = sink.DefaultXLabel
	}
	if o.YLabel == "" {
		o.YLabel = sink.DefaultYLabel
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if err := ValidateDimension("width", o.Width); err != nil {
		return err
	}
	return ValidateDimension("height", o.Height)
}

// PlotOptions converts render settings to sink options.
func (o *Options) PlotOptions() []sink.PlotOption {
	opts := []sink.PlotOption{
		sink.WithSize(o.Width, o.Height),
		sink.WithTitle(o.Title),
	}
	if o.XLabel != "" {
		opts = append(opts, sink.WithXLabel(o.XLabel))
	}
	if o.YLabel != "" {
		opts = append(opts, sink.WithYLabel(o.YLabel))
	}
	if o.Grid {
		opts = append(opts, sink.WithGrid())
	}
	return opts
}

// LayoutKeyOpts returns cache key options for layout computation.
func (o *Options) LayoutKeyOpts(reference []time.Duration) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{Reference: reference}
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format string) cache.ArtifactKeyOpts {
	k := cache.ArtifactKeyOpts{Format: format, Title: o.Title}
	if format != FormatJSON {
		k.Width = o.Width
		k.Height = o.Height
		k.XLabel = o.XLabel
		k.YLabel = o.YLabel
		k.Grid = o.Grid
	}
	return k
}
