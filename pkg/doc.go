// Package pkg provides the libraries behind spikeraster.
//
// # Overview
//
// Spikeraster draws spike raster plots: event timestamps become vertical
// ticks, one row per trial and one colour per group. The pkg directory is
// organized into these areas:
//
//  1. [raster] - Validation, alignment and layout of events
//  2. [dataset] - Dataset documents in JSON, YAML and CSV
//  3. [pipeline] - Orchestration (load → layout → render) with caching
//  4. [render/sink] - SVG, PNG, PDF and JSON output
//  5. [cache], [config], [source/mongo], [observability] - Infrastructure
//
// # Architecture
//
// The typical data flow:
//
//	Dataset file or MongoDB document
//	         ↓
//	    [dataset] package (decode, convert units)
//	         ↓
//	    [raster] package (validate → align → lay out)
//	         ↓
//	    [render/sink] package (plot or serialize)
//	         ↓
//	    SVG/PNG/PDF/JSON output
//
// # Quick Start
//
// Compute a layout directly:
//
//	import (
//	    "github.com/matzehuels/spikeraster/pkg/dataset"
//	    "github.com/matzehuels/spikeraster/pkg/raster"
//	    "github.com/matzehuels/spikeraster/pkg/render/sink"
//	)
//
//	ds, _ := dataset.ReadFile("session.json")
//	res := raster.Compute(ds.Input())
//	if res.Suppressed {
//	    // res.Diagnostics explains why the chart is hidden
//	}
//	svg, _ := sink.RenderSVG(res.Layout, sink.WithTitle(ds.Name))
//
// Or run the cached pipeline used by the CLI and the HTTP server:
//
//	runner := pipeline.NewRunner(cache.NewNullCache(), nil, logger)
//	result, _ := runner.Execute(ctx, pipeline.FileSource("session.json"), pipeline.Options{})
//
// [raster]: github.com/matzehuels/spikeraster/pkg/raster
// [dataset]: github.com/matzehuels/spikeraster/pkg/dataset
// [pipeline]: github.com/matzehuels/spikeraster/pkg/pipeline
// [render/sink]: github.com/matzehuels/spikeraster/pkg/render/sink
// [cache]: github.com/matzehuels/spikeraster/pkg/cache
// [config]: github.com/matzehuels/spikeraster/pkg/config
// [source/mongo]: github.com/matzehuels/spikeraster/pkg/source/mongo
// [observability]: github.com/matzehuels/spikeraster/pkg/observability
package pkg
