package pipeline

import (
	"fmt"

	"github.com/matzehuels/spikeraster/pkg/raster"
	"github.com/matzehuels/spikeraster/pkg/render/sink"
)

// RenderLayout generates output artifacts in the requested formats.
// Diagnostics are embedded in the JSON document.
func RenderLayout(l raster.Layout, diags []raster.Diagnostic, opts Options) (map[string][]byte, error) {
	plotOpts := opts.PlotOptions()
	artifacts := make(map[string][]byte, len(opts.Formats))

	for _, format := range opts.Formats {
		var data []byte
		var err error

		switch format {
		case FormatSVG:
			data, err = sink.RenderSVG(l, plotOpts...)
		case FormatPNG:
			data, err = sink.RenderPNG(l, plotOpts...)
		case FormatPDF:
			data, err = sink.RenderPDF(l, plotOpts...)
		case FormatJSON:
			data, err = sink.RenderJSON(l, sink.WithJSONTitle(opts.Title), sink.WithJSONDiagnostics(diags))
		default:
			return nil, fmt.Errorf("unsupported format: %s", format)
		}

		if err != nil {
			return nil, fmt.Errorf("render %s: %w", format, err)
		}
		artifacts[format] = data
	}

	return artifacts, nil
}
