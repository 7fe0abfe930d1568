// Package sink renders raster layouts to output formats.
//
// # Overview
//
// A "sink" transforms a computed [raster.Layout] into a final output format.
// This package provides renderers for:
//
//   - JSON: the layout document consumed by external renderers
//   - SVG, PNG, PDF: static plots drawn with gonum/plot
//
// Sinks honour the renderer obligations of a raster layout: one drawable per
// group in GroupOrder, y-axis rows from CategoryOrder, legend entries from
// GroupOrder, and no legend when the only group is the undefined bucket.
//
// # JSON Output
//
// [RenderJSON] writes times in seconds. Pen-up sentinels in the y buffers
// are encoded as null, as are undefined labels in the order lists:
//
//	{
//	  "category_order": ["A", "B"],
//	  "group_order": [null],
//	  "legend": false,
//	  "groups": [{"label": null, "x": [2, 2, 2], "y": [0.5, 1.5, null]}]
//	}
//
// [DecodeJSON] reads the document back into a layout. Seconds are float64, so
// epoch-scale times lose nanoseconds; [WithJSONNanoseconds] adds exact
// integer times for consumers that need them, such as the layout cache.
//
// # Plot Output
//
// [RenderSVG], [RenderPNG] and [RenderPDF] share [PlotOption] settings:
//
//	svg, err := sink.RenderSVG(layout,
//	    sink.WithSize(800, 600),
//	    sink.WithTitle("Session 4"),
//	)
//
// Rows are drawn top to bottom in category order. Each group is one [Ticks]
// plotter whose polyline breaks at every NaN.
//
// [raster.Layout]: github.com/matzehuels/spikeraster/pkg/raster.Layout
package sink
