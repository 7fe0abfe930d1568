// Package dataset reads and writes spike raster datasets.
//
// A [Dataset] is the wholesale input of one raster computation: timestamps,
// optional trial and group assignments, declared category lists and an
// optional alignment reference. [Dataset.Input] converts it to the
// [raster.Input] snapshot consumed by the core.
//
// # File Formats
//
// JSON and YAML share the [Document] schema. Times are plain numbers in the
// document's unit (default seconds); null marks a missing category value:
//
//	{
//	  "unit": "ms",
//	  "timestamps": [12.5, 40, 81.25],
//	  "trials": ["t1", "t1", "t2"],
//	  "groups": ["left", null, "right"],
//	  "reference": [10, 75]
//	}
//
// CSV files carry one event per line with a header naming the columns. The
// time column is required; trial and group are optional and an empty cell is
// a missing value:
//
//	time,trial,group
//	0.012,t1,left
//	0.040,t1,
//
// Use [ReadFile] and [WriteFile] to pick the format from the file extension.
//
// [raster.Input]: github.com/matzehuels/spikeraster/pkg/raster.Input
package dataset
