// Package raster turns spike timestamps into raster-plot drawing instructions.
//
// # Overview
//
// A raster plot draws one short vertical tick per event. Ticks are placed on
// the row of the event's trial and colored by the event's group. This package
// is the pure computation behind such a plot; it never draws anything itself.
//
// The pipeline has three steps:
//
//  1. [Validate]: check that timestamps, trials and groups line up
//  2. [Align]: shift timestamps by a global or per-trial reference time
//  3. [BuildLayout]: partition events by group and emit tick coordinates
//
// [Compute] runs all three and reports whether the renderer should hide the
// chart.
//
// # Categories
//
// Trials and groups are categorical. A [Categorical] holds one [Label] per
// event plus an optional declared category list. Row and legend order follow
// declaration order first, then first-seen order; labels are never sorted.
// Missing values are represented by the [Undefined] label, not by a magic
// string. Its display text "<undefined>" only appears at the rendering
// boundary.
//
// # Coordinate Buffers
//
// Each group's ticks are emitted as one flat polyline. Every event contributes
// three points:
//
//	(t, row-0.5)  (t, row+0.5)  (t, NaN)
//
// The NaN point lifts the pen so a single line primitive draws disconnected
// ticks.
//
// # Diagnostics
//
// Problems never abort a computation. A length mismatch between timestamps,
// trials and groups yields a fatal [Diagnostic] (the chart is suppressed); a
// reference with an unusable length yields a non-fatal one (alignment is
// skipped).
//
// # Drawables
//
// Renderers that keep one line object per group can use [Reconcile] to turn
// the previous and new group orders into create/reuse/delete actions.
package raster
