package raster

import "time"

// Input is one immutable snapshot of raster data.
type Input struct {
	Timestamps []time.Duration
	Trials     Categorical
	Groups     Categorical
	Reference  []time.Duration
}

// Result is the outcome of [Compute].
type Result struct {
	// Suppressed is true when the dataset failed validation. Layout is empty
	// and the renderer should hide the chart.
	Suppressed  bool
	Diagnostics []Diagnostic

	// Aligned holds the timestamps after alignment.
	Aligned []time.Duration
	Layout  Layout
}

// Compute validates, aligns and lays out in. The trial category set is
// computed once and shared by alignment and layout.
func Compute(in Input) Result {
	v := Validate(in.Timestamps, in.Trials, in.Groups, in.Reference)
	if !v.OK {
		return Result{Suppressed: true, Diagnostics: v.Diagnostics}
	}

	idx := newTrialIndex(in.Trials, len(in.Timestamps))
	aligned, _ := alignIndexed(in.Timestamps, idx, in.Reference)

	return Result{
		Diagnostics: v.Diagnostics,
		Aligned:     aligned,
		Layout:      buildIndexed(aligned, idx, in.Groups),
	}
}
