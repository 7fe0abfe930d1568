package raster

import "time"

// Validation is the result of [Validate].
type Validation struct {
	// OK is false when the dataset must not be rendered.
	OK          bool
	Diagnostics []Diagnostic
}

// Validate checks a dataset before alignment and layout.
//
// Trials and groups must either be empty or hold exactly one value per
// timestamp; otherwise OK is false and a DataLengthMismatch diagnostic is
// returned. A reference whose length is neither 0, 1, nor at least the number
// of trial categories produces a non-fatal AlignmentTimesMismatch diagnostic.
func Validate(timestamps []time.Duration, trials, groups Categorical, reference []time.Duration) Validation {
	v := Validation{OK: true}
	n := len(timestamps)

	if !trials.IsEmpty() && trials.Len() != n {
		v.OK = false
		v.Diagnostics = append(v.Diagnostics, lengthMismatch("trials", trials.Len(), n))
	}
	if !groups.IsEmpty() && groups.Len() != n {
		v.OK = false
		v.Diagnostics = append(v.Diagnostics, lengthMismatch("groups", groups.Len(), n))
	}

	if d, ok := checkReference(len(reference), trialCount(trials)); !ok {
		v.Diagnostics = append(v.Diagnostics, d)
	}
	return v
}

// trialCount returns the number of rows a reference must cover.
func trialCount(trials Categorical) int {
	if trials.IsEmpty() {
		return 1
	}
	return NewCategorySet(trials).Len()
}

func checkReference(refLen, categories int) (Diagnostic, bool) {
	if refLen <= 1 || refLen >= categories {
		return Diagnostic{}, true
	}
	return referenceMismatch(refLen, categories), false
}
