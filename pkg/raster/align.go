package raster

import "time"

// Align shifts timestamps by a reference time.
//
//   - An empty reference returns a copy of timestamps.
//   - A single reference value is subtracted from every timestamp.
//   - Otherwise reference[k] is subtracted from every timestamp whose trial
//     sits on row k+1. Timestamps with an undefined trial stay unshifted.
//
// A reference with more than one but fewer values than trial categories is
// ambiguous: alignment is skipped for all timestamps and an
// AlignmentTimesMismatch diagnostic is returned.
//
// Align never modifies its inputs.
func Align(timestamps []time.Duration, trials Categorical, reference []time.Duration) ([]time.Duration, []Diagnostic) {
	return alignIndexed(timestamps, newTrialIndex(trials, len(timestamps)), reference)
}

func alignIndexed(timestamps []time.Duration, idx trialIndex, reference []time.Duration) ([]time.Duration, []Diagnostic) {
	out := make([]time.Duration, len(timestamps))
	copy(out, timestamps)

	switch {
	case len(reference) == 0:
		return out, nil
	case len(reference) == 1:
		for i := range out {
			out[i] -= reference[0]
		}
		return out, nil
	}

	if d, ok := checkReference(len(reference), idx.count); !ok {
		return out, []Diagnostic{d}
	}

	for i := range out {
		row := idx.code(i)
		if row == 0 || row > len(reference) {
			continue
		}
		out[i] -= reference[row-1]
	}
	return out, nil
}

// code returns the 1-based row of event i, or 0 when unknown.
func (t trialIndex) code(i int) int {
	if i < 0 || i >= len(t.codes) {
		return 0
	}
	return t.codes[i]
}
