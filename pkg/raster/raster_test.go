package raster

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seconds(vals ...float64) []time.Duration {
	out := make([]time.Duration, len(vals))
	for i, v := range vals {
		out[i] = time.Duration(v * float64(time.Second))
	}
	return out
}

// ticks extracts (t, row) pairs from a buffer, checking the sentinel shape.
func ticks(t *testing.T, g GroupBuffer) (xs []time.Duration, rows []float64) {
	t.Helper()
	require.Equal(t, len(g.X), len(g.Y))
	require.Zero(t, len(g.X)%3, "buffer length must be a multiple of 3")
	for i := 0; i < len(g.X); i += 3 {
		assert.Equal(t, g.X[i], g.X[i+1])
		assert.Equal(t, g.X[i], g.X[i+2])
		assert.True(t, math.IsNaN(g.Y[i+2]), "third point must be the pen-up sentinel")
		row := (g.Y[i] + g.Y[i+1]) / 2
		if !math.IsNaN(row) {
			assert.InDelta(t, row-0.5, g.Y[i], 1e-12)
			assert.InDelta(t, row+0.5, g.Y[i+1], 1e-12)
		}
		xs = append(xs, g.X[i])
		rows = append(rows, row)
	}
	return xs, rows
}

func TestScenarioA(t *testing.T) {
	l := BuildLayout(seconds(2, 5, 8), NewCategorical("A", "A", "B"), Categorical{})

	assert.Equal(t, Labels("A", "B"), l.CategoryOrder)
	assert.Equal(t, []Label{Undefined}, l.GroupOrder)
	require.Len(t, l.Groups, 1)

	xs, rows := ticks(t, l.Groups[0])
	assert.Equal(t, seconds(2, 5, 8), xs)
	assert.Equal(t, []float64{1, 1, 2}, rows)
	assert.False(t, l.LegendVisible())
}

func TestScenarioB(t *testing.T) {
	l := BuildLayout(seconds(2, 5, 8), NewCategorical("A", "A", "B"), NewCategorical("x", "y", "x"))

	assert.Equal(t, Labels("x", "y"), l.GroupOrder)
	require.Len(t, l.Groups, 2)

	xs, rows := ticks(t, l.Groups[0])
	assert.Equal(t, seconds(2, 8), xs)
	assert.Equal(t, []float64{1, 2}, rows)

	xs, rows = ticks(t, l.Groups[1])
	assert.Equal(t, seconds(5), xs)
	assert.Equal(t, []float64{1}, rows)
	assert.True(t, l.LegendVisible())
}

func TestScenarioC(t *testing.T) {
	aligned, diags := Align(seconds(2, 5, 8), NewCategorical("A", "A", "B"), seconds(1, 3))
	assert.Empty(t, diags)
	assert.Equal(t, seconds(1, 4, 5), aligned)
}

func TestScenarioD(t *testing.T) {
	l := BuildLayout(seconds(1, 2), Categorical{}, Categorical{})

	assert.Equal(t, []Label{Undefined}, l.CategoryOrder)
	_, rows := ticks(t, l.Groups[0])
	assert.Equal(t, []float64{1, 1}, rows)
}

func TestScenarioE(t *testing.T) {
	groups := Categorical{Values: []Label{Defined("x"), Undefined, Defined("y")}}
	l := BuildLayout(seconds(1, 2, 3), NewCategorical("A", "B", "C"), groups)

	assert.Equal(t, []Label{Defined("x"), Defined("y"), Undefined}, l.GroupOrder)
	assert.Equal(t, []string{"x", "y", "<undefined>"}, l.LegendLabels())

	xs, rows := ticks(t, l.Groups[2])
	assert.Equal(t, seconds(2), xs)
	assert.Equal(t, []float64{2}, rows)

	for _, g := range l.Groups[:2] {
		gx, _ := ticks(t, g)
		assert.NotContains(t, gx, seconds(2)[0])
	}
}

func TestValidate(t *testing.T) {
	ts := seconds(1, 2, 3)

	tests := []struct {
		name      string
		trials    Categorical
		groups    Categorical
		reference []time.Duration
		wantOK    bool
		wantCodes []string
	}{
		{name: "all empty", wantOK: true},
		{name: "equal lengths", trials: NewCategorical("a", "b", "a"), groups: NewCategorical("x", "x", "y"), wantOK: true},
		{name: "short trials", trials: NewCategorical("a", "b"), wantOK: false, wantCodes: []string{"DATA_LENGTH_MISMATCH"}},
		{name: "long groups", groups: NewCategorical("x", "x", "y", "y"), wantOK: false, wantCodes: []string{"DATA_LENGTH_MISMATCH"}},
		{
			name:      "both mismatched",
			trials:    NewCategorical("a"),
			groups:    NewCategorical("x"),
			wantOK:    false,
			wantCodes: []string{"DATA_LENGTH_MISMATCH", "DATA_LENGTH_MISMATCH"},
		},
		{name: "scalar reference", trials: NewCategorical("a", "b", "c"), reference: seconds(1), wantOK: true},
		{
			name:      "short reference",
			trials:    NewCategorical("a", "b", "c"),
			reference: seconds(1, 2),
			wantOK:    true,
			wantCodes: []string{"ALIGNMENT_TIMES_MISMATCH"},
		},
		{name: "long reference", trials: NewCategorical("a", "b", "c"), reference: seconds(1, 2, 3, 4), wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Validate(ts, tt.trials, tt.groups, tt.reference)
			assert.Equal(t, tt.wantOK, v.OK)

			var codes []string
			for _, d := range v.Diagnostics {
				codes = append(codes, string(d.Code))
			}
			assert.Equal(t, tt.wantCodes, codes)
			assert.Equal(t, !tt.wantOK, HasFatal(v.Diagnostics))
		})
	}
}

func TestAlignIdentity(t *testing.T) {
	ts := seconds(0.5, -1, 3)
	aligned, diags := Align(ts, NewCategorical("a", "b", "a"), nil)
	assert.Empty(t, diags)
	assert.Equal(t, ts, aligned)

	aligned[0] = 0
	assert.Equal(t, seconds(0.5)[0], ts[0], "Align must not alias its input")
}

func TestAlignScalar(t *testing.T) {
	for _, r := range []float64{-2, 0, 0.25, 7} {
		aligned, diags := Align(seconds(1, 2, 3), NewCategorical("a", "b", "c"), seconds(r))
		assert.Empty(t, diags)
		assert.Equal(t, seconds(1-r, 2-r, 3-r), aligned)
	}
}

func TestAlignShortReferenceSkips(t *testing.T) {
	trials := NewCategorical("a", "b", "c", "d", "e")
	ts := seconds(1, 2, 3, 4, 5)

	// lengths 2 .. distinct-1 are ambiguous
	for n := 2; n <= 4; n++ {
		ref := make([]time.Duration, n)
		for i := range ref {
			ref[i] = time.Second
		}
		aligned, diags := Align(ts, trials, ref)
		assert.Equal(t, ts, aligned, "n=%d", n)
		require.Len(t, diags, 1, "n=%d", n)
		assert.Equal(t, AlignmentTimesMismatch, diags[0].Code)
		assert.False(t, diags[0].Fatal)
	}
}

func TestAlignUndefinedTrialUnshifted(t *testing.T) {
	trials := Categorical{Values: []Label{Defined("a"), Undefined, Defined("b")}}
	aligned, diags := Align(seconds(10, 10, 10), trials, seconds(1, 2))
	assert.Empty(t, diags)
	assert.Equal(t, seconds(9, 10, 8), aligned)
}

func TestAlignEmptyTrialsLongReference(t *testing.T) {
	aligned, diags := Align(seconds(5, 6), Categorical{}, seconds(1, 2, 3))
	assert.Empty(t, diags)
	assert.Equal(t, seconds(4, 5), aligned)
}

func TestAlignDeclaredCategories(t *testing.T) {
	// "c" is declared but unused; the reference still needs three values.
	trials := NewCategorical("b", "a")
	trials.Categories = []string{"a", "b", "c"}

	aligned, diags := Align(seconds(10, 10), trials, seconds(1, 2))
	assert.Equal(t, seconds(10, 10), aligned)
	require.Len(t, diags, 1)

	aligned, diags = Align(seconds(10, 10), trials, seconds(1, 2, 3))
	assert.Empty(t, diags)
	assert.Equal(t, seconds(8, 9), aligned)
}

func TestBuildLayoutEveryTimestampOnce(t *testing.T) {
	ts := seconds(0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7)
	trials := NewCategorical("t1", "t2", "t1", "t3", "t2", "t3", "t1")
	groups := Categorical{Values: []Label{
		Defined("fast"), Defined("slow"), Undefined, Defined("fast"), Defined("slow"), Undefined, Defined("fast"),
	}}

	l := BuildLayout(ts, trials, groups)
	assert.Equal(t, len(ts), l.Ticks())

	seen := make(map[time.Duration]int)
	for _, g := range l.Groups {
		xs, _ := ticks(t, g)
		for _, x := range xs {
			seen[x]++
		}
	}
	for _, x := range ts {
		assert.Equal(t, 1, seen[x], "timestamp %v", x)
	}
}

func TestBuildLayoutPreservesOrderWithinGroup(t *testing.T) {
	ts := seconds(9, 1, 5, 3)
	l := BuildLayout(ts, Categorical{}, NewCategorical("g", "h", "g", "g"))

	xs, _ := ticks(t, l.Groups[0])
	assert.Equal(t, seconds(9, 5, 3), xs)
}

func TestBuildLayoutFirstSeenOrder(t *testing.T) {
	l := BuildLayout(seconds(1, 2, 3, 4), NewCategorical("z", "a", "z", "m"), NewCategorical("b", "a", "b", "a"))
	assert.Equal(t, Labels("z", "a", "m"), l.CategoryOrder)
	assert.Equal(t, Labels("b", "a"), l.GroupOrder)
}

func TestBuildLayoutDeclaredOrderWins(t *testing.T) {
	trials := NewCategorical("late", "early")
	trials.Categories = []string{"early", "unused", "late"}

	l := BuildLayout(seconds(1, 2), trials, Categorical{})
	assert.Equal(t, Labels("early", "unused", "late"), l.CategoryOrder)

	_, rows := ticks(t, l.Groups[0])
	assert.Equal(t, []float64{3, 1}, rows)
}

func TestBuildLayoutEmptyDataset(t *testing.T) {
	l := BuildLayout(nil, Categorical{}, Categorical{})
	assert.Equal(t, []Label{Undefined}, l.CategoryOrder)
	assert.Equal(t, []Label{Undefined}, l.GroupOrder)
	require.Len(t, l.Groups, 1)
	assert.Empty(t, l.Groups[0].X)
	assert.Zero(t, l.Ticks())
}

func TestBuildLayoutUndefinedTrialOnNaNRow(t *testing.T) {
	trials := Categorical{Values: []Label{Defined("a"), Undefined}}
	l := BuildLayout(seconds(1, 2), trials, Categorical{})

	assert.Equal(t, Labels("a"), l.CategoryOrder)
	_, rows := ticks(t, l.Groups[0])
	require.Len(t, rows, 2)
	assert.Equal(t, 1.0, rows[0])
	assert.True(t, math.IsNaN(rows[1]))
}

func TestCompute(t *testing.T) {
	t.Run("suppressed on mismatch", func(t *testing.T) {
		res := Compute(Input{
			Timestamps: seconds(1, 2, 3),
			Trials:     NewCategorical("a", "b"),
		})
		assert.True(t, res.Suppressed)
		assert.Empty(t, res.Layout.Groups)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, DataLengthMismatch, res.Diagnostics[0].Code)
	})

	t.Run("alignment skipped but rendered", func(t *testing.T) {
		res := Compute(Input{
			Timestamps: seconds(1, 2, 3),
			Trials:     NewCategorical("a", "b", "c"),
			Reference:  seconds(1, 1),
		})
		assert.False(t, res.Suppressed)
		require.Len(t, res.Diagnostics, 1)
		assert.Equal(t, AlignmentTimesMismatch, res.Diagnostics[0].Code)
		assert.Equal(t, seconds(1, 2, 3), res.Aligned)
		assert.Equal(t, 3, res.Layout.Ticks())
	})

	t.Run("aligned layout", func(t *testing.T) {
		res := Compute(Input{
			Timestamps: seconds(2, 5, 8),
			Trials:     NewCategorical("A", "A", "B"),
			Groups:     NewCategorical("x", "y", "x"),
			Reference:  seconds(1, 3),
		})
		assert.False(t, res.Suppressed)
		assert.Empty(t, res.Diagnostics)

		xs, _ := ticks(t, res.Layout.Groups[0])
		assert.Equal(t, seconds(1, 5), xs)
	})
}

func TestDiagnosticErr(t *testing.T) {
	d := lengthMismatch("trials", 2, 3)
	err := d.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATA_LENGTH_MISMATCH")
	assert.Contains(t, d.String(), "trials has 2 values")
}
