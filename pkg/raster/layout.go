package raster

import (
	"math"
	"time"
)

// tickHalfHeight is the vertical extent of a tick on either side of its row.
const tickHalfHeight = 0.5

// pointsPerTick is the number of polyline points emitted per event.
const pointsPerTick = 3

// GroupBuffer holds the tick polyline for one group.
//
// X and Y have equal length, a multiple of three: every event contributes
// (t, row-0.5), (t, row+0.5), (t, NaN).
type GroupBuffer struct {
	Label Label
	X     []time.Duration
	Y     []float64
}

// Ticks returns the number of events drawn by this buffer.
func (g GroupBuffer) Ticks() int { return len(g.X) / pointsPerTick }

func (g *GroupBuffer) appendTick(t time.Duration, row float64) {
	g.X = append(g.X, t, t, t)
	g.Y = append(g.Y, row-tickHalfHeight, row+tickHalfHeight, math.NaN())
}

// Layout is the renderer-facing description of a raster plot.
type Layout struct {
	// CategoryOrder lists y-axis rows from first to last.
	CategoryOrder []Label

	// GroupOrder lists groups in legend order. Undefined is the trailing
	// bucket for events without a group.
	GroupOrder []Label

	// Groups holds one buffer per GroupOrder entry, in the same order.
	Groups []GroupBuffer
}

// AxisLabels returns the display text of every row.
func (l Layout) AxisLabels() []string { return displayTexts(l.CategoryOrder) }

// LegendLabels returns the display text of every group.
func (l Layout) LegendLabels() []string { return displayTexts(l.GroupOrder) }

// LegendVisible reports whether a legend is meaningful. It is false when the
// only group is the Undefined bucket.
func (l Layout) LegendVisible() bool {
	return !(len(l.GroupOrder) == 1 && !l.GroupOrder[0].IsDefined())
}

// Ticks returns the total number of events across all groups.
func (l Layout) Ticks() int {
	n := 0
	for _, g := range l.Groups {
		n += g.Ticks()
	}
	return n
}

// BuildLayout partitions timestamps by group and emits one tick polyline per
// group.
//
// Rows follow the trial category order (a single placeholder row when trials
// is empty). Groups follow the group category order, plus a trailing
// Undefined bucket when groups is empty or has missing values. Within a group
// ticks keep the original timestamp order. Events whose trial is Undefined are
// still emitted, on a NaN row, so renderers skip them.
//
// BuildLayout expects inputs that passed [Validate]; values beyond the end of
// a short trials or groups slice are treated as Undefined.
func BuildLayout(timestamps []time.Duration, trials, groups Categorical) Layout {
	return buildIndexed(timestamps, newTrialIndex(trials, len(timestamps)), groups)
}

func buildIndexed(timestamps []time.Duration, idx trialIndex, groups Categorical) Layout {
	gset := NewCategorySet(groups)
	groupOrder := gset.Labels()
	if groups.IsEmpty() || groups.HasUndefined() || len(groups.Values) < len(timestamps) {
		groupOrder = append(groupOrder, Undefined)
	}
	undefinedSlot := len(groupOrder) - 1

	l := Layout{
		CategoryOrder: idx.rows(),
		GroupOrder:    groupOrder,
		Groups:        make([]GroupBuffer, len(groupOrder)),
	}
	for i, label := range groupOrder {
		l.Groups[i].Label = label
	}

	for i, t := range timestamps {
		slot := undefinedSlot
		if i < len(groups.Values) {
			if pos := gset.Position(groups.Values[i]); pos > 0 {
				slot = pos - 1
			}
		}
		l.Groups[slot].appendTick(t, idx.row(i))
	}
	return l
}

// row returns the y coordinate of event i.
func (t trialIndex) row(i int) float64 {
	c := t.code(i)
	if c == 0 {
		return math.NaN()
	}
	return float64(c)
}
