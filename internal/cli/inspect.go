package cli

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"

	"github.com/matzehuels/spikeraster/pkg/raster"
)

// inspectCommand creates the inspect command.
func (c *CLI) inspectCommand() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "inspect [dataset]",
		Short: "Print per-trial and per-group event statistics",
		Long: `Print event counts, time spans, inter-event intervals and firing rates per
trial row, and event counts per group. Times are reported after alignment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd.Context(), args[0], &src)
		},
	}

	src.registerUnit(cmd)
	src.registerReference(cmd)
	src.registerMongo(cmd)

	return cmd
}

func (c *CLI) runInspect(ctx context.Context, input string, f *sourceFlags) error {
	ds, err := c.loadDataset(ctx, f, input)
	if err != nil {
		return err
	}

	res := raster.Compute(ds.Input())
	if res.Suppressed {
		printDiagnostics(res.Diagnostics)
		return firstFatalErr(res.Diagnostics)
	}

	s := summarize(res.Layout)
	fmt.Println(StyleTitle.Render(ds.Name))
	fmt.Println(rowTable(s))
	fmt.Println(groupTable(s, res.Layout))
	printKeyValue("events/row", fmt.Sprintf("%.2f ± %.2f", s.countMean, s.countStdDev))
	if s.medianISI > 0 {
		printKeyValue("median ISI", formatDuration(s.medianISI))
	}
	if s.unplaced > 0 {
		printWarning("%s without a trial are not drawn", plural(s.unplaced, "event"))
	}
	printDiagnostics(res.Diagnostics)
	return nil
}

// rowSummary describes the ticks drawn on one row.
type rowSummary struct {
	label   string
	events  int
	first   time.Duration
	last    time.Duration
	meanISI time.Duration
	rate    float64 // events per second over [first, last]
}

type groupSummary struct {
	label  string
	events int
	share  float64
}

type summary struct {
	rows        []rowSummary
	groups      []groupSummary
	unplaced    int
	countMean   float64
	countStdDev float64
	medianISI   time.Duration
}

// summarize derives statistics from a layout's tick polylines.
func summarize(l raster.Layout) summary {
	perRow := make([][]time.Duration, len(l.CategoryOrder))
	s := summary{groups: make([]groupSummary, len(l.Groups))}

	total := l.Ticks()
	for gi, g := range l.Groups {
		s.groups[gi] = groupSummary{label: g.Label.String(), events: g.Ticks()}
		if total > 0 {
			s.groups[gi].share = float64(g.Ticks()) / float64(total)
		}
		for k := 0; k+1 < len(g.Y); k += 3 {
			if math.IsNaN(g.Y[k]) {
				s.unplaced++
				continue
			}
			row := int(math.Round((g.Y[k]+g.Y[k+1])/2)) - 1
			if row < 0 || row >= len(perRow) {
				s.unplaced++
				continue
			}
			perRow[row] = append(perRow[row], g.X[k])
		}
	}

	counts := make([]float64, len(perRow))
	var isis []float64
	s.rows = make([]rowSummary, len(perRow))
	for i, times := range perRow {
		sort.Slice(times, func(a, b int) bool { return times[a] < times[b] })
		r := rowSummary{label: l.CategoryOrder[i].String(), events: len(times)}
		counts[i] = float64(len(times))
		if len(times) > 0 {
			r.first, r.last = times[0], times[len(times)-1]
		}
		if len(times) > 1 {
			rowISI := make([]float64, len(times)-1)
			for j := 1; j < len(times); j++ {
				rowISI[j-1] = float64(times[j] - times[j-1])
			}
			r.meanISI = time.Duration(stat.Mean(rowISI, nil))
			if span := (r.last - r.first).Seconds(); span > 0 {
				r.rate = float64(len(times)-1) / span
			}
			isis = append(isis, rowISI...)
		}
		s.rows[i] = r
	}

	if len(counts) > 0 {
		s.countMean = stat.Mean(counts, nil)
	}
	if len(counts) > 1 {
		s.countStdDev = stat.StdDev(counts, nil)
	}
	if len(isis) > 0 {
		sort.Float64s(isis)
		s.medianISI = time.Duration(stat.Quantile(0.5, stat.Empirical, isis, nil))
	}
	return s
}

func rowTable(s summary) string {
	rows := make([][]string, len(s.rows))
	for i, r := range s.rows {
		span, isi, rate := "—", "—", "—"
		if r.events > 0 {
			span = formatDuration(r.first) + " … " + formatDuration(r.last)
		}
		if r.events > 1 {
			isi = formatDuration(r.meanISI)
			if r.rate > 0 {
				rate = fmt.Sprintf("%.2f Hz", r.rate)
			}
		}
		rows[i] = []string{r.label, fmt.Sprint(r.events), span, isi, rate}
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Trial", "Events", "Span", "Mean ISI", "Rate").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorCyan)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

func groupTable(s summary, l raster.Layout) string {
	rows := make([][]string, len(s.groups))
	for i, g := range s.groups {
		rows[i] = []string{g.label, fmt.Sprint(g.events), fmt.Sprintf("%.1f%%", 100*g.share)}
	}

	title := "Group"
	if !l.LegendVisible() {
		title = "Group (no legend)"
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(title, "Events", "Share").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			if col == 0 {
				return groupStyle(row)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}

// formatDuration prints d with at most three significant decimals.
func formatDuration(d time.Duration) string {
	switch abs := d.Abs(); {
	case abs >= time.Second:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", d.Seconds()), "0"), ".") + "s"
	case abs >= time.Millisecond:
		return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.3f", float64(d)/float64(time.Millisecond)), "0"), ".") + "ms"
	default:
		return d.String()
	}
}

func firstFatalErr(diags []raster.Diagnostic) error {
	for _, d := range diags {
		if d.Fatal {
			return d.Err()
		}
	}
	return nil
}
