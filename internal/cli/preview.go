package cli

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/pipeline"
	"github.com/matzehuels/spikeraster/pkg/raster"
)

const (
	maxZoom      = 64.0
	panStep      = 0.1
	tickGlyph    = "|"
	minPlotWidth = 10
)

// previewCommand creates the preview command.
func (c *CLI) previewCommand() *cobra.Command {
	var (
		src     sourceFlags
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "preview [dataset]",
		Short: "Show a raster in the terminal",
		Long: `Draw the raster of a dataset as text, one line per trial and one colour per
group.

Keys: ↑/↓ scroll rows, +/- zoom time, ←/→ pan, r reload, q quit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(cmd.Context(), args[0], &src, noCache)
		},
	}

	src.registerUnit(cmd)
	src.registerReference(cmd)
	src.registerMongo(cmd)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runPreview(ctx context.Context, input string, f *sourceFlags, noCache bool) error {
	src, release, err := c.openSource(ctx, f, input)
	if err != nil {
		return err
	}
	defer release()

	reference, err := c.referenceOption(f)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	load := func() (pipeline.LayoutResult, error) {
		ds, err := runner.Load(ctx, src)
		if err != nil {
			return pipeline.LayoutResult{}, err
		}
		return runner.ComputeLayout(ctx, ds, pipeline.Options{Reference: reference})
	}

	m := newPreviewModel(src.String(), load)
	final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if err != nil {
		return err
	}
	if pm, ok := final.(previewModel); ok && pm.err != nil {
		return pm.err
	}
	return nil
}

// =============================================================================
// previewModel - Interactive terminal raster
// =============================================================================

// groupLine is the on-screen drawable for one group.
type groupLine struct {
	label raster.Label
	style lipgloss.Style
	ticks int
}

type layoutMsg struct {
	result pipeline.LayoutResult
	err    error
}

type previewModel struct {
	title string
	load  func() (pipeline.LayoutResult, error)

	result pipeline.LayoutResult
	lines  []groupLine
	loaded bool
	err    error

	width  int
	height int
	offset int
	zoom   float64
	pan    float64
}

func newPreviewModel(title string, load func() (pipeline.LayoutResult, error)) previewModel {
	return previewModel{
		title:  title,
		load:   load,
		width:  80,
		height: 24,
		zoom:   1,
	}
}

func (m previewModel) reload() tea.Msg {
	res, err := m.load()
	return layoutMsg{result: res, err: err}
}

func (m previewModel) Init() tea.Cmd {
	return m.reload
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case layoutMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, tea.Quit
		}
		m.apply(msg.result)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
		case "down", "j":
			if m.offset < len(m.result.Layout.CategoryOrder)-m.visibleRows() {
				m.offset++
			}
		case "+", "=":
			m.zoom = math.Min(m.zoom*2, maxZoom)
			m.clampPan()
		case "-":
			m.zoom = math.Max(m.zoom/2, 1)
			m.clampPan()
		case "left", "h":
			m.pan -= panStep / m.zoom
			m.clampPan()
		case "right", "l":
			m.pan += panStep / m.zoom
			m.clampPan()
		case "r":
			return m, m.reload
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	}
	return m, nil
}

// apply installs a new layout, reconciling the group drawables against the
// previous ones.
func (m *previewModel) apply(res pipeline.LayoutResult) {
	prev := make([]raster.Label, len(m.lines))
	for i, gl := range m.lines {
		prev[i] = gl.label
	}
	for _, a := range raster.Reconcile(prev, res.Layout.GroupOrder) {
		switch a.Op {
		case raster.OpReuse:
			m.lines[a.Index].label = a.Label
		case raster.OpCreate:
			m.lines = append(m.lines, groupLine{label: a.Label, style: groupStyle(a.Index)})
		case raster.OpDelete:
			m.lines = m.lines[:a.Index]
		}
	}
	for i := range m.lines {
		m.lines[i].ticks = res.Layout.Groups[i].Ticks()
	}

	m.result = res
	m.loaded = true
	if m.offset > len(res.Layout.CategoryOrder)-1 {
		m.offset = max(len(res.Layout.CategoryOrder)-1, 0)
	}
}

func (m *previewModel) clampPan() {
	m.pan = math.Max(0, math.Min(m.pan, 1-1/m.zoom))
}

// visibleRows is the number of raster rows that fit below the header and
// above the axis and legend.
func (m previewModel) visibleRows() int {
	return max(m.height-7, 1)
}

func (m previewModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(StyleDim.Render("↑/↓ rows  +/- zoom  ←/→ pan  r reload  q quit"))
	b.WriteString("\n\n")

	if !m.loaded {
		b.WriteString(StyleDim.Render("Loading..."))
		return b.String()
	}

	if m.result.Suppressed {
		b.WriteString(StyleWarning.Render("Chart hidden: the dataset failed validation"))
		b.WriteString("\n")
		for _, d := range m.result.Diagnostics {
			b.WriteString(fmt.Sprintf("  %s %s\n", styleIconWarning.Render(iconWarning), d.Message))
		}
		return b.String()
	}

	l := m.result.Layout
	labels := l.AxisLabels()
	labelWidth := 0
	for _, s := range labels {
		labelWidth = max(labelWidth, lipgloss.Width(s))
	}
	plotWidth := max(m.width-labelWidth-3, minPlotWidth)

	lo, hi := timeSpan(l)
	start, end := viewWindow(lo, hi, m.zoom, m.pan)
	grid := rasterGrid(l, start, end, plotWidth)

	last := min(m.offset+m.visibleRows(), len(grid))
	for r := m.offset; r < last; r++ {
		b.WriteString(StyleDim.Render(fmt.Sprintf("%*s │", labelWidth, labels[r])))
		for _, g := range grid[r] {
			if g < 0 {
				b.WriteString(" ")
				continue
			}
			b.WriteString(m.lines[g].style.Render(tickGlyph))
		}
		b.WriteString("\n")
	}

	startText, endText := formatDuration(start), formatDuration(end)
	gap := max(plotWidth-lipgloss.Width(startText)-lipgloss.Width(endText), 1)
	b.WriteString(strings.Repeat(" ", labelWidth+3))
	b.WriteString(StyleDim.Render(startText + strings.Repeat(" ", gap) + endText))
	b.WriteString("\n\n")

	if l.LegendVisible() {
		parts := make([]string, len(m.lines))
		for i, gl := range m.lines {
			parts[i] = gl.style.Render("■") + " " + fmt.Sprintf("%s (%d)", gl.label, gl.ticks)
		}
		b.WriteString(strings.Join(parts, "  "))
		b.WriteString("\n")
	}
	b.WriteString(StyleDim.Render(fmt.Sprintf("rows %d-%d of %d  zoom %gx", m.offset+1, last, len(grid), m.zoom)))

	return b.String()
}

// =============================================================================
// Grid Helpers
// =============================================================================

// timeSpan returns the earliest and latest tick time of l. An empty layout
// spans zero.
func timeSpan(l raster.Layout) (time.Duration, time.Duration) {
	var lo, hi time.Duration
	first := true
	for _, g := range l.Groups {
		for _, t := range g.X {
			if first || t < lo {
				lo = t
			}
			if first || t > hi {
				hi = t
			}
			first = false
		}
	}
	return lo, hi
}

// viewWindow returns the part of [lo, hi] visible at zoom, starting pan of
// the full span from lo.
func viewWindow(lo, hi time.Duration, zoom, pan float64) (time.Duration, time.Duration) {
	full := float64(hi - lo)
	start := lo + time.Duration(pan*full)
	return start, start + time.Duration(full/zoom)
}

// rasterGrid bins the ticks of l into one cell row per category and width
// columns over [start, end]. Each cell holds the index of the last group
// drawn there, or -1. Ticks on the NaN row or outside the window are skipped.
func rasterGrid(l raster.Layout, start, end time.Duration, width int) [][]int {
	grid := make([][]int, len(l.CategoryOrder))
	for r := range grid {
		grid[r] = make([]int, width)
		for c := range grid[r] {
			grid[r][c] = -1
		}
	}

	span := float64(end - start)
	for gi, g := range l.Groups {
		for k := 0; k+2 < len(g.X); k += 3 {
			mid := (g.Y[k] + g.Y[k+1]) / 2
			if math.IsNaN(mid) {
				continue
			}
			row := int(math.Round(mid)) - 1
			if row < 0 || row >= len(grid) {
				continue
			}
			t := g.X[k]
			if t < start || t > end {
				continue
			}
			col := 0
			if span > 0 {
				col = int(float64(t-start) / span * float64(width-1))
			}
			grid[row][col] = gi
		}
	}
	return grid
}
