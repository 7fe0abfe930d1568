package sink

import (
	"bytes"
	"fmt"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/matzehuels/spikeraster/pkg/raster"
)

// Default plot settings.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
	DefaultXLabel = "time (s)"
	DefaultYLabel = "trial"
)

// PlotOption configures SVG, PNG and PDF rendering.
type PlotOption func(*plotRenderer)

type plotRenderer struct {
	width, height float64
	title         string
	xlabel        string
	ylabel        string
	lineWidth     vg.Length
	grid          bool
}

// WithSize sets the canvas size in points (pixels for PNG).
func WithSize(width, height float64) PlotOption {
	return func(r *plotRenderer) {
		if width > 0 {
			r.width = width
		}
		if height > 0 {
			r.height = height
		}
	}
}

// WithTitle sets the chart title.
func WithTitle(s string) PlotOption { return func(r *plotRenderer) { r.title = s } }

// WithXLabel overrides the x-axis label.
func WithXLabel(s string) PlotOption { return func(r *plotRenderer) { r.xlabel = s } }

// WithYLabel overrides the y-axis label.
func WithYLabel(s string) PlotOption { return func(r *plotRenderer) { r.ylabel = s } }

// WithLineWidth sets the tick stroke width.
func WithLineWidth(w vg.Length) PlotOption { return func(r *plotRenderer) { r.lineWidth = w } }

// WithGrid draws vertical grid lines behind the ticks.
func WithGrid() PlotOption { return func(r *plotRenderer) { r.grid = true } }

func newPlotRenderer(opts ...PlotOption) plotRenderer {
	r := plotRenderer{
		width:     DefaultWidth,
		height:    DefaultHeight,
		xlabel:    DefaultXLabel,
		ylabel:    DefaultYLabel,
		lineWidth: vg.Points(1),
	}
	for _, opt := range opts {
		opt(&r)
	}
	return r
}

// NewPlot builds a gonum plot for l. Each group becomes one [Ticks]
// plotter; rows run top to bottom in category order.
func NewPlot(l raster.Layout, opts ...PlotOption) *plot.Plot {
	return newPlotRenderer(opts...).build(l)
}

func (r plotRenderer) build(l raster.Layout) *plot.Plot {
	p := plot.New()
	p.Title.Text = r.title
	p.X.Label.Text = r.xlabel
	p.Y.Label.Text = r.ylabel

	if r.grid {
		grid := plotter.NewGrid()
		grid.Horizontal.Color = nil
		p.Add(grid)
	}

	for i, g := range l.Groups {
		t := NewTicks(g, plotutil.Color(i))
		t.LineStyle.Width = r.lineWidth
		p.Add(t)
		if l.LegendVisible() {
			p.Legend.Add(g.Label.String(), t)
		}
	}
	p.Legend.Top = true

	rows := len(l.CategoryOrder)
	ticks := make([]plot.Tick, rows)
	for i, label := range l.AxisLabels() {
		ticks[i] = plot.Tick{Value: float64(i + 1), Label: label}
	}
	p.Y.Tick.Marker = plot.ConstantTicks(ticks)
	p.Y.Min = 0.5
	p.Y.Max = float64(rows) + 0.5
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	if math.IsInf(p.X.Min, 0) || math.IsInf(p.X.Max, 0) || p.X.Min > p.X.Max {
		p.X.Min, p.X.Max = 0, 1
	}
	return p
}

// render writes the plot in a vg backend format: "svg", "png" or "pdf".
func render(l raster.Layout, format string, opts ...PlotOption) ([]byte, error) {
	r := newPlotRenderer(opts...)
	p := r.build(l)

	w, err := p.WriterTo(vg.Length(r.width), vg.Length(r.height), format)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", format, err)
	}
	return buf.Bytes(), nil
}

// RenderSVG draws l as an SVG document.
func RenderSVG(l raster.Layout, opts ...PlotOption) ([]byte, error) {
	return render(l, "svg", opts...)
}

// RenderPNG draws l as a PNG image.
func RenderPNG(l raster.Layout, opts ...PlotOption) ([]byte, error) {
	return render(l, "png", opts...)
}

// RenderPDF draws l as a single-page PDF.
func RenderPDF(l raster.Layout, opts ...PlotOption) ([]byte, error) {
	return render(l, "pdf", opts...)
}
