package sink

import (
	"image/color"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/matzehuels/spikeraster/pkg/raster"
)

// Ticks is a gonum plotter that strokes one raster group.
//
// X and Y form a polyline broken at every NaN, so each event is an
// independent vertical segment. plotter.XYs rejects NaN values, which is why
// the coordinates are kept as plain slices.
type Ticks struct {
	X, Y []float64
	draw.LineStyle
}

// NewTicks converts a group buffer into a plotter. Times are in seconds.
func NewTicks(g raster.GroupBuffer, c color.Color) *Ticks {
	t := &Ticks{
		X:         make([]float64, len(g.X)),
		Y:         make([]float64, len(g.Y)),
		LineStyle: plotter.DefaultLineStyle,
	}
	for i, x := range g.X {
		t.X[i] = x.Seconds()
	}
	copy(t.Y, g.Y)
	t.LineStyle.Color = c
	return t
}

// Plot implements plot.Plotter.
func (t *Ticks) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	var line []vg.Point
	flush := func() {
		if len(line) > 1 {
			c.StrokeLines(t.LineStyle, c.ClipLinesXY(line)...)
		}
		line = line[:0]
	}
	for i := range t.X {
		if !finite(t.X[i]) || !finite(t.Y[i]) {
			flush()
			continue
		}
		line = append(line, vg.Point{X: trX(t.X[i]), Y: trY(t.Y[i])})
	}
	flush()
}

// DataRange implements plot.DataRanger, ignoring NaN points. An empty
// plotter reports an inverted infinite range so it does not widen the axes.
func (t *Ticks) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, ymin = math.Inf(1), math.Inf(1)
	xmax, ymax = math.Inf(-1), math.Inf(-1)
	for i := range t.X {
		if !finite(t.X[i]) || !finite(t.Y[i]) {
			continue
		}
		xmin = math.Min(xmin, t.X[i])
		xmax = math.Max(xmax, t.X[i])
		ymin = math.Min(ymin, t.Y[i])
		ymax = math.Max(ymax, t.Y[i])
	}
	return xmin, xmax, ymin, ymax
}

// Thumbnail implements plot.Thumbnailer with a short vertical tick.
func (t *Ticks) Thumbnail(c *draw.Canvas) {
	x := c.Center().X
	c.StrokeLine2(t.LineStyle, x, c.Min.Y, x, c.Max.Y)
}

// Len returns the number of events drawn.
func (t *Ticks) Len() int {
	n := 0
	for i := 0; i+1 < len(t.Y); i += 3 {
		if finite(t.Y[i]) && finite(t.Y[i+1]) {
			n++
		}
	}
	return n
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
