package sink

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"gonum.org/v1/plot"

	"github.com/matzehuels/spikeraster/pkg/raster"
)

func TestTicksDataRangeSkipsNaN(t *testing.T) {
	tk := &Ticks{
		X: []float64{1, 1, 1, 3, 3, 3},
		Y: []float64{0.5, 1.5, math.NaN(), math.NaN(), math.NaN(), math.NaN()},
	}
	xmin, xmax, ymin, ymax := tk.DataRange()
	if xmin != 1 || xmax != 1 || ymin != 0.5 || ymax != 1.5 {
		t.Errorf("DataRange() = %v %v %v %v", xmin, xmax, ymin, ymax)
	}
	if tk.Len() != 1 {
		t.Errorf("Len() = %d, want 1", tk.Len())
	}
}

func TestTicksDataRangeEmpty(t *testing.T) {
	xmin, xmax, _, _ := (&Ticks{}).DataRange()
	if !math.IsInf(xmin, 1) || !math.IsInf(xmax, -1) {
		t.Errorf("empty DataRange() = %v %v, want +Inf -Inf", xmin, xmax)
	}
}

func TestNewPlotAxes(t *testing.T) {
	p := NewPlot(sampleLayout(), WithTitle("demo"), WithYLabel("trial"))

	if p.Title.Text != "demo" {
		t.Errorf("title = %q", p.Title.Text)
	}
	if p.Y.Min != 0.5 || p.Y.Max != 2.5 {
		t.Errorf("y range = [%v, %v], want [0.5, 2.5]", p.Y.Min, p.Y.Max)
	}
	if p.X.Min != 2 || p.X.Max != 8 {
		t.Errorf("x range = [%v, %v], want [2, 8]", p.X.Min, p.X.Max)
	}
	if _, ok := p.Y.Scale.(plot.InvertedScale); !ok {
		t.Errorf("y scale should be inverted so the first row is on top")
	}

	ticks := p.Y.Tick.Marker.Ticks(p.Y.Min, p.Y.Max)
	if len(ticks) != 2 || ticks[0].Label != "A" || ticks[1].Label != "B" {
		t.Errorf("y ticks = %v", ticks)
	}
}

func TestNewPlotEmptyLayout(t *testing.T) {
	l := raster.BuildLayout(nil, raster.Categorical{}, raster.Categorical{})
	p := NewPlot(l)
	if p.X.Min != 0 || p.X.Max != 1 {
		t.Errorf("empty x range = [%v, %v], want [0, 1]", p.X.Min, p.X.Max)
	}
	if p.Y.Max != 1.5 {
		t.Errorf("placeholder row missing, y max = %v", p.Y.Max)
	}
}

func TestRenderFormats(t *testing.T) {
	l := sampleLayout()
	tests := []struct {
		name   string
		render func(raster.Layout, ...PlotOption) ([]byte, error)
		magic  []byte
	}{
		{"svg", RenderSVG, []byte("<svg")},
		{"png", RenderPNG, []byte("\x89PNG")},
		{"pdf", RenderPDF, []byte("%PDF")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := tt.render(l, WithSize(300, 200))
			if err != nil {
				t.Fatalf("render error: %v", err)
			}
			if !bytes.Contains(data[:min(len(data), 512)], tt.magic) {
				t.Errorf("output header does not contain %q", tt.magic)
			}
		})
	}
}

func TestRenderSVGLegend(t *testing.T) {
	withLegend, err := RenderSVG(sampleLayout(), WithSize(300, 200))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(withLegend), raster.UndefinedText) && !strings.Contains(string(withLegend), "&lt;undefined&gt;") {
		t.Error("legend should list the undefined group")
	}

	l := raster.BuildLayout([]time.Duration{time.Second}, raster.NewCategorical("A"), raster.Categorical{})
	noLegend, err := RenderSVG(l, WithSize(300, 200))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(noLegend), "undefined") {
		t.Error("legend should be hidden when only the undefined group exists")
	}
}
