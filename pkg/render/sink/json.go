package sink

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/matzehuels/spikeraster/pkg/raster"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	title       string
	diagnostics []raster.Diagnostic
	nanos       bool
}

// WithJSONTitle records a chart title in the document.
func WithJSONTitle(s string) JSONOption { return func(r *jsonRenderer) { r.title = s } }

// WithJSONNanoseconds adds an "x_ns" array of integer nanoseconds to every
// group. [DecodeJSON] prefers it over the seconds in "x", so the layout
// survives the round trip exactly.
func WithJSONNanoseconds() JSONOption { return func(r *jsonRenderer) { r.nanos = true } }

// WithJSONDiagnostics includes diagnostics raised while computing the layout.
func WithJSONDiagnostics(d []raster.Diagnostic) JSONOption {
	return func(r *jsonRenderer) { r.diagnostics = d }
}

type jsonOutput struct {
	Title         string              `json:"title,omitempty"`
	CategoryOrder []jsonLabel         `json:"category_order"`
	GroupOrder    []jsonLabel         `json:"group_order"`
	AxisLabels    []string            `json:"axis_labels"`
	LegendLabels  []string            `json:"legend_labels"`
	Legend        bool                `json:"legend"`
	Groups        []jsonGroup         `json:"groups"`
	Diagnostics   []raster.Diagnostic `json:"diagnostics,omitempty"`
}

type jsonGroup struct {
	Label  jsonLabel   `json:"label"`
	X      []jsonFloat `json:"x"`
	XNanos []int64     `json:"x_ns,omitempty"`
	Y      []jsonFloat `json:"y"`
}

// jsonLabel encodes Undefined as null.
type jsonLabel raster.Label

func (l jsonLabel) MarshalJSON() ([]byte, error) {
	rl := raster.Label(l)
	if !rl.IsDefined() {
		return []byte("null"), nil
	}
	return json.Marshal(rl.Name())
}

func (l *jsonLabel) UnmarshalJSON(data []byte) error {
	var name *string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	*l = jsonLabel(raster.Optional(name))
	return nil
}

// jsonFloat encodes NaN as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

func (f *jsonFloat) UnmarshalJSON(data []byte) error {
	var v *float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v == nil {
		*f = jsonFloat(math.NaN())
		return nil
	}
	*f = jsonFloat(*v)
	return nil
}

// RenderJSON exports the layout as a pretty-printed JSON document.
//
// RenderJSON does not modify l and is safe to call concurrently.
func RenderJSON(l raster.Layout, opts ...JSONOption) ([]byte, error) {
	r := jsonRenderer{}
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Title:         r.title,
		CategoryOrder: toJSONLabels(l.CategoryOrder),
		GroupOrder:    toJSONLabels(l.GroupOrder),
		AxisLabels:    l.AxisLabels(),
		LegendLabels:  l.LegendLabels(),
		Legend:        l.LegendVisible(),
		Groups:        make([]jsonGroup, len(l.Groups)),
		Diagnostics:   r.diagnostics,
	}
	for i, g := range l.Groups {
		jg := jsonGroup{
			Label: jsonLabel(g.Label),
			X:     make([]jsonFloat, len(g.X)),
			Y:     make([]jsonFloat, len(g.Y)),
		}
		for j, x := range g.X {
			jg.X[j] = jsonFloat(x.Seconds())
		}
		if r.nanos {
			jg.XNanos = make([]int64, len(g.X))
			for j, x := range g.X {
				jg.XNanos[j] = int64(x)
			}
		}
		for j, y := range g.Y {
			jg.Y[j] = jsonFloat(y)
		}
		out.Groups[i] = jg
	}

	return json.MarshalIndent(out, "", "  ")
}

// DecodeJSON parses a document produced by [RenderJSON]. Times come from
// "x_ns" when present and from the seconds in "x" otherwise.
func DecodeJSON(data []byte) (raster.Layout, []raster.Diagnostic, error) {
	var in jsonOutput
	if err := json.Unmarshal(data, &in); err != nil {
		return raster.Layout{}, nil, fmt.Errorf("decode layout: %w", err)
	}
	if len(in.Groups) != len(in.GroupOrder) {
		return raster.Layout{}, nil, fmt.Errorf("decode layout: %d groups for %d group labels", len(in.Groups), len(in.GroupOrder))
	}

	l := raster.Layout{
		CategoryOrder: fromJSONLabels(in.CategoryOrder),
		GroupOrder:    fromJSONLabels(in.GroupOrder),
		Groups:        make([]raster.GroupBuffer, len(in.Groups)),
	}
	for i, jg := range in.Groups {
		if len(jg.X) != len(jg.Y) {
			return raster.Layout{}, nil, fmt.Errorf("decode layout: group %d has %d x and %d y values", i, len(jg.X), len(jg.Y))
		}
		g := raster.GroupBuffer{
			Label: raster.Label(jg.Label),
			X:     make([]time.Duration, len(jg.X)),
			Y:     make([]float64, len(jg.Y)),
		}
		switch {
		case jg.XNanos != nil:
			if len(jg.XNanos) != len(jg.X) {
				return raster.Layout{}, nil, fmt.Errorf("decode layout: group %d has %d x and %d x_ns values", i, len(jg.X), len(jg.XNanos))
			}
			for j, x := range jg.XNanos {
				g.X[j] = time.Duration(x)
			}
		default:
			for j, x := range jg.X {
				g.X[j] = time.Duration(math.Round(float64(x) * float64(time.Second)))
			}
		}
		for j, y := range jg.Y {
			g.Y[j] = float64(y)
		}
		l.Groups[i] = g
	}
	return l, in.Diagnostics, nil
}

func toJSONLabels(labels []raster.Label) []jsonLabel {
	out := make([]jsonLabel, len(labels))
	for i, l := range labels {
		out[i] = jsonLabel(l)
	}
	return out
}

func fromJSONLabels(labels []jsonLabel) []raster.Label {
	out := make([]raster.Label, len(labels))
	for i, l := range labels {
		out[i] = raster.Label(l)
	}
	return out
}
