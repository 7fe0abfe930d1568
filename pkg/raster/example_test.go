package raster_test

import (
	"fmt"
	"time"

	"github.com/matzehuels/spikeraster/pkg/raster"
)

func ExampleCompute() {
	res := raster.Compute(raster.Input{
		Timestamps: []time.Duration{2 * time.Second, 5 * time.Second, 8 * time.Second},
		Trials:     raster.NewCategorical("A", "A", "B"),
		Groups:     raster.NewCategorical("x", "y", "x"),
		Reference:  []time.Duration{1 * time.Second, 3 * time.Second},
	})

	fmt.Println("rows:", res.Layout.AxisLabels())
	fmt.Println("legend:", res.Layout.LegendLabels())
	for _, g := range res.Layout.Groups {
		fmt.Printf("%s: %d ticks, first at %v\n", g.Label, g.Ticks(), g.X[0])
	}
	// Output:
	// rows: [A B]
	// legend: [x y]
	// x: 2 ticks, first at 1s
	// y: 1 ticks, first at 4s
}

func ExampleAlign() {
	ts := []time.Duration{1500 * time.Millisecond, 2500 * time.Millisecond}

	aligned, diags := raster.Align(ts, raster.Categorical{}, []time.Duration{time.Second})
	fmt.Println(aligned, len(diags))
	// Output:
	// [500ms 1.5s] 0
}

func ExampleValidate() {
	v := raster.Validate(
		[]time.Duration{time.Second, 2 * time.Second},
		raster.NewCategorical("a"),
		raster.Categorical{},
		nil,
	)
	fmt.Println(v.OK)
	for _, d := range v.Diagnostics {
		fmt.Println(d)
	}
	// Output:
	// false
	// DATA_LENGTH_MISMATCH: trials has 1 values, timestamps has 2
}

func ExampleReconcile() {
	prev := []raster.Label{raster.Undefined}
	next := raster.Labels("left", "right")

	for _, a := range raster.Reconcile(prev, next) {
		fmt.Println(a.Op, a.Index, a.Label)
	}
	// Output:
	// reuse 0 left
	// create 1 right
}
