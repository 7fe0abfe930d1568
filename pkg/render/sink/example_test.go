package sink_test

import (
	"fmt"
	"time"

	"github.com/matzehuels/spikeraster/pkg/raster"
	"github.com/matzehuels/spikeraster/pkg/render/sink"
)

func ExampleDecodeJSON() {
	l := raster.BuildLayout(
		[]time.Duration{500 * time.Millisecond, 1500 * time.Millisecond},
		raster.NewCategorical("t1", "t2"),
		raster.Categorical{},
	)
	data, _ := sink.RenderJSON(l)
	back, _, err := sink.DecodeJSON(data)
	if err != nil {
		panic(err)
	}
	fmt.Println(back.AxisLabels(), back.LegendVisible(), back.Ticks())
	// Output: [t1 t2] false 2
}
