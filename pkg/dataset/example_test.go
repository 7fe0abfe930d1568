package dataset_test

import (
	"fmt"
	"strings"

	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/raster"
)

func ExampleReadCSV() {
	src := `time,trial
0.2,A
0.5,A
0.8,B
`
	ds, err := dataset.ReadCSV(strings.NewReader(src), dataset.Seconds)
	if err != nil {
		panic(err)
	}
	res := raster.Compute(ds.Input())
	fmt.Println(res.Layout.AxisLabels(), res.Layout.Ticks())
	// Output: [A B] 3
}
