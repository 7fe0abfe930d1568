package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/raster"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var src sourceFlags

	cmd := &cobra.Command{
		Use:   "validate [dataset]",
		Short: "Check that a dataset can be drawn",
		Long: `Check that trial and group labels line up with the timestamps and that the
alignment reference fits the trial categories.

Exits non-zero when the chart would be hidden. Reference mismatches are
reported as warnings; the chart is then drawn without alignment.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context(), args[0], &src)
		},
	}

	src.registerUnit(cmd)
	src.registerReference(cmd)
	src.registerMongo(cmd)

	return cmd
}

func (c *CLI) runValidate(ctx context.Context, input string, f *sourceFlags) error {
	ds, err := c.loadDataset(ctx, f, input)
	if err != nil {
		return err
	}

	res := raster.Compute(ds.Input())
	printKeyValue("dataset", ds.Name)
	printKeyValue("events", fmt.Sprint(ds.Len()))
	printKeyValue("trials", describeCategorical(ds.Trials))
	printKeyValue("groups", describeCategorical(ds.Groups))
	printKeyValue("reference", fmt.Sprint(len(ds.Reference)))
	printNewline()

	printDiagnostics(res.Diagnostics)
	if res.Suppressed {
		printError("%s cannot be drawn", ds.Name)
		return firstFatalErr(res.Diagnostics)
	}
	printSuccess("%s is valid (%s)", ds.Name, plural(len(res.Layout.CategoryOrder), "row"))
	return nil
}

// loadDataset opens input and applies --reference.
func (c *CLI) loadDataset(ctx context.Context, f *sourceFlags, input string) (*dataset.Dataset, error) {
	src, release, err := c.openSource(ctx, f, input)
	if err != nil {
		return nil, err
	}
	defer release()

	ds, err := src.Load(ctx)
	if err != nil {
		return nil, err
	}
	ref, err := c.referenceOption(f)
	if err != nil {
		return nil, err
	}
	if ref != nil {
		ds.Reference = ref
	}
	return ds, nil
}

func describeCategorical(cat raster.Categorical) string {
	if cat.IsEmpty() {
		return "none"
	}
	set := raster.NewCategorySet(cat)
	s := fmt.Sprintf("%d values, %s", cat.Len(), plural(set.Len(), "category"))
	if cat.HasUndefined() {
		s += ", some missing"
	}
	return s
}
