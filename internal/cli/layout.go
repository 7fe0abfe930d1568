package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/pipeline"
)

// layoutCommand creates the layout command, which exports the computed
// raster layout as JSON.
func (c *CLI) layoutCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "layout [dataset]",
		Short: "Compute the raster layout and write it as JSON",
		Long: `Compute the raster layout of a dataset and write it as JSON.

The layout lists the trial rows, the groups in legend order and, per group,
the tick polyline (x in seconds, y in row units, null separating ticks).
It is the same document as 'render -f json'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &f)
			if err != nil {
				return err
			}
			opts.Formats = []string{pipeline.FormatJSON}
			return c.runLayout(cmd.Context(), args[0], &f, opts)
		},
	}

	f.registerCommon(cmd)
	f.source.registerMongo(cmd)
	cmd.Flags().StringVar(&f.title, "title", "", "title stored in the layout document")

	return cmd
}

func (c *CLI) runLayout(ctx context.Context, input string, f *renderFlags, opts pipeline.Options) error {
	src, release, err := c.openSource(ctx, &f.source, input)
	if err != nil {
		return err
	}
	defer release()

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	spinner := newSpinnerWithContext(ctx, "Computing layout...")
	spinner.Start()

	result, err := runner.Execute(ctx, src, opts)
	if err != nil {
		spinner.StopWithError("Layout failed")
		return err
	}
	spinner.Stop()

	if result.Suppressed {
		printDiagnostics(result.Diagnostics)
		printInfo("No layout written for %s", src)
		return nil
	}

	outputPath := f.output
	if outputPath == "" {
		outputPath = layoutPath(input)
	}
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(outputPath, result.Artifacts[pipeline.FormatJSON], 0o644); err != nil {
		return fmt.Errorf("write output %s: %w", outputPath, err)
	}

	printSuccess("Layout complete")
	printFile(outputPath)
	printStats(result.Stats.Rows, result.Stats.Groups, result.Layout.Ticks(), result.CacheInfo.LayoutHit)
	printDiagnostics(result.Diagnostics)
	printNewline()
	printNextStep("Render", appName+" render "+input)

	return nil
}

// layoutPath returns <input without extension>.layout.json.
func layoutPath(input string) string {
	if id, ok := strings.CutPrefix(input, mongoPrefix); ok {
		return id + ".layout.json"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".layout.json"
}
