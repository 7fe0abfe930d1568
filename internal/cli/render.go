package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/pipeline"
)

// renderFlags are shared by render, watch and layout.
type renderFlags struct {
	source  sourceFlags
	formats string
	output  string
	noCache bool
	strict  bool

	width  float64
	height float64
	title  string
	xlabel string
	ylabel string
	grid   bool
}

func (f *renderFlags) registerCommon(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (single format) or base path (multiple)")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "fail when the dataset is malformed instead of hiding the chart")
	f.source.registerUnit(cmd)
	f.source.registerReference(cmd)
}

func (f *renderFlags) registerPlot(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output format(s): svg, png, pdf, json (comma-separated)")
	cmd.Flags().Float64Var(&f.width, "width", 0, "image width")
	cmd.Flags().Float64Var(&f.height, "height", 0, "image height")
	cmd.Flags().StringVar(&f.title, "title", "", "plot title")
	cmd.Flags().StringVar(&f.xlabel, "xlabel", "", "x axis label")
	cmd.Flags().StringVar(&f.ylabel, "ylabel", "", "y axis label")
	cmd.Flags().BoolVar(&f.grid, "grid", false, "draw grid lines")
}

// options layers the command flags over the configured render defaults.
func (c *CLI) options(cmd *cobra.Command, f *renderFlags) (pipeline.Options, error) {
	opts := c.Config.PipelineOptions()
	flags := cmd.Flags()

	if flags.Changed("format") {
		opts.Formats = parseFormats(f.formats)
	}
	if flags.Changed("width") {
		opts.Width = f.width
	}
	if flags.Changed("height") {
		opts.Height = f.height
	}
	if flags.Changed("title") {
		opts.Title = f.title
	}
	if flags.Changed("xlabel") {
		opts.XLabel = f.xlabel
	}
	if flags.Changed("ylabel") {
		opts.YLabel = f.ylabel
	}
	if flags.Changed("grid") {
		opts.Grid = f.grid
	}
	opts.Strict = f.strict
	opts.Logger = c.Logger

	ref, err := c.referenceOption(&f.source)
	if err != nil {
		return opts, err
	}
	opts.Reference = ref

	if err := opts.ValidateAndSetDefaults(); err != nil {
		return opts, err
	}
	return opts, nil
}

// renderCommand creates the render command.
func (c *CLI) renderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render [dataset]",
		Short: "Render a raster plot to SVG, PNG, PDF or JSON",
		Long: `Render a raster plot from a dataset file (JSON, YAML or CSV) or a stored dataset.

Each trial becomes a row, each event a vertical tick, each group a colour.
A dataset whose trial or group labels do not line up with its timestamps is
reported and no chart is written; pass --strict to turn that into an error.

Results are cached; pass --no-cache to recompute.`,
		Example: `  spikeraster render spikes.csv --unit ms
  spikeraster render session.json -f svg,png -o out/session --title "Session 3"
  spikeraster render mongo:session-3 --mongo-uri mongodb://localhost:27017`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := c.options(cmd, &f)
			if err != nil {
				return err
			}
			return c.runRender(cmd.Context(), args[0], &f, opts)
		},
	}

	f.registerCommon(cmd)
	f.registerPlot(cmd)
	f.source.registerMongo(cmd)

	return cmd
}

// runRender executes the pipeline once and writes its artifacts.
func (c *CLI) runRender(ctx context.Context, input string, f *renderFlags, opts pipeline.Options) error {
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

	_, err = c.renderOnce(ctx, runner, src, input, f, opts)
	return err
}

// renderOnce runs the pipeline for src, writes the artifacts and prints a
// summary. A suppressed result is reported and yields no files.
func (c *CLI) renderOnce(ctx context.Context, runner *pipeline.Runner, src pipeline.Source, input string, f *renderFlags, opts pipeline.Options) (*pipeline.Result, error) {
	prog := newProgress(loggerFromContext(ctx))

	spinner := newSpinnerWithContext(ctx, fmt.Sprintf("Rendering %s...", src))
	spinner.Start()

	result, err := runner.Execute(ctx, src, opts)
	if err != nil {
		spinner.StopWithError("Render failed")
		return nil, err
	}
	spinner.Stop()

	if result.Suppressed {
		printDiagnostics(result.Diagnostics)
		printInfo("No chart written for %s", src)
		return result, nil
	}

	paths, err := writeArtifacts(artifactWriteParams{
		artifacts: result.Artifacts,
		formats:   opts.Formats,
		input:     input,
		output:    f.output,
	})
	if err != nil {
		return nil, err
	}

	printSuccess("Rendered %s", src)
	for _, p := range paths {
		printFile(p)
	}
	printStats(result.Stats.Rows, result.Stats.Groups, result.Layout.Ticks(),
		result.CacheInfo.LayoutHit && result.CacheInfo.RenderHit)
	printDiagnostics(result.Diagnostics)
	prog.done(fmt.Sprintf("Rendered %d file(s)", len(paths)))

	return result, nil
}
