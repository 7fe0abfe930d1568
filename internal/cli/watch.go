package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/errors"
	"github.com/matzehuels/spikeraster/pkg/pipeline"
	"github.com/matzehuels/spikeraster/pkg/raster"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var (
		f        renderFlags
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch [dataset]",
		Short: "Re-render a dataset file whenever it changes",
		Long: `Render a dataset file, then render it again each time it is saved.

Bursts of file events are collapsed into one render after --debounce of
quiet. Errors and malformed snapshots are reported without stopping the
watch; press Ctrl+C to exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.HasPrefix(args[0], mongoPrefix) {
				return errors.New(errors.ErrCodeUnsupported, "watch only supports dataset files")
			}
			opts, err := c.options(cmd, &f)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("debounce") {
				debounce = c.Config.Watch.Debounce.Duration
			}
			return c.runWatch(cmd.Context(), args[0], &f, opts, debounce)
		},
	}

	f.registerCommon(cmd)
	f.registerPlot(cmd)
	cmd.Flags().DurationVar(&debounce, "debounce", 250*time.Millisecond, "quiet period before re-rendering")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, input string, f *renderFlags, opts pipeline.Options, debounce time.Duration) error {
	logger := loggerFromContext(ctx)

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

	var groups []raster.Label
	render := func() {
		result, err := c.renderOnce(ctx, runner, src, input, f, opts)
		if err != nil {
			printError("%s", errors.UserMessage(err))
			return
		}
		if result.Suppressed {
			return
		}
		plan := raster.Reconcile(groups, result.Layout.GroupOrder)
		logger.Debug("group lines", "plan", summarizePlan(plan))
		groups = result.Layout.GroupOrder
	}

	render()
	printInfo("Watching %s (Ctrl+C to stop)", input)

	err = watchFile(ctx, input, debounce, render)
	if err == context.Canceled {
		return nil
	}
	return err
}

// summarizePlan counts reconciliation actions, e.g. "2 reuse, 1 create".
func summarizePlan(plan []raster.DrawableAction) string {
	var counts [3]int
	for _, a := range plan {
		counts[a.Op]++
	}
	var parts []string
	for op, n := range counts {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, raster.DrawableOp(op)))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

// watchFile calls onChange after path is written, created or renamed into
// place and no further event arrived for debounce. It watches the parent
// directory so editors that replace the file are followed. It returns
// ctx.Err() once ctx is done.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != target {
				continue
			}
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", path, err)

		case <-timer.C:
			onChange()
		}
	}
}
