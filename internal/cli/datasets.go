package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/errors"
	"github.com/matzehuels/spikeraster/pkg/raster"
	"github.com/matzehuels/spikeraster/pkg/source/mongo"
)

// datasetStore is the part of mongo.Store the datasets commands use.
type datasetStore interface {
	Get(ctx context.Context, id string) (*dataset.Dataset, error)
	Put(ctx context.Context, id string, ds *dataset.Dataset) error
	List(ctx context.Context) ([]string, error)
	Close(ctx context.Context) error
}

// storeOpener connects to a dataset store.
type storeOpener func(ctx context.Context, cfg mongo.Config) (datasetStore, error)

func openMongoStore(ctx context.Context, cfg mongo.Config) (datasetStore, error) {
	store, err := mongo.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// connectStore opens the configured store. The returned function closes it.
func (c *CLI) connectStore(ctx context.Context, f *sourceFlags) (datasetStore, func(), error) {
	cfg := c.mongoConfig(f)
	if cfg.URI == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "no MongoDB uri: pass --mongo-uri or set mongo.uri in the config file")
	}
	open := c.openStore
	if open == nil {
		open = openMongoStore
	}
	store, err := open(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := store.Close(context.Background()); err != nil {
			c.Logger.Debug("closing mongo client", "error", err)
		}
	}
	return store, release, nil
}

// datasetsCommand creates the stored dataset management command.
func (c *CLI) datasetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Manage datasets stored in MongoDB",
		Long: `Upload, download and list recordings kept in MongoDB. Stored datasets are
rendered with a mongo:<id> argument, e.g. spikeraster render mongo:session-3.`,
	}

	cmd.AddCommand(c.datasetsPushCommand())
	cmd.AddCommand(c.datasetsPullCommand())
	cmd.AddCommand(c.datasetsListCommand())

	return cmd
}

// datasetsPushCommand creates the "datasets push" subcommand.
func (c *CLI) datasetsPushCommand() *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "push <file> [id]",
		Short: "Store a dataset file (id defaults to the file name)",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := c.resolvedUnit(&src)
			if err != nil {
				return err
			}
			ds, err := dataset.ReadFileUnit(args[0], unit)
			if err != nil {
				return err
			}
			id := ds.Name
			if len(args) == 2 {
				id = args[1]
			}
			if err := errors.ValidateDatasetID(id); err != nil {
				return err
			}

			store, release, err := c.connectStore(cmd.Context(), &src)
			if err != nil {
				return err
			}
			defer release()

			if err := store.Put(cmd.Context(), id, ds); err != nil {
				return fmt.Errorf("store dataset %q: %w", id, err)
			}
			loggerFromContext(cmd.Context()).Debug("stored dataset", "id", id, "events", ds.Len())

			printSuccess("Stored %s as %s%s", plural(ds.Len(), "event"), mongoPrefix, id)
			if v := raster.Validate(ds.Timestamps, ds.Trials, ds.Groups, ds.Reference); !v.OK {
				printDiagnostics(v.Diagnostics)
			}
			return nil
		},
	}
	src.registerUnit(cmd)
	src.registerMongo(cmd)
	return cmd
}

// datasetsPullCommand creates the "datasets pull" subcommand.
func (c *CLI) datasetsPullCommand() *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "pull <id> <file>",
		Short: "Write a stored dataset to a json, yaml or csv file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := dataset.FormatForPath(args[1]); err != nil {
				return err
			}

			store, release, err := c.connectStore(cmd.Context(), &src)
			if err != nil {
				return err
			}
			defer release()

			ds, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := dataset.WriteFile(args[1], ds); err != nil {
				return fmt.Errorf("write dataset: %w", err)
			}

			printSuccess("Wrote %s", plural(ds.Len(), "event"))
			printFile(args[1])
			return nil
		},
	}
	src.registerMongo(cmd)
	return cmd
}

// datasetsListCommand creates the "datasets list" subcommand.
func (c *CLI) datasetsListCommand() *cobra.Command {
	var src sourceFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the ids of stored datasets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := c.connectStore(cmd.Context(), &src)
			if err != nil {
				return err
			}
			defer release()

			ids, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				printInfo("No stored datasets")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	src.registerMongo(cmd)
	return cmd
}
