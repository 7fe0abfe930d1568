package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/internal/server"
	"github.com/matzehuels/spikeraster/pkg/config"
	"github.com/matzehuels/spikeraster/pkg/observability"
	"github.com/matzehuels/spikeraster/pkg/pipeline"
	"github.com/matzehuels/spikeraster/pkg/source/mongo"
)

type serveFlags struct {
	source       sourceFlags
	addr         string
	maxBodyBytes int64
	timeout      time.Duration
	noCache      bool
}

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var f serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layout and render requests over HTTP",
		Long: `Start an HTTP server that lays out and renders posted datasets.

Datasets stored in MongoDB are served under /v1/datasets/{id} when a
MongoDB uri is configured (--mongo-uri or mongo.uri in the config file).`,
		Example: `  spikeraster serve --addr :8080
  curl -H 'Content-Type: text/csv' --data-binary @spikes.csv localhost:8080/v1/render/svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), cmd, &f)
		},
	}

	cmd.Flags().StringVar(&f.addr, "addr", "", "listen address (default from config, "+config.Default().Serve.Addr+")")
	cmd.Flags().Int64Var(&f.maxBodyBytes, "max-body-bytes", 0, "largest accepted request body")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "per-request timeout")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable caching")
	f.source.registerMongo(cmd)

	return cmd
}

// serverConfig layers changed flags over the configuration file.
func (c *CLI) serverConfig(cmd *cobra.Command, f *serveFlags) server.Config {
	cfg := server.Config{
		Addr:         c.Config.Serve.Addr,
		MaxBodyBytes: c.Config.Serve.MaxBodyBytes,
		Timeout:      c.Config.Serve.Timeout.Duration,
	}
	if cmd.Flags().Changed("addr") {
		cfg.Addr = f.addr
	}
	if cmd.Flags().Changed("max-body-bytes") {
		cfg.MaxBodyBytes = f.maxBodyBytes
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = f.timeout
	}
	return cfg
}

func (c *CLI) runServe(ctx context.Context, cmd *cobra.Command, f *serveFlags) error {
	hooks := observability.NewLogHooks(c.Logger)
	observability.SetPipelineHooks(hooks)
	observability.SetServerHooks(hooks)

	runner, err := c.newRunner(ctx, f.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	cfg := c.serverConfig(cmd, f)

	if mc := c.mongoConfig(&f.source); mc.URI != "" {
		store, err := mongo.Connect(ctx, mc)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				c.Logger.Debug("closing mongo client", "error", err)
			}
		}()
		cfg.Sources = func(id string) pipeline.Source { return store.Source(id) }
		cfg.List = store.List
	}

	srv := server.New(runner, c.Logger, cfg)
	printInfo("Listening on http://%s", srv.Addr())
	return srv.Start(ctx)
}
