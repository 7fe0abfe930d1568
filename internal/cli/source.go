package cli

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/spikeraster/pkg/dataset"
	"github.com/matzehuels/spikeraster/pkg/errors"
	"github.com/matzehuels/spikeraster/pkg/pipeline"
	"github.com/matzehuels/spikeraster/pkg/source/mongo"
)

// mongoPrefix marks a dataset argument as a stored dataset id.
const mongoPrefix = "mongo:"

// sourceFlags selects where a command reads its dataset from.
type sourceFlags struct {
	unit      string
	reference string
	mongoURI  string
	mongoDB   string
	mongoColl string
}

func (f *sourceFlags) registerUnit(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.unit, "unit", "", "time unit of CSV files and --reference: ns, us, ms, s, min")
}

func (f *sourceFlags) registerReference(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.reference, "reference", "", "comma-separated alignment times, one per trial (replaces the dataset's)")
}

func (f *sourceFlags) registerMongo(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mongoURI, "mongo-uri", "", "load the dataset id from this MongoDB server")
	cmd.Flags().StringVar(&f.mongoDB, "mongo-db", "", "MongoDB database")
	cmd.Flags().StringVar(&f.mongoColl, "mongo-collection", "", "MongoDB collection")
}

// resolvedUnit returns the --unit flag, else the configured unit.
func (c *CLI) resolvedUnit(f *sourceFlags) (dataset.Unit, error) {
	if f.unit != "" {
		return dataset.ParseUnit(f.unit)
	}
	return dataset.ParseUnit(c.Config.Render.Unit)
}

// mongoConfig merges the mongo flags over the configuration file.
func (c *CLI) mongoConfig(f *sourceFlags) mongo.Config {
	return mongo.Config{
		URI:        firstNonEmpty(f.mongoURI, c.Config.Mongo.URI),
		Database:   firstNonEmpty(f.mongoDB, c.Config.Mongo.Database),
		Collection: firstNonEmpty(f.mongoColl, c.Config.Mongo.Collection),
	}
}

// openSource resolves arg to a pipeline source. The returned function
// releases any connection the source holds.
//
// arg is a stored dataset id when --mongo-uri is set or arg starts with
// "mongo:"; otherwise it is a file path.
func (c *CLI) openSource(ctx context.Context, f *sourceFlags, arg string) (pipeline.Source, func(), error) {
	unit, err := c.resolvedUnit(f)
	if err != nil {
		return nil, nil, err
	}

	id, isMongo := strings.CutPrefix(arg, mongoPrefix)
	if f.mongoURI != "" {
		isMongo = true
	}
	if !isMongo {
		return pipeline.UnitFileSource{Path: arg, Unit: unit}, func() {}, nil
	}

	cfg := c.mongoConfig(f)
	if cfg.URI == "" {
		return nil, nil, errors.New(errors.ErrCodeInvalidConfig, "no MongoDB uri: pass --mongo-uri or set mongo.uri in the config file")
	}
	store, err := mongo.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		if err := store.Close(context.Background()); err != nil {
			c.Logger.Debug("closing mongo client", "error", err)
		}
	}
	return store.Source(id), release, nil
}

// referenceOption parses --reference in the resolved unit. It returns nil
// when the flag is unset so the dataset's own reference applies.
func (c *CLI) referenceOption(f *sourceFlags) ([]time.Duration, error) {
	if f.reference == "" {
		return nil, nil
	}
	unit, err := c.resolvedUnit(f)
	if err != nil {
		return nil, err
	}
	vals, err := parseReference(f.reference)
	if err != nil {
		return nil, err
	}
	ref, err := unit.Durations(vals)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid --reference")
	}
	return ref, nil
}

// parseReference parses comma-separated finite numbers.
func parseReference(s string) ([]float64, error) {
	out := []float64{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid reference time %q", part)
		}
		out = append(out, v)
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
