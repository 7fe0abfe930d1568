package pipeline

import (
	"context"

	"github.com/matzehuels/spikeraster/pkg/dataset"
)

// Source loads one dataset snapshot.
type Source interface {
	Load(ctx context.Context) (*dataset.Dataset, error)

	// String names the source in logs, e.g. a path or "mongo:<id>".
	String() string
}

// FileSource reads a dataset file, picking the format from its extension.
type FileSource string

// Load implements Source.
func (s FileSource) Load(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dataset.ReadFile(string(s))
}

func (s FileSource) String() string { return string(s) }

// UnitFileSource reads a dataset file, interpreting CSV times in Unit.
type UnitFileSource struct {
	Path string
	Unit dataset.Unit
}

// Load implements Source.
func (s UnitFileSource) Load(ctx context.Context) (*dataset.Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return dataset.ReadFileUnit(s.Path, s.Unit)
}

func (s UnitFileSource) String() string { return s.Path }

// StaticSource returns a dataset that is already in memory.
type StaticSource struct {
	Dataset *dataset.Dataset
}

// Load implements Source.
func (s StaticSource) Load(context.Context) (*dataset.Dataset, error) {
	return s.Dataset, nil
}

func (s StaticSource) String() string {
	if s.Dataset != nil && s.Dataset.Name != "" {
		return s.Dataset.Name
	}
	return "memory"
}
