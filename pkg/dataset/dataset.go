package dataset

import (
	"time"

	"github.com/matzehuels/spikeraster/pkg/errors"
	"github.com/matzehuels/spikeraster/pkg/raster"
)

// Dataset is one raster input snapshot together with its source unit.
type Dataset struct {
	Name       string
	Unit       Unit
	Timestamps []time.Duration
	Trials     raster.Categorical
	Groups     raster.Categorical
	Reference  []time.Duration
}

// Input returns the core input for d.
func (d *Dataset) Input() raster.Input {
	return raster.Input{
		Timestamps: d.Timestamps,
		Trials:     d.Trials,
		Groups:     d.Groups,
		Reference:  d.Reference,
	}
}

// Len returns the number of events.
func (d *Dataset) Len() int { return len(d.Timestamps) }

// Document is the serialized form shared by JSON, YAML and MongoDB.
type Document struct {
	Name            string    `json:"name,omitempty" yaml:"name,omitempty" bson:"name,omitempty"`
	Unit            string    `json:"unit,omitempty" yaml:"unit,omitempty" bson:"unit,omitempty"`
	Timestamps      []float64 `json:"timestamps" yaml:"timestamps" bson:"timestamps"`
	Trials          []*string `json:"trials,omitempty" yaml:"trials,omitempty" bson:"trials,omitempty"`
	Groups          []*string `json:"groups,omitempty" yaml:"groups,omitempty" bson:"groups,omitempty"`
	TrialCategories []string  `json:"trial_categories,omitempty" yaml:"trial_categories,omitempty" bson:"trial_categories,omitempty"`
	GroupCategories []string  `json:"group_categories,omitempty" yaml:"group_categories,omitempty" bson:"group_categories,omitempty"`
	Reference       []float64 `json:"reference,omitempty" yaml:"reference,omitempty" bson:"reference,omitempty"`
}

// FromDocument converts a serialized document into a Dataset.
//
// Times must be finite and fit in a time.Duration, and category labels must pass [errors.ValidateLabel].
// Length mismatches are not rejected here; they are reported by the raster
// validator so the caller can hide the chart instead of failing.
func FromDocument(doc Document) (*Dataset, error) {
	unit, err := ParseUnit(doc.Unit)
	if err != nil {
		return nil, err
	}
	timestamps, err := unit.Durations(doc.Timestamps)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "timestamps")
	}
	reference, err := unit.Durations(doc.Reference)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "reference")
	}

	trials, err := toCategorical(doc.Trials, doc.TrialCategories)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "trials")
	}
	groups, err := toCategorical(doc.Groups, doc.GroupCategories)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidDataset, err, "groups")
	}

	return &Dataset{
		Name:       doc.Name,
		Unit:       unit,
		Timestamps: timestamps,
		Trials:     trials,
		Groups:     groups,
		Reference:  reference,
	}, nil
}

// ToDocument converts d into its serialized form.
func ToDocument(d *Dataset) Document {
	unit := d.Unit
	if unit == "" {
		unit = DefaultUnit
	}
	ts := unit.Floats(d.Timestamps)
	if ts == nil {
		ts = []float64{}
	}
	return Document{
		Name:            d.Name,
		Unit:            string(unit),
		Timestamps:      ts,
		Trials:          fromCategorical(d.Trials),
		Groups:          fromCategorical(d.Groups),
		TrialCategories: d.Trials.Categories,
		GroupCategories: d.Groups.Categories,
		Reference:       unit.Floats(d.Reference),
	}
}

func toCategorical(values []*string, categories []string) (raster.Categorical, error) {
	for _, c := range categories {
		if err := errors.ValidateLabel(c); err != nil {
			return raster.Categorical{}, err
		}
	}
	c := raster.Categorical{Categories: categories}
	if len(values) > 0 {
		c.Values = make([]raster.Label, len(values))
	}
	for i, v := range values {
		if v == nil {
			continue
		}
		if err := errors.ValidateLabel(*v); err != nil {
			return raster.Categorical{}, err
		}
		c.Values[i] = raster.Defined(*v)
	}
	return c, nil
}

func fromCategorical(c raster.Categorical) []*string {
	if c.IsEmpty() {
		return nil
	}
	out := make([]*string, len(c.Values))
	for i, v := range c.Values {
		if v.IsDefined() {
			name := v.Name()
			out[i] = &name
		}
	}
	return out
}
