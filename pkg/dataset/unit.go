package dataset

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/matzehuels/spikeraster/pkg/errors"
)

// Unit is the time unit of numeric timestamps in a dataset file.
type Unit string

// Supported units.
const (
	Nanoseconds  Unit = "ns"
	Microseconds Unit = "us"
	Milliseconds Unit = "ms"
	Seconds      Unit = "s"
	Minutes      Unit = "min"
)

// DefaultUnit is used when a document does not name a unit.
const DefaultUnit = Seconds

var unitScale = map[Unit]time.Duration{
	Nanoseconds:  time.Nanosecond,
	Microseconds: time.Microsecond,
	Milliseconds: time.Millisecond,
	Seconds:      time.Second,
	Minutes:      time.Minute,
}

// ParseUnit parses a unit name. The empty string yields DefaultUnit.
func ParseUnit(s string) (Unit, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return DefaultUnit, nil
	case "µs":
		return Microseconds, nil
	case "sec":
		return Seconds, nil
	}
	u := Unit(s)
	if _, ok := unitScale[u]; !ok {
		return "", errors.New(errors.ErrCodeInvalidUnit, "unknown time unit %q (must be one of: ns, us, ms, s, min)", s)
	}
	return u, nil
}

// Scale returns the duration of one unit.
func (u Unit) Scale() time.Duration {
	if d, ok := unitScale[u]; ok {
		return d
	}
	return time.Second
}

// maxScaled is 2^63, the first magnitude a time.Duration cannot hold.
const maxScaled = float64(math.MaxInt64)

// Duration converts a value in this unit to a duration, rounding to the
// nearest nanosecond. Values that are not finite or do not fit in a
// time.Duration (about ±292 years) are rejected.
func (u Unit) Duration(v float64) (time.Duration, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%g is not a finite number", v)
	}
	scaled := math.Round(v * float64(u.Scale()))
	if scaled >= maxScaled || scaled < -maxScaled {
		return 0, fmt.Errorf("%g%s is out of range", v, u)
	}
	return time.Duration(scaled), nil
}

// Float converts a duration to a value in this unit.
func (u Unit) Float(d time.Duration) float64 {
	return float64(d) / float64(u.Scale())
}

// Durations converts a slice of values. The error names the index of the
// first value [Unit.Duration] rejects.
func (u Unit) Durations(vs []float64) ([]time.Duration, error) {
	if vs == nil {
		return nil, nil
	}
	out := make([]time.Duration, len(vs))
	for i, v := range vs {
		d, err := u.Duration(v)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

// Floats converts a slice of durations.
func (u Unit) Floats(ds []time.Duration) []float64 {
	if ds == nil {
		return nil
	}
	out := make([]float64, len(ds))
	for i, d := range ds {
		out[i] = u.Float(d)
	}
	return out
}
