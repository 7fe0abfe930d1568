package raster

import (
	"fmt"

	"github.com/matzehuels/spikeraster/pkg/errors"
)

// Diagnostic kinds reported by Validate and Align.
const (
	// DataLengthMismatch means trials or groups do not have one value per
	// timestamp. The chart must be hidden until the data is corrected.
	DataLengthMismatch = errors.ErrCodeDataLengthMismatch

	// AlignmentTimesMismatch means the reference has more than one entry but
	// fewer entries than trial categories. Alignment is skipped.
	AlignmentTimesMismatch = errors.ErrCodeAlignmentTimesMismatch
)

// Diagnostic is a warning produced while checking or aligning a dataset.
type Diagnostic struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
	Fatal   bool        `json:"fatal"`
}

// String returns "CODE: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

// Err converts the diagnostic into a coded error.
func (d Diagnostic) Err() error {
	return errors.New(d.Code, "%s", d.Message)
}

func lengthMismatch(what string, got, want int) Diagnostic {
	return Diagnostic{
		Code:    DataLengthMismatch,
		Message: fmt.Sprintf("%s has %d values, timestamps has %d", what, got, want),
		Fatal:   true,
	}
}

func referenceMismatch(got, categories int) Diagnostic {
	return Diagnostic{
		Code:    AlignmentTimesMismatch,
		Message: fmt.Sprintf("alignment reference has %d values, need 0, 1 or at least %d; alignment skipped", got, categories),
	}
}

// HasFatal reports whether any diagnostic is fatal.
func HasFatal(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Fatal {
			return true
		}
	}
	return false
}
