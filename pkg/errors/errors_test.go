package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeDataLengthMismatch, "trials has %d values, timestamps has %d", 2, 3)

	if err.Code != ErrCodeDataLengthMismatch {
		t.Errorf("Code = %v", err.Code)
	}
	if want := "DATA_LENGTH_MISMATCH: trials has 2 values, timestamps has 3"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrap(t *testing.T) {
	cause := errors.New("unexpected EOF")
	err := Wrap(ErrCodeInvalidDataset, cause, "decode json dataset")

	if want := "INVALID_DATASET: decode json dataset: unexpected EOF"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if errors.Unwrap(err) != cause || !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code Code
		want bool
	}{
		{"matching code", New(ErrCodeInvalidUnit, "x"), ErrCodeInvalidUnit, true},
		{"other code", New(ErrCodeInvalidUnit, "x"), ErrCodeInvalidFormat, false},
		{"outermost code wins", Wrap(ErrCodeInvalidConfig, New(ErrCodeInvalidUnit, "inner"), "render.unit"), ErrCodeInvalidConfig, true},
		{"behind fmt wrapping", fmt.Errorf("load: %w", New(ErrCodeDatasetNotFound, "s1")), ErrCodeDatasetNotFound, true},
		{"plain error", errors.New("plain"), ErrCodeInvalidInput, false},
		{"nil", nil, ErrCodeInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetCode(t *testing.T) {
	tests := []struct {
		err  error
		want Code
	}{
		{New(ErrCodeAlignmentTimesMismatch, "x"), ErrCodeAlignmentTimesMismatch},
		{fmt.Errorf("render: %w", New(ErrCodeUnsupported, "x")), ErrCodeUnsupported},
		{errors.New("plain"), ""},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := GetCode(tt.err); got != tt.want {
			t.Errorf("GetCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(Wrap(ErrCodeFileNotFound, errors.New("no such file"), "dataset spikes.csv")); got != "dataset spikes.csv" {
		t.Errorf("UserMessage(coded) = %q", got)
	}
	if got := UserMessage(errors.New("plain error")); got != "plain error" {
		t.Errorf("UserMessage(plain) = %q", got)
	}
}
