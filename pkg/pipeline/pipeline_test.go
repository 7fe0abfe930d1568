package pipeline

import (
	"testing"
	"time"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"svg", false},
		{"png", false},
		{"pdf", false},
		{"json", false},
		{"invalid", true},
		{"SVG", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
	}
}

func TestValidateFormats(t *testing.T) {
	if err := ValidateFormats([]string{"svg", "png"}); err != nil {
		t.Errorf("Valid formats should pass: %v", err)
	}

	if err := ValidateFormats([]string{"svg", "invalid"}); err == nil {
		t.Error("Invalid format should fail")
	}

	// Empty slice is valid
	if err := ValidateFormats(nil); err != nil {
		t.Errorf("Empty formats should pass: %v", err)
	}
}

func TestValidateDimension(t *testing.T) {
	tests := []struct {
		v       float64
		wantErr bool
	}{
		{800, false},
		{MaxDimension, false},
		{0, true},
		{-1, true},
		{MaxDimension + 1, true},
	}
	for _, tt := range tests {
		err := ValidateDimension("width", tt.v)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateDimension(%v) error = %v, wantErr %v", tt.v, err, tt.wantErr)
		}
	}
}

func TestSetRenderDefaults(t *testing.T) {
	opts := Options{}
	opts.SetRenderDefaults()

	if len(opts.Formats) != 1 || opts.Formats[0] != FormatSVG {
		t.Errorf("Formats should be [svg], got %v", opts.Formats)
	}
	if opts.Width != DefaultWidth {
		t.Errorf("Width should be %f, got %f", DefaultWidth, opts.Width)
	}
	if opts.Height != DefaultHeight {
		t.Errorf("Height should be %f, got %f", DefaultHeight, opts.Height)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}
}

func TestOptionsValidateAndSetDefaultsIdempotent(t *testing.T) {
	opts := Options{Formats: []string{"png"}, Width: 320}

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("First validation failed: %v", err)
	}
	width, height := opts.Width, opts.Height

	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("Second validation failed: %v", err)
	}
	if opts.Width != width || opts.Height != height {
		t.Error("dimensions changed on second call")
	}
	if opts.Width != 320 {
		t.Errorf("explicit width overwritten: %v", opts.Width)
	}
}

func TestOptionsValidateRejectsBadValues(t *testing.T) {
	opts := Options{Formats: []string{"gif"}}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("unknown format should fail")
	}

	opts = Options{Height: -10}
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Error("negative height should fail")
	}
}

func TestArtifactKeyOpts(t *testing.T) {
	a := Options{Width: 100, Height: 100}
	b := Options{Width: 200, Height: 100}

	if a.ArtifactKeyOpts(FormatSVG) == b.ArtifactKeyOpts(FormatSVG) {
		t.Error("size should change the svg key")
	}
	if a.ArtifactKeyOpts(FormatJSON) != b.ArtifactKeyOpts(FormatJSON) {
		t.Error("size should not change the json key")
	}
}

func TestLayoutKeyOpts(t *testing.T) {
	opts := Options{}
	ref := []time.Duration{time.Second}
	if got := opts.LayoutKeyOpts(ref); len(got.Reference) != 1 {
		t.Errorf("LayoutKeyOpts should carry the reference, got %v", got)
	}
}
