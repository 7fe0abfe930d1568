package errors

import (
	"strings"
	"unicode"
)

// maxLabelLength bounds category labels read from datasets.
const maxLabelLength = 256

// ValidateLabel validates a trial or group category label.
// It rejects labels that would break axis ticks or legend entries:
//   - No empty labels
//   - No control characters (newlines, null bytes, ...)
//   - Maximum length of 256 characters
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidDataset, "category label cannot be empty")
	}

	if len(label) > maxLabelLength {
		return New(ErrCodeInvalidDataset, "category label too long (max %d characters)", maxLabelLength)
	}

	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDataset, "category label %q contains control characters", label)
		}
	}

	return nil
}

// ValidateDatasetID validates the identifier of a stored dataset.
// Identifiers end up in cache keys and log lines, so they are kept short and printable.
func ValidateDatasetID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "dataset id cannot be empty")
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "dataset id too long (max 128 characters)")
	}

	for _, r := range id {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidInput, "dataset id contains invalid characters")
		}
	}

	return nil
}

// ValidateCollectionName validates a MongoDB collection name.
//
// Validation rules:
//   - Name cannot be empty
//   - No null bytes or '$'
//   - Cannot use the reserved "system." prefix
func ValidateCollectionName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidConfig, "collection name cannot be empty")
	}

	if strings.ContainsAny(name, "$\x00") {
		return New(ErrCodeInvalidConfig, "collection name contains invalid characters")
	}

	if strings.HasPrefix(name, "system.") {
		return New(ErrCodeInvalidConfig, "collection name cannot use the reserved system. prefix")
	}

	return nil
}

// ValidateMongoURI validates a MongoDB connection string scheme.
func ValidateMongoURI(uri string) error {
	if uri == "" {
		return New(ErrCodeInvalidConfig, "mongo uri cannot be empty")
	}

	if !strings.HasPrefix(uri, "mongodb://") && !strings.HasPrefix(uri, "mongodb+srv://") {
		return New(ErrCodeInvalidConfig, "mongo uri must use mongodb or mongodb+srv scheme")
	}

	return nil
}
