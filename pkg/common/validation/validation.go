// Package validation provides common validation utilities for the chanflow library.
package validation

import (
	"fmt"

	gferrors "github.com/vnykmshr/chanflow/pkg/common/errors"
)

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return gferrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}

// ValidateAtLeast validates that an integer value is >= min.
// Used for sizes that reserve negative sentinels, like channel capacities.
func ValidateAtLeast(module, field string, value, min int) error {
	if value < min {
		return gferrors.NewValidationError(module, field, value, fmt.Sprintf("must be >= %d", min)).
			WithHint(fmt.Sprintf("use %d or a larger value", min))
	}
	return nil
}

// ValidateRange validates that lo <= value <= hi.
func ValidateRange(module, field string, value, lo, hi float64) error {
	if value < lo || value > hi {
		return gferrors.NewValidationError(module, field, value, fmt.Sprintf("must be between %g and %g", lo, hi))
	}
	return nil
}

// ValidateNonEmpty validates that a list has at least one element.
func ValidateNonEmpty[T any](module, field string, values []T) error {
	if len(values) == 0 {
		return gferrors.NewValidationError(module, field, values, "cannot be empty").
			WithHint("provide at least one " + field)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return gferrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}
