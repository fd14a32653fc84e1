// Package validation provides common validation utilities for configuration
// parameters across the chanflow library.
//
// Every helper returns a *errors.ValidationError that unwraps to
// errors.ErrInvalidConfiguration, so callers can test for either.
package validation
