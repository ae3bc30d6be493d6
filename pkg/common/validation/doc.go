// Package validation provides common validation utilities for configuration
// parameters across the pauseflow library.
//
// Every helper returns a *errors.ValidationError that wraps
// errors.ErrInvalidConfiguration, so callers can test for the invalid-argument
// condition with errors.Is regardless of which check failed.
package validation
