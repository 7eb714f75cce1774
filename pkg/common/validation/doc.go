// Package validation provides common validation utilities for configuration
// parameters across the taskflow packages.
//
// Every helper returns a *errors.ValidationError so callers can match on
// errors.ErrInvalidConfiguration regardless of which field was rejected.
package validation
