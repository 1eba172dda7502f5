package entities

import "errors"

// Error kinds shared across the core. Callers classify failures with
// errors.Is; components wrap these with context via fmt.Errorf and %w so the
// kind survives propagation to the API boundary.
var (
	// ErrValidation marks malformed or empty input.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIntegrity marks structurally inconsistent stored data, such as a
	// comment whose parent is missing from its post. It is never expected
	// from a correctly operating store and fails the request rather than
	// being silently patched.
	ErrIntegrity = errors.New("integrity violation")
)
