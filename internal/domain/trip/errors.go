package trip

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a trip id does not exist in the store.
	ErrNotFound = errors.New("trip not found")

	// ErrInvalidTransition is returned when a lifecycle move is not on a
	// legal edge of the status machine (including any move out of a
	// terminal status).
	ErrInvalidTransition = errors.New("invalid trip status transition")

	// ErrAlreadyAccepted is returned when a driver tries to accept a trip
	// that another driver already won.
	ErrAlreadyAccepted = errors.New("trip already accepted by another driver")
)

// ValidationError describes a rejected input field. It carries the field name
// so HTTP handlers can surface it without parsing the message.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Invalid builds a ValidationError for a field.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
