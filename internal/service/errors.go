package service

import (
	"errors"
	"fmt"
)

// ValidationError rejects input before any storage call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var (
	// ErrSessionBusy is returned while another mutating call of the same
	// session is in flight.
	ErrSessionBusy = errors.New("session has an operation in progress")
	// ErrSessionClosed is returned after checkout or abandonment.
	ErrSessionClosed = errors.New("session closed")
	// ErrSessionNotFound is returned when no session is open for the caller.
	ErrSessionNotFound = errors.New("session not found")
	ErrEmptySelection  = errors.New("no seats selected")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrUnknownSeat     = errors.New("seat does not exist for this event")
	ErrSeatUnavailable = errors.New("seat is not available")
	ErrSeatInCart      = errors.New("seat is already in the cart")
)
