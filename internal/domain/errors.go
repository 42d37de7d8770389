package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers absent rooms, bookings and users.
	ErrNotFound = errors.New("not found")

	// ErrInvalidBookingState covers bad dates and unavailable rooms.
	ErrInvalidBookingState = errors.New("invalid booking state")

	// ErrInvalidRoom covers malformed room catalog input.
	ErrInvalidRoom = errors.New("invalid room")

	// ErrReferenceExhausted is returned when reference generation runs out
	// of collision retries.
	ErrReferenceExhausted = errors.New("booking reference generation exhausted")

	// ErrPaymentAlreadyCompleted rejects intent creation for a settled booking.
	ErrPaymentAlreadyCompleted = errors.New("payment already completed")

	// ErrConflict surfaces a persistence-level constraint violation after
	// internal retries are exhausted. Callers may retry.
	ErrConflict = errors.New("persistence conflict")
)

// GatewayError wraps a payment-provider failure so raw transport errors
// never leak to callers.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string { return fmt.Sprintf("payment gateway: %s: %v", e.Op, e.Err) }
func (e *GatewayError) Unwrap() error { return e.Err }
