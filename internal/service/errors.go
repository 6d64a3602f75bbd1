package service

import (
	"errors"
	"fmt"
)

// Error kinds.  Every error returned by the service matches exactly one
// of them under errors.Is, which is what the HTTP layer maps to a status.
var (
	ErrValidation  = errors.New("validation error")
	ErrNotFound    = errors.New("not found")
	ErrConflict    = errors.New("conflict")
	ErrPersistence = errors.New("persistence error")
)

// Error is a classified service failure.  Msg is safe to show to
// clients; Err carries the underlying cause for logs only.
type Error struct {
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Kind == ErrPersistence {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind error, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// persistence wraps a store failure.  The public message stays generic.
func persistence(op string, err error) error {
	return &Error{Kind: ErrPersistence, Msg: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

var (
	ErrVehicleRegRequired = newError(ErrValidation, "vehicle_reg_no is required")
	ErrVehicleRegTooLong  = newError(ErrValidation, "vehicle_reg_no must be at most 20 characters")
	ErrTicketRequired     = newError(ErrValidation, "ticket_id is required")
	ErrInvalidStatus      = newError(ErrValidation, "status must be FREE or OUT_OF_SERVICE")
	ErrInvalidPassword    = newError(ErrValidation, "user_password must be 1 to 72 bytes and not blank")

	ErrSlotNotFound    = newError(ErrNotFound, "slot not found")
	ErrUserNotFound    = newError(ErrNotFound, "user not found")
	ErrTicketNotFound  = newError(ErrNotFound, "ticket not found")
	ErrSessionNotFound = newError(ErrNotFound, "parking session not found")

	ErrNoSlotAvailable = newError(ErrConflict, "no free slot available")
	ErrSlotNotFree     = newError(ErrConflict, "slot is not free")
	ErrSlotOccupied    = newError(ErrConflict, "slot is occupied")
	ErrTicketCollision = newError(ErrConflict, "ticket already issued, retry")
	ErrEmailExists     = newError(ErrConflict, "email already exists")
)

// PublicMessage returns the client-facing text for err.
func PublicMessage(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Msg
	}
	return "internal error"
}
