package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSlotType rejects a track/channel combination the grid does
	// not offer, such as a call booking on track A.
	ErrInvalidSlotType = errors.New("sub-slot A is walk-in only")

	// ErrInvalidRequest rejects a malformed booking request before any
	// conflict check runs. Not retriable without fixing the input.
	ErrInvalidRequest = errors.New("invalid booking request")

	ErrBookingNotFound = errors.New("booking not found")
)

// ConflictError reports the first requested cell that is already held by an
// active booking. Recoverable: the caller should refresh availability and
// pick a different cell.
type ConflictError struct {
	Date string
	Cell Cell
	By   *Booking
}

func (e *ConflictError) Error() string {
	if e.Cell.Track != "" {
		return fmt.Sprintf("sub-slot %s at %s on %s is already booked", e.Cell.Track, e.Cell.Time, e.Date)
	}
	return fmt.Sprintf("slot %s on %s is already booked", e.Cell.Time, e.Date)
}
