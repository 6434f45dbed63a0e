package schedule

import (
	"context"

	"github.com/google/uuid"
)

// Store contains all booking persistence the coordinator needs. The
// ActiveBookings read made inside the day lock must reflect the latest
// committed state, never a cached snapshot.
type Store interface {
	// ActiveBookings returns the date's bookings that still occupy grid
	// capacity (status scheduled or rescheduled).
	ActiveBookings(ctx context.Context, date string) ([]Booking, error)
	BookingsByDate(ctx context.Context, date string) ([]Booking, error)
	BookingByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// CreateBookings persists all rows of one request atomically; on error
	// none of them exist.
	CreateBookings(ctx context.Context, bookings []Booking) error

	// UpdateBookingSlot rewrites a booking's grid placement in place,
	// keeping its id.
	UpdateBookingSlot(ctx context.Context, b *Booking) error

	// UpdateBookingStatus transitions only if the current status matches
	// from, so racing status writers cannot clobber each other.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error)

	DeleteBooking(ctx context.Context, id uuid.UUID) error

	// FindOverdueActive returns active bookings whose slot lies before the
	// given date, or on it at or before the given clock time.
	FindOverdueActive(ctx context.Context, date, clock string) ([]Booking, error)
}

// PatientLog is the slice of the patient registry the coordinator writes
// back to when a visit completes.
type PatientLog interface {
	MarkReturning(ctx context.Context, patientID uuid.UUID, visitDate string) error
}

// ReminderBook creates follow-up reminders. Creation is idempotent on
// (patient, date, type); asking twice yields one reminder.
type ReminderBook interface {
	CreateIfAbsent(ctx context.Context, patientID uuid.UUID, date, typ, message string) (bool, error)
}
