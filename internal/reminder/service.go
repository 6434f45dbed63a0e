package reminder

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/verdantclinic/frontdesk/internal/schedule"
)

// Booker is the slice of the booking coordinator the reminder workflow
// feeds requests into. Reminders own no slot logic.
type Booker interface {
	Book(ctx context.Context, req schedule.BookingRequest) ([]schedule.Booking, error)
}

type Service struct {
	store  Store
	booker Booker
	log    zerolog.Logger
}

func NewService(store Store, booker Booker, log zerolog.Logger) *Service {
	return &Service{
		store:  store,
		booker: booker,
		log:    log.With().Str("component", "reminders").Logger(),
	}
}

// SetBooker wires the booking coordinator in after construction. The
// coordinator and the reminder workflow reference each other, so one side
// has to be attached late.
func (s *Service) SetBooker(b Booker) {
	s.booker = b
}

// Add records a hand-entered reminder.
func (s *Service) Add(ctx context.Context, r *Reminder) error {
	if r.Type != TypeMedicine && r.Type != TypeGeneral {
		return fmt.Errorf("%w: %q", ErrInvalidType, r.Type)
	}
	if err := s.store.Create(ctx, r); err != nil {
		return err
	}
	s.log.Info().Str("patient", r.PatientName).Str("date", r.Date).Msg("reminder added")
	return nil
}

// CreateIfAbsent satisfies the coordinator's follow-up hook. Idempotent on
// (patient, date, type).
func (s *Service) CreateIfAbsent(ctx context.Context, patientID uuid.UUID, date, typ, message string) (bool, error) {
	r := &Reminder{
		PatientID: &patientID,
		Type:      Type(typ),
		Date:      date,
		Message:   message,
		Origin:    "visit_completion",
	}
	return s.store.CreateIfAbsent(ctx, r)
}

// Pending lists all open reminders ordered by date.
func (s *Service) Pending(ctx context.Context) ([]Reminder, error) {
	return s.store.ListByStatus(ctx, StatusPending)
}

// Complete closes a reminder without booking anything.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) error {
	return s.store.UpdateStatus(ctx, id, StatusCompleted)
}

// Remove deletes a reminder outright.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) error {
	return s.store.Delete(ctx, id)
}

// BookFromReminder runs the booking request through the coordinator and,
// when the commit lands, closes the source reminder. A conflict leaves the
// reminder open so staff can pick another slot.
func (s *Service) BookFromReminder(ctx context.Context, id uuid.UUID, req schedule.BookingRequest) ([]schedule.Booking, error) {
	r, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrReminderClosed, id)
	}

	bookings, err := s.booker.Book(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.UpdateStatus(ctx, id, StatusCompleted); err != nil {
		s.log.Warn().Err(err).Str("reminder_id", id.String()).Msg("booked but failed to close reminder")
	}
	return bookings, nil
}
