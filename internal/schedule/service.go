package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/verdantclinic/frontdesk/internal/redis"
)

const reminderTypeMedicine = "medicine"

// Service is the booking transaction coordinator: the single gate every
// booking, reschedule, cancellation and completion passes through. Commit
// and reschedule run their read-check-write cycle under a per-day
// distributed lock, so of two concurrent conflicting requests exactly one
// succeeds and the other gets a ConflictError.
type Service struct {
	store     Store
	locker    redisclient.Locker
	notifier  redisclient.Notifier
	patients  PatientLog
	reminders ReminderBook
	grid      Grid
	log       zerolog.Logger
}

func NewService(store Store, locker redisclient.Locker, notifier redisclient.Notifier, patients PatientLog, reminders ReminderBook, grid Grid, log zerolog.Logger) *Service {
	return &Service{
		store:     store,
		locker:    locker,
		notifier:  notifier,
		patients:  patients,
		reminders: reminders,
		grid:      grid,
		log:       log.With().Str("component", "coordinator").Logger(),
	}
}

// Grid reports the grid variant this coordinator was built for.
func (s *Service) Grid() Grid {
	return s.grid
}

// BookingRequest is a proposed booking. Dual-track requests name one or
// more explicit (time, track) cells; two-window requests name a single
// starting cell and the visit-size policy expands the duration.
type BookingRequest struct {
	Model      GridModel
	Date       string
	Cells      []Cell
	Channel    Channel
	PatientID  uuid.UUID
	FirstVisit bool
	Notes      string
	Origin     string
}

// RescheduleRequest moves an existing booking to a new grid placement.
type RescheduleRequest struct {
	Date    string
	Time    string
	Track   Track
	Channel Channel
	Notes   string
}

func (r BookingRequest) validate(g Grid) error {
	if r.Model != g.Model {
		return fmt.Errorf("%w: request targets the %s grid, clinic day uses %s", ErrInvalidRequest, r.Model, g.Model)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("%w: bad date %q", ErrInvalidRequest, r.Date)
	}
	if r.PatientID == uuid.Nil {
		return fmt.Errorf("%w: patient must be resolved before commit", ErrInvalidRequest)
	}
	if len(r.Cells) == 0 {
		return fmt.Errorf("%w: no cells selected", ErrInvalidRequest)
	}
	if limit := CellLimit(r.Model, r.FirstVisit); len(r.Cells) > limit {
		return fmt.Errorf("%w: at most %d cell(s) per request", ErrInvalidRequest, limit)
	}

	seen := make(map[Cell]bool, len(r.Cells))
	for _, c := range r.Cells {
		if !g.Contains(c.Time) {
			return fmt.Errorf("%w: %s is not on the day grid", ErrInvalidRequest, c.Time)
		}
		if seen[c] {
			return fmt.Errorf("%w: duplicate cell %s/%s", ErrInvalidRequest, c.Time, c.Track)
		}
		seen[c] = true

		switch r.Model {
		case ModelDualTrack:
			if c.Track != TrackA && c.Track != TrackB {
				return fmt.Errorf("%w: sub-slot must be A or B", ErrInvalidRequest)
			}
			if r.Channel != ChannelWalkIn && r.Channel != ChannelCall {
				return fmt.Errorf("%w: channel must be walkin or call", ErrInvalidRequest)
			}
			if c.Track == TrackA && r.Channel != ChannelWalkIn {
				return ErrInvalidSlotType
			}
		case ModelTwoWindow:
			if c.Track != "" {
				return fmt.Errorf("%w: two-window bookings carry no sub-slot", ErrInvalidRequest)
			}
		}
	}
	return nil
}

// claimedCells lists every cell the request will occupy, with two-window
// duration expansion applied.
func (r BookingRequest) claimedCells(g Grid) ([]Cell, error) {
	if r.Model != ModelTwoWindow {
		return r.Cells, nil
	}
	units := UnitsFor(r.Model, r.FirstVisit)
	steps, err := stepsFrom(r.Cells[0].Time, units)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	cells := make([]Cell, 0, len(steps))
	for _, t := range steps {
		if !g.Contains(t) {
			return nil, fmt.Errorf("%w: a %d-unit visit starting %s runs off the day window", ErrInvalidRequest, units, r.Cells[0].Time)
		}
		cells = append(cells, Cell{Time: t})
	}
	return cells, nil
}

func (r BookingRequest) toBookings(now time.Time) []Booking {
	units := 1
	if r.Model == ModelTwoWindow {
		units = UnitsFor(r.Model, r.FirstVisit)
	}

	out := make([]Booking, 0, len(r.Cells))
	for _, c := range r.Cells {
		b := Booking{
			ID:            uuid.New(),
			Date:          r.Date,
			Time:          c.Time,
			Track:         c.Track,
			DurationUnits: units,
			Status:        StatusScheduled,
			PatientID:     r.PatientID,
			FirstVisit:    r.FirstVisit,
			Notes:         r.Notes,
			Origin:        r.Origin,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if r.Model == ModelDualTrack {
			b.Channel = r.Channel
		}
		out = append(out, b)
	}
	return out
}

// Book validates the request, then atomically re-checks the date's current
// occupancy and commits. Nothing is persisted when any requested cell is
// taken.
func (s *Service) Book(ctx context.Context, req BookingRequest) ([]Booking, error) {
	if err := req.validate(s.grid); err != nil {
		return nil, err
	}
	claimed, err := req.claimedCells(s.grid)
	if err != nil {
		return nil, err
	}

	var created []Booking
	err = s.locker.WithDayLock(ctx, req.Date, func(lockCtx context.Context) error {
		// Fresh read at commit time; the grid the caller rendered from
		// may be arbitrarily stale.
		active, err := s.store.ActiveBookings(lockCtx, req.Date)
		if err != nil {
			return fmt.Errorf("load active bookings: %w", err)
		}

		occ := occupiedCells(req.Model, active, uuid.Nil)
		for _, c := range claimed {
			if holder := occ[c]; holder != nil {
				return &ConflictError{Date: req.Date, Cell: c, By: holder}
			}
		}

		created = req.toBookings(time.Now())
		if err := s.store.CreateBookings(lockCtx, created); err != nil {
			return fmt.Errorf("create bookings: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("date", req.Date).
		Int("cells", len(created)).
		Str("patient_id", req.PatientID.String()).
		Msg("booking committed")
	s.notifyChanged(ctx, req.Date)

	return created, nil
}

// Reschedule re-runs the commit algorithm for an existing booking's new
// placement, excluding the booking's own prior occupancy from the conflict
// scan. The record keeps its id; its status becomes rescheduled.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, req RescheduleRequest) (*Booking, error) {
	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Only active bookings can move. A target that was cancelled or
	// completed in the meantime must not be revived into the grid.
	if !b.Status.Active() {
		return nil, fmt.Errorf("%w: booking is %s", ErrBookingNotFound, b.Status)
	}

	if _, err := time.Parse(DateLayout, req.Date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidRequest, req.Date)
	}
	if !s.grid.Contains(req.Time) {
		return nil, fmt.Errorf("%w: %s is not on the day grid", ErrInvalidRequest, req.Time)
	}

	var claimed []Cell
	switch s.grid.Model {
	case ModelDualTrack:
		if req.Track != TrackA && req.Track != TrackB {
			return nil, fmt.Errorf("%w: sub-slot must be A or B", ErrInvalidRequest)
		}
		if req.Channel != ChannelWalkIn && req.Channel != ChannelCall {
			return nil, fmt.Errorf("%w: channel must be walkin or call", ErrInvalidRequest)
		}
		if req.Track == TrackA && req.Channel != ChannelWalkIn {
			return nil, ErrInvalidSlotType
		}
		claimed = []Cell{{Time: req.Time, Track: req.Track}}
	case ModelTwoWindow:
		if req.Track != "" {
			return nil, fmt.Errorf("%w: two-window bookings carry no sub-slot", ErrInvalidRequest)
		}
		steps, err := stepsFrom(req.Time, b.DurationUnits)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		for _, t := range steps {
			if !s.grid.Contains(t) {
				return nil, fmt.Errorf("%w: a %d-unit visit starting %s runs off the day window", ErrInvalidRequest, b.DurationUnits, req.Time)
			}
			claimed = append(claimed, Cell{Time: t})
		}
	}

	oldDate := b.Date
	err = s.locker.WithDayLock(ctx, req.Date, func(lockCtx context.Context) error {
		active, err := s.store.ActiveBookings(lockCtx, req.Date)
		if err != nil {
			return fmt.Errorf("load active bookings: %w", err)
		}

		occ := occupiedCells(s.grid.Model, active, b.ID)
		for _, c := range claimed {
			if holder := occ[c]; holder != nil {
				return &ConflictError{Date: req.Date, Cell: c, By: holder}
			}
		}

		b.Date = req.Date
		b.Time = req.Time
		b.Track = req.Track
		if s.grid.Model == ModelDualTrack {
			b.Channel = req.Channel
		}
		if req.Notes != "" {
			b.Notes = req.Notes
		}
		b.Status = StatusRescheduled
		b.UpdatedAt = time.Now()

		if err := s.store.UpdateBookingSlot(lockCtx, b); err != nil {
			return fmt.Errorf("update booking slot: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("booking_id", id.String()).
		Str("from", oldDate).
		Str("to", req.Date+" "+req.Time).
		Msg("booking rescheduled")
	s.notifyChanged(ctx, req.Date)
	if oldDate != req.Date {
		s.notifyChanged(ctx, oldDate)
	}

	return b, nil
}

// Cancel releases a booking's grid capacity. Freeing a cell can never
// create a conflict, so no lock and no availability re-check.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*Booking, error) {
	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: booking is already cancelled", ErrInvalidRequest)
	}
	if b.Status == StatusCompleted {
		return nil, fmt.Errorf("%w: cannot cancel a completed booking", ErrInvalidRequest)
	}

	updated, err := s.store.UpdateBookingStatus(ctx, id, b.Status, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("cancel booking: %w", err)
	}

	s.log.Info().Str("booking_id", id.String()).Msg("booking cancelled")
	s.notifyChanged(ctx, b.Date)
	return updated, nil
}

// Complete marks the visit done, writes the outcome back to the patient
// record, and, when a next-visit date is supplied, asks for a follow-up
// reminder. Safe to call twice: the status transition is skipped and the
// reminder creation is idempotent, so a double click yields one reminder.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, nextVisit string) (*Booking, error) {
	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == StatusCancelled {
		return nil, fmt.Errorf("%w: cannot complete a cancelled booking", ErrInvalidRequest)
	}
	if nextVisit != "" {
		if _, err := time.Parse(DateLayout, nextVisit); err != nil {
			return nil, fmt.Errorf("%w: bad next visit date %q", ErrInvalidRequest, nextVisit)
		}
	}

	if b.Status != StatusCompleted {
		updated, err := s.store.UpdateBookingStatus(ctx, id, b.Status, StatusCompleted)
		if err != nil {
			return nil, fmt.Errorf("complete booking: %w", err)
		}
		b = updated

		if err := s.patients.MarkReturning(ctx, b.PatientID, b.Date); err != nil {
			s.log.Warn().Err(err).
				Str("patient_id", b.PatientID.String()).
				Msg("failed to write visit back to patient record")
		}
	}

	if nextVisit != "" {
		created, err := s.reminders.CreateIfAbsent(ctx, b.PatientID, nextVisit, reminderTypeMedicine, "Follow-up visit scheduled")
		if err != nil {
			s.log.Warn().Err(err).
				Str("patient_id", b.PatientID.String()).
				Msg("failed to create follow-up reminder")
		} else if created {
			s.log.Info().
				Str("patient_id", b.PatientID.String()).
				Str("date", nextVisit).
				Msg("follow-up reminder created")
		}
	}

	s.notifyChanged(ctx, b.Date)
	return b, nil
}

// Delete removes a booking record outright (explicit staff cleanup).
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	b, err := s.store.BookingByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBooking(ctx, id); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	s.log.Info().Str("booking_id", id.String()).Msg("booking deleted")
	s.notifyChanged(ctx, b.Date)
	return nil
}

// BookingsForDate lists every booking of a day, any status, ordered by time.
func (s *Service) BookingsForDate(ctx context.Context, date string) ([]Booking, error) {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: bad date %q", ErrInvalidRequest, date)
	}
	bookings, err := s.store.BookingsByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return bookings, nil
}

// MarkMissed sweeps active bookings whose slot lies at or before the cutoff
// into the missed state. Called periodically by the worker.
func (s *Service) MarkMissed(ctx context.Context, cutoff time.Time) (int, error) {
	date := cutoff.Format(DateLayout)
	clock := cutoff.Format("15:04")

	overdue, err := s.store.FindOverdueActive(ctx, date, clock)
	if err != nil {
		return 0, fmt.Errorf("find overdue bookings: %w", err)
	}

	marked := 0
	dates := make(map[string]bool)
	for _, b := range overdue {
		if _, err := s.store.UpdateBookingStatus(ctx, b.ID, b.Status, StatusMissed); err != nil {
			s.log.Warn().Err(err).Str("booking_id", b.ID.String()).Msg("failed to mark booking missed")
			continue
		}
		marked++
		dates[b.Date] = true
	}

	for d := range dates {
		s.notifyChanged(ctx, d)
	}
	return marked, nil
}

func (s *Service) notifyChanged(ctx context.Context, date string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.BookingsChanged(ctx, date); err != nil {
		s.log.Warn().Err(err).Str("date", date).Msg("failed to publish booking change")
	}
}
