package reminder

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verdantclinic/frontdesk/internal/schedule"
)

type memStore struct {
	reminders map[uuid.UUID]Reminder
}

func newMemStore() *memStore {
	return &memStore{reminders: make(map[uuid.UUID]Reminder)}
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*Reminder, error) {
	r, ok := s.reminders[id]
	if !ok {
		return nil, ErrReminderNotFound
	}
	return &r, nil
}

func (s *memStore) ListByStatus(_ context.Context, status Status) ([]Reminder, error) {
	var out []Reminder
	for _, r := range s.reminders {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memStore) Create(_ context.Context, r *Reminder) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	r.CreatedAt = time.Now()
	s.reminders[r.ID] = *r
	return nil
}

func (s *memStore) CreateIfAbsent(ctx context.Context, r *Reminder) (bool, error) {
	for _, existing := range s.reminders {
		if existing.PatientID != nil && r.PatientID != nil &&
			*existing.PatientID == *r.PatientID &&
			existing.Date == r.Date && existing.Type == r.Type {
			return false, nil
		}
	}
	return true, s.Create(ctx, r)
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, status Status) error {
	r, ok := s.reminders[id]
	if !ok {
		return ErrReminderNotFound
	}
	r.Status = status
	s.reminders[id] = r
	return nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.reminders[id]; !ok {
		return ErrReminderNotFound
	}
	delete(s.reminders, id)
	return nil
}

type bookerStub struct {
	err   error
	calls int
}

func (b *bookerStub) Book(_ context.Context, req schedule.BookingRequest) ([]schedule.Booking, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	return []schedule.Booking{{
		ID:        uuid.New(),
		Date:      req.Date,
		Time:      req.Cells[0].Time,
		Track:     req.Cells[0].Track,
		Status:    schedule.StatusScheduled,
		PatientID: req.PatientID,
	}}, nil
}

func pendingReminder(t *testing.T, svc *Service) *Reminder {
	t.Helper()
	r := &Reminder{
		PatientName: "Asha Rao",
		Phone:       "9800000001",
		Type:        TypeGeneral,
		Date:        "2026-09-10",
	}
	require.NoError(t, svc.Add(context.Background(), r))
	return r
}

func bookingRequestFor(r *Reminder) schedule.BookingRequest {
	return schedule.BookingRequest{
		Model:     schedule.ModelDualTrack,
		Date:      r.Date,
		Cells:     []schedule.Cell{{Time: "10:00", Track: schedule.TrackB}},
		Channel:   schedule.ChannelCall,
		PatientID: uuid.New(),
	}
}

func TestAddRejectsUnknownType(t *testing.T) {
	svc := NewService(newMemStore(), nil, zerolog.Nop())

	err := svc.Add(context.Background(), &Reminder{Type: "fax", Date: "2026-09-10"})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, zerolog.Nop())
	ctx := context.Background()
	patientID := uuid.New()

	created, err := svc.CreateIfAbsent(ctx, patientID, "2026-09-10", "medicine", "Follow-up")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.CreateIfAbsent(ctx, patientID, "2026-09-10", "medicine", "Follow-up")
	require.NoError(t, err)
	assert.False(t, created)

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestBookFromReminderClosesReminder(t *testing.T) {
	store := newMemStore()
	booker := &bookerStub{}
	svc := NewService(store, booker, zerolog.Nop())
	ctx := context.Background()

	r := pendingReminder(t, svc)

	bookings, err := svc.BookFromReminder(ctx, r.ID, bookingRequestFor(r))
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.Equal(t, 1, booker.calls)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestBookFromReminderConflictLeavesReminderOpen(t *testing.T) {
	store := newMemStore()
	booker := &bookerStub{err: &schedule.ConflictError{
		Date: "2026-09-10",
		Cell: schedule.Cell{Time: "10:00", Track: schedule.TrackB},
	}}
	svc := NewService(store, booker, zerolog.Nop())
	ctx := context.Background()

	r := pendingReminder(t, svc)

	_, err := svc.BookFromReminder(ctx, r.ID, bookingRequestFor(r))
	var conflict *schedule.ConflictError
	require.ErrorAs(t, err, &conflict)

	got, err := store.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status, "a failed booking must not consume the reminder")
}

func TestBookFromReminderRejectsClosed(t *testing.T) {
	store := newMemStore()
	booker := &bookerStub{}
	svc := NewService(store, booker, zerolog.Nop())
	ctx := context.Background()

	r := pendingReminder(t, svc)
	require.NoError(t, svc.Complete(ctx, r.ID))

	_, err := svc.BookFromReminder(ctx, r.ID, bookingRequestFor(r))
	assert.ErrorIs(t, err, ErrReminderClosed)
	assert.Zero(t, booker.calls)
}

func TestRemove(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, zerolog.Nop())
	ctx := context.Background()

	r := pendingReminder(t, svc)
	require.NoError(t, svc.Remove(ctx, r.ID))

	_, err := store.Get(ctx, r.ID)
	assert.ErrorIs(t, err, ErrReminderNotFound)
}
