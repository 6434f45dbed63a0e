package schedule

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/verdantclinic/frontdesk/internal/redis"
)

// memStore is an in-memory Store safe for concurrent use.
type memStore struct {
	mu       sync.Mutex
	bookings map[uuid.UUID]Booking
}

func newMemStore() *memStore {
	return &memStore{bookings: make(map[uuid.UUID]Booking)}
}

func (s *memStore) ActiveBookings(_ context.Context, date string) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.Date == date && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) BookingsByDate(_ context.Context, date string) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memStore) BookingByID(_ context.Context, id uuid.UUID) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, ErrBookingNotFound
	}
	return &b, nil
}

func (s *memStore) CreateBookings(_ context.Context, bookings []Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range bookings {
		s.bookings[b.ID] = b
	}
	return nil
}

func (s *memStore) UpdateBookingSlot(_ context.Context, b *Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[b.ID]; !ok {
		return ErrBookingNotFound
	}
	s.bookings[b.ID] = *b
	return nil
}

func (s *memStore) UpdateBookingStatus(_ context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok || b.Status != from {
		return nil, ErrBookingNotFound
	}
	b.Status = to
	b.UpdatedAt = time.Now()
	s.bookings[id] = b
	return &b, nil
}

func (s *memStore) DeleteBooking(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bookings[id]; !ok {
		return ErrBookingNotFound
	}
	delete(s.bookings, id)
	return nil
}

func (s *memStore) FindOverdueActive(_ context.Context, date, clock string) ([]Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Booking
	for _, b := range s.bookings {
		if !b.Status.Active() {
			continue
		}
		if b.Date < date || (b.Date == date && b.Time <= clock) {
			out = append(out, b)
		}
	}
	return out, nil
}

type patientLogStub struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (p *patientLogStub) MarkReturning(_ context.Context, patientID uuid.UUID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, patientID)
	return nil
}

type reminderBookStub struct {
	mu      sync.Mutex
	created map[string]bool
	calls   int
}

func (r *reminderBookStub) CreateIfAbsent(_ context.Context, patientID uuid.UUID, date, typ, _ string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.created == nil {
		r.created = make(map[string]bool)
	}
	r.calls++
	key := patientID.String() + "|" + date + "|" + typ
	if r.created[key] {
		return false, nil
	}
	r.created[key] = true
	return true, nil
}

type serviceFixture struct {
	svc       *Service
	store     *memStore
	patients  *patientLogStub
	reminders *reminderBookStub
}

func newServiceFixture(t *testing.T, grid Grid) *serviceFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := newMemStore()
	patients := &patientLogStub{}
	reminders := &reminderBookStub{}
	locker := redisclient.NewRedisDayLocker(client, 2*time.Second, time.Second)

	svc := NewService(store, locker, nil, patients, reminders, grid, zerolog.Nop())
	return &serviceFixture{svc: svc, store: store, patients: patients, reminders: reminders}
}

func dualTrackRequest(cells ...Cell) BookingRequest {
	return BookingRequest{
		Model:     ModelDualTrack,
		Date:      "2026-09-07",
		Cells:     cells,
		Channel:   ChannelWalkIn,
		PatientID: uuid.New(),
	}
}

func TestBookSingleCell(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())

	created, err := f.svc.Book(context.Background(), dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	require.Len(t, created, 1)

	b := created[0]
	assert.Equal(t, StatusScheduled, b.Status)
	assert.Equal(t, "10:00", b.Time)
	assert.Equal(t, TrackA, b.Track)
	assert.Equal(t, ChannelWalkIn, b.Channel)
	assert.Equal(t, 1, b.DurationUnits)
}

func TestBookConflictIsExactCell(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	_, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)

	// Same cell again conflicts and names the cell.
	_, err = f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "2026-09-07", conflict.Date)
	assert.Equal(t, Cell{Time: "10:00", Track: TrackA}, conflict.Cell)
	require.NotNil(t, conflict.By)

	// The sibling track at the same time is untouched.
	_, err = f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackB}))
	assert.NoError(t, err)
}

func TestBookTrackARejectsCallChannel(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())

	req := dualTrackRequest(Cell{Time: "10:00", Track: TrackA})
	req.Channel = ChannelCall
	_, err := f.svc.Book(context.Background(), req)
	assert.ErrorIs(t, err, ErrInvalidSlotType)
}

func TestBookTrackBAcceptsCallChannel(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())

	req := dualTrackRequest(Cell{Time: "10:00", Track: TrackB})
	req.Channel = ChannelCall
	created, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ChannelCall, created[0].Channel)
}

func TestBookValidation(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*BookingRequest)
	}{
		{"wrong model", func(r *BookingRequest) { r.Model = ModelTwoWindow; r.Cells[0].Track = "" }},
		{"bad date", func(r *BookingRequest) { r.Date = "07/09/2026" }},
		{"no patient", func(r *BookingRequest) { r.PatientID = uuid.Nil }},
		{"no cells", func(r *BookingRequest) { r.Cells = nil }},
		{"off grid", func(r *BookingRequest) { r.Cells[0].Time = "08:00" }},
		{"bad track", func(r *BookingRequest) { r.Cells[0].Track = "C" }},
		{"bad channel", func(r *BookingRequest) { r.Channel = "email" }},
		{"returning multi cell", func(r *BookingRequest) {
			r.Cells = append(r.Cells, Cell{Time: "10:15", Track: TrackA})
		}},
		{"duplicate cells", func(r *BookingRequest) {
			r.FirstVisit = true
			r.Cells = append(r.Cells, r.Cells[0])
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := dualTrackRequest(Cell{Time: "10:00", Track: TrackA})
			tt.mutate(&req)
			_, err := f.svc.Book(ctx, req)
			assert.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestBookMultiCellFirstVisit(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())

	req := dualTrackRequest(
		Cell{Time: "10:00", Track: TrackA},
		Cell{Time: "10:15", Track: TrackA},
		Cell{Time: "10:30", Track: TrackA},
	)
	req.FirstVisit = true
	created, err := f.svc.Book(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, created, 3)
}

func TestBookMultiCellAllOrNothing(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	_, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:15", Track: TrackA}))
	require.NoError(t, err)

	req := dualTrackRequest(
		Cell{Time: "10:00", Track: TrackA},
		Cell{Time: "10:15", Track: TrackA},
	)
	req.FirstVisit = true
	_, err = f.svc.Book(ctx, req)

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, Cell{Time: "10:15", Track: TrackA}, conflict.Cell)

	// The free cell of the failed request must not have been written.
	active, err := f.store.ActiveBookings(ctx, "2026-09-07")
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestBookTwoWindowFirstVisitExpansion(t *testing.T) {
	f := newServiceFixture(t, TwoWindowGrid())
	ctx := context.Background()

	// Returning visit parked at 11:00.
	_, err := f.svc.Book(ctx, BookingRequest{
		Model:     ModelTwoWindow,
		Date:      "2026-09-07",
		Cells:     []Cell{{Time: "11:00"}},
		PatientID: uuid.New(),
	})
	require.NoError(t, err)

	// A first visit starting 10:30 spans 10:30-11:15 and must collide at 11:00.
	_, err = f.svc.Book(ctx, BookingRequest{
		Model:      ModelTwoWindow,
		Date:       "2026-09-07",
		Cells:      []Cell{{Time: "10:30"}},
		PatientID:  uuid.New(),
		FirstVisit: true,
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "11:00", conflict.Cell.Time)

	// Starting at 11:15 the run is clear.
	created, err := f.svc.Book(ctx, BookingRequest{
		Model:      ModelTwoWindow,
		Date:       "2026-09-07",
		Cells:      []Cell{{Time: "11:15"}},
		PatientID:  uuid.New(),
		FirstVisit: true,
	})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 3, created[0].DurationUnits)
}

func TestBookTwoWindowRunOffWindow(t *testing.T) {
	f := newServiceFixture(t, TwoWindowGrid())

	_, err := f.svc.Book(context.Background(), BookingRequest{
		Model:      ModelTwoWindow,
		Date:       "2026-09-07",
		Cells:      []Cell{{Time: "13:15"}},
		PatientID:  uuid.New(),
		FirstVisit: true,
	})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestRescheduleExcludesOwnOccupancy(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	id := created[0].ID

	// Moving within the booking's own footprint must not self-conflict.
	moved, err := f.svc.Reschedule(ctx, id, RescheduleRequest{
		Date:    "2026-09-07",
		Time:    "10:00",
		Track:   TrackA,
		Channel: ChannelWalkIn,
	})
	require.NoError(t, err)
	assert.Equal(t, StatusRescheduled, moved.Status)
	assert.Equal(t, id, moved.ID)
}

func TestRescheduleConflictsWithOthers(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	first, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	_, err = f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:15", Track: TrackA}))
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, first[0].ID, RescheduleRequest{
		Date:    "2026-09-07",
		Time:    "10:15",
		Track:   TrackA,
		Channel: ChannelWalkIn,
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	// The original placement is untouched after the failed move.
	b, err := f.store.BookingByID(ctx, first[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "10:00", b.Time)
	assert.Equal(t, StatusScheduled, b.Status)
}

func TestRescheduleToAnotherDate(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackB}))
	require.NoError(t, err)

	moved, err := f.svc.Reschedule(ctx, created[0].ID, RescheduleRequest{
		Date:    "2026-09-08",
		Time:    "11:00",
		Track:   TrackB,
		Channel: ChannelCall,
	})
	require.NoError(t, err)
	assert.Equal(t, "2026-09-08", moved.Date)
	assert.Equal(t, ChannelCall, moved.Channel)

	// The old cell is free again.
	_, err = f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackB}))
	assert.NoError(t, err)
}

func TestRescheduleCancelledRejected(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	id := created[0].ID

	_, err = f.svc.Cancel(ctx, id)
	require.NoError(t, err)

	// A cancelled booking must not come back through a reschedule.
	_, err = f.svc.Reschedule(ctx, id, RescheduleRequest{
		Date:    "2026-09-07",
		Time:    "11:00",
		Track:   TrackA,
		Channel: ChannelWalkIn,
	})
	require.ErrorIs(t, err, ErrBookingNotFound)

	b, err := f.store.BookingByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, b.Status)
	assert.Equal(t, "10:00", b.Time)

	active, err := f.store.ActiveBookings(ctx, "2026-09-07")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestRescheduleCompletedRejected(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, created[0].ID, "")
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, created[0].ID, RescheduleRequest{
		Date:    "2026-09-07",
		Time:    "11:00",
		Track:   TrackA,
		Channel: ChannelWalkIn,
	})
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestCancelFreesCapacity(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, created[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	_, err = f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	assert.NoError(t, err)

	// A second cancel is rejected.
	_, err = f.svc.Cancel(ctx, created[0].ID)
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestCompleteIsIdempotent(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	id := created[0].ID

	done, err := f.svc.Complete(ctx, id, "2026-09-21")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	// Double click.
	done, err = f.svc.Complete(ctx, id, "2026-09-21")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	assert.Len(t, f.patients.calls, 1, "visit written back exactly once")
	assert.Equal(t, 2, f.reminders.calls)
	assert.Len(t, f.reminders.created, 1, "one reminder despite the retry")
}

func TestCompleteCancelledRejected(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	_, err = f.svc.Cancel(ctx, created[0].ID)
	require.NoError(t, err)

	_, err = f.svc.Complete(ctx, created[0].ID, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestConcurrentBookingOneWinner(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	cell := Cell{Time: "12:00", Track: TrackB}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Book(context.Background(), dualTrackRequest(cell))
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		default:
			var conflict *ConflictError
			if errors.As(err, &conflict) {
				conflicts++
			} else {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	assert.Equal(t, 1, successes, "exactly one writer wins")
	assert.Equal(t, 1, conflicts, "the loser gets a conflict, not a lock failure")
}

func TestMarkMissed(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	morning, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)
	evening, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "19:00", Track: TrackA}))
	require.NoError(t, err)

	cutoff, err := time.Parse("2006-01-02 15:04", "2026-09-07 12:00")
	require.NoError(t, err)

	marked, err := f.svc.MarkMissed(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, marked)

	b, err := f.store.BookingByID(ctx, morning[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusMissed, b.Status)

	b, err = f.store.BookingByID(ctx, evening[0].ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, b.Status)
}

func TestDeleteBooking(t *testing.T) {
	f := newServiceFixture(t, DualTrackGrid())
	ctx := context.Background()

	created, err := f.svc.Book(ctx, dualTrackRequest(Cell{Time: "10:00", Track: TrackA}))
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, created[0].ID))
	_, err = f.store.BookingByID(ctx, created[0].ID)
	assert.ErrorIs(t, err, ErrBookingNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, uuid.New()), ErrBookingNotFound)
}
