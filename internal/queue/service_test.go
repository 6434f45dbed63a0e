package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]Entry
	logs    []LogEntry
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[uuid.UUID]Entry)}
}

func (s *memStore) Get(_ context.Context, id uuid.UUID) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}

func (s *memStore) PendingByPhone(_ context.Context, phone string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.Phone == phone && e.Status == EntryPending {
			return &e, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (s *memStore) ListPending(_ context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Status == EntryPending {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) Create(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same rule the pending-phone unique index enforces in the database.
	for _, existing := range s.entries {
		if existing.Phone == e.Phone && existing.Status == EntryPending {
			return ErrAlreadyQueued
		}
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Status = EntryPending
	e.CreatedAt = time.Now()
	s.entries[e.ID] = *e
	return nil
}

func (s *memStore) Complete(_ context.Context, id uuid.UUID, by, notes string) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.Status != EntryPending {
		return nil, ErrEntryNotFound
	}
	now := time.Now()
	e.Status = EntryCompleted
	e.CompletedBy = by
	if notes != "" {
		e.StaffNotes = notes
	}
	e.CompletedAt = &now
	s.entries[id] = e
	return &e, nil
}

func (s *memStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return ErrEntryNotFound
	}
	delete(s.entries, id)
	return nil
}

func (s *memStore) InsertLog(_ context.Context, l LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.ID = int64(len(s.logs) + 1)
	s.logs = append(s.logs, l)
	return nil
}

func (s *memStore) ListLogs(_ context.Context) ([]LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logs, nil
}

func testEntry(phone string) *Entry {
	return &Entry{
		PatientName: "Ravi Kumar",
		Phone:       phone,
		Reason:      "fever",
		AddedBy:     "frontdesk",
	}
}

func TestAddWritesLog(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())
	ctx := context.Background()

	e := testEntry("9800000001")
	require.NoError(t, svc.Add(ctx, e))
	assert.Equal(t, EntryPending, e.Status)

	require.Len(t, store.logs, 1)
	assert.Equal(t, ActionAdded, store.logs[0].Action)
	assert.Equal(t, e.ID, store.logs[0].EntryID)
	assert.Equal(t, "frontdesk", store.logs[0].ActionBy)
}

func TestAddRejectsDuplicatePendingPhone(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, svc.Add(ctx, testEntry("9800000001")))
	err := svc.Add(ctx, testEntry("9800000001"))
	assert.ErrorIs(t, err, ErrAlreadyQueued)

	// A different number queues fine.
	assert.NoError(t, svc.Add(ctx, testEntry("9800000002")))
}

// barrierStore holds every PendingByPhone caller at a barrier so all of
// them observe an empty queue before any insert lands.
type barrierStore struct {
	*memStore
	barrier *sync.WaitGroup
}

func (s *barrierStore) PendingByPhone(ctx context.Context, phone string) (*Entry, error) {
	s.barrier.Done()
	s.barrier.Wait()
	return s.memStore.PendingByPhone(ctx, phone)
}

func TestConcurrentAddsOnePendingEntry(t *testing.T) {
	var barrier sync.WaitGroup
	barrier.Add(2)
	store := &barrierStore{memStore: newMemStore(), barrier: &barrier}
	svc := NewService(store, zerolog.Nop())

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.Add(context.Background(), testEntry("9800000001"))
		}()
	}
	wg.Wait()
	close(results)

	successes, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, ErrAlreadyQueued):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejected)

	pending, err := svc.Pending(context.Background())
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	require.Len(t, store.logs, 1, "only the winning add is logged")
}

func TestAddAllowsRequeueAfterCompletion(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())
	ctx := context.Background()

	e := testEntry("9800000001")
	require.NoError(t, svc.Add(ctx, e))
	_, err := svc.Complete(ctx, e.ID, "dr-iyer", "handled")
	require.NoError(t, err)

	assert.NoError(t, svc.Add(ctx, testEntry("9800000001")))
}

func TestComplete(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())
	ctx := context.Background()

	e := testEntry("9800000001")
	require.NoError(t, svc.Add(ctx, e))

	done, err := svc.Complete(ctx, e.ID, "dr-iyer", "booked for tomorrow")
	require.NoError(t, err)
	assert.Equal(t, EntryCompleted, done.Status)
	assert.Equal(t, "dr-iyer", done.CompletedBy)
	require.NotNil(t, done.CompletedAt)

	// Completing twice finds no pending entry.
	_, err = svc.Complete(ctx, e.ID, "dr-iyer", "")
	assert.ErrorIs(t, err, ErrEntryNotFound)

	require.Len(t, store.logs, 2)
	assert.Equal(t, ActionCompleted, store.logs[1].Action)
}

func TestRemoveLeavesDeletionLog(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, zerolog.Nop())
	ctx := context.Background()

	e := testEntry("9800000001")
	require.NoError(t, svc.Add(ctx, e))
	require.NoError(t, svc.Remove(ctx, e.ID, "frontdesk"))

	pending, err := svc.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	logs, err := svc.Logs(ctx)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, ActionDeleted, logs[1].Action)

	assert.ErrorIs(t, svc.Remove(ctx, uuid.New(), "frontdesk"), ErrEntryNotFound)
}
