package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Service manages the walk-in/call queue. Every mutation leaves a call log
// row behind; the queue owns no slot logic and hands bookings off to the
// coordinator via the API layer.
type Service struct {
	store Store
	log   zerolog.Logger
}

func NewService(store Store, log zerolog.Logger) *Service {
	return &Service{
		store: store,
		log:   log.With().Str("component", "call_queue").Logger(),
	}
}

// Add enqueues a caller unless they already have a pending entry. The
// pending check here is the fast path; the store's unique pending-phone
// constraint settles adds that race past it.
func (s *Service) Add(ctx context.Context, e *Entry) error {
	existing, err := s.store.PendingByPhone(ctx, e.Phone)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return fmt.Errorf("check pending entry: %w", err)
	}
	if existing != nil {
		return ErrAlreadyQueued
	}

	if err := s.store.Create(ctx, e); err != nil {
		return err
	}
	s.writeLog(ctx, e, ActionAdded, e.AddedBy, "")
	return nil
}

// Complete closes a pending entry with the handler's notes.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, by, notes string) (*Entry, error) {
	e, err := s.store.Complete(ctx, id, by, notes)
	if err != nil {
		return nil, err
	}
	s.writeLog(ctx, e, ActionCompleted, by, notes)
	return e, nil
}

// Remove drops an entry from the queue, leaving a deletion log behind.
func (s *Service) Remove(ctx context.Context, id uuid.UUID, by string) error {
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.writeLog(ctx, e, ActionDeleted, by, "")
	return nil
}

func (s *Service) Pending(ctx context.Context) ([]Entry, error) {
	return s.store.ListPending(ctx)
}

func (s *Service) Logs(ctx context.Context) ([]LogEntry, error) {
	return s.store.ListLogs(ctx)
}

func (s *Service) writeLog(ctx context.Context, e *Entry, action LogAction, by, notes string) {
	l := LogEntry{
		EntryID:     e.ID,
		PatientName: e.PatientName,
		Phone:       e.Phone,
		Reason:      e.Reason,
		Action:      action,
		ActionBy:    by,
		StaffNotes:  notes,
		CreatedAt:   time.Now(),
	}
	if err := s.store.InsertLog(ctx, l); err != nil {
		s.log.Warn().Err(err).
			Str("entry_id", e.ID.String()).
			Str("action", string(action)).
			Msg("failed to insert call log")
	}
}
