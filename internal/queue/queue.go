package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound = errors.New("call queue entry not found")
	ErrAlreadyQueued = errors.New("patient already has a pending queue entry")
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "pending"
	EntryCompleted EntryStatus = "completed"
)

// Entry is one walk-in or call waiting to be handled. At most one pending
// entry per phone number.
type Entry struct {
	ID          uuid.UUID   `json:"id"`
	PatientName string      `json:"patient_name"`
	Phone       string      `json:"phone"`
	Reason      string      `json:"reason,omitempty"`
	FirstVisit  bool        `json:"first_visit"`
	Status      EntryStatus `json:"status"`
	AddedBy     string      `json:"added_by"`
	StaffNotes  string      `json:"staff_notes,omitempty"`
	CompletedBy string      `json:"completed_by,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	CompletedAt *time.Time  `json:"completed_at,omitempty"`
}

type LogAction string

const (
	ActionAdded     LogAction = "added"
	ActionCompleted LogAction = "completed"
	ActionDeleted   LogAction = "deleted"
)

// LogEntry is the append-only audit trail of queue activity.
type LogEntry struct {
	ID          int64     `json:"id"`
	EntryID     uuid.UUID `json:"entry_id"`
	PatientName string    `json:"patient_name"`
	Phone       string    `json:"phone"`
	Reason      string    `json:"reason,omitempty"`
	Action      LogAction `json:"action"`
	ActionBy    string    `json:"action_by"`
	StaffNotes  string    `json:"staff_notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	PendingByPhone(ctx context.Context, phone string) (*Entry, error)
	ListPending(ctx context.Context) ([]Entry, error)
	Create(ctx context.Context, e *Entry) error
	Complete(ctx context.Context, id uuid.UUID, by, notes string) (*Entry, error)
	Delete(ctx context.Context, id uuid.UUID) error

	InsertLog(ctx context.Context, l LogEntry) error
	ListLogs(ctx context.Context) ([]LogEntry, error)
}
