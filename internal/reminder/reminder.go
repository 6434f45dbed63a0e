package reminder

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrReminderNotFound = errors.New("reminder not found")
	ErrReminderClosed   = errors.New("reminder already handled")
	ErrInvalidType      = errors.New("invalid reminder type")
)

type Type string

const (
	TypeMedicine Type = "medicine"
	TypeGeneral  Type = "general"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Reminder is a follow-up note for a date: call the patient, or book them
// in. Medicine reminders come from visit completion and are keyed on
// (patient, date, type) so retries never duplicate them; general reminders
// are added by staff by hand.
type Reminder struct {
	ID          uuid.UUID  `json:"id"`
	PatientID   *uuid.UUID `json:"patient_id,omitempty"` // nil for hand-entered reminders
	PatientName string     `json:"patient_name"`
	Phone       string     `json:"phone"`
	Type        Type       `json:"type"`
	Date        string     `json:"date"` // "2006-01-02"
	Message     string     `json:"message"`
	Status      Status     `json:"status"`
	Origin      string     `json:"origin,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Reminder, error)
	ListByStatus(ctx context.Context, status Status) ([]Reminder, error)
	Create(ctx context.Context, r *Reminder) error

	// CreateIfAbsent inserts unless a reminder with the same patient, date
	// and type already exists. Reports whether a row was created.
	CreateIfAbsent(ctx context.Context, r *Reminder) (bool, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
}
