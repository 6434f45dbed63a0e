package reminder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantclinic/frontdesk/internal/db"
)

const reminderColumns = `id, patient_id, patient_name, phone, type, date, message, status, origin, created_at`

type PgStore struct {
	db db.Querier
}

func NewPgStore(q db.Querier) *PgStore {
	return &PgStore{db: q}
}

func scanReminder(row pgx.Row) (*Reminder, error) {
	var r Reminder

	err := row.Scan(
		&r.ID,
		&r.PatientID,
		&r.PatientName,
		&r.Phone,
		&r.Type,
		&r.Date,
		&r.Message,
		&r.Status,
		&r.Origin,
		&r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReminderNotFound
		}
		return nil, err
	}
	return &r, nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Reminder, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE id = $1
	`, id)
	return scanReminder(row)
}

func (s *PgStore) ListByStatus(ctx context.Context, status Status) ([]Reminder, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+reminderColumns+`
		FROM reminders
		WHERE status = $1
		ORDER BY date, patient_name
	`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) Create(ctx context.Context, r *Reminder) error {
	prepareNew(r)
	_, err := s.db.Exec(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, r.ID, r.PatientID, r.PatientName, r.Phone, r.Type, r.Date, r.Message, r.Status, r.Origin, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// CreateIfAbsent leans on the unique (patient_id, date, type) index so the
// existence check and the insert are one statement; two racing completions
// cannot both insert.
func (s *PgStore) CreateIfAbsent(ctx context.Context, r *Reminder) (bool, error) {
	prepareNew(r)
	tag, err := s.db.Exec(ctx, `
		INSERT INTO reminders (`+reminderColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (patient_id, date, type) DO NOTHING
	`, r.ID, r.PatientID, r.PatientName, r.Phone, r.Type, r.Date, r.Message, r.Status, r.Origin, r.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert reminder if absent: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PgStore) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE reminders
		SET status = $2
		WHERE id = $1
	`, id, status)
	if err != nil {
		return fmt.Errorf("update reminder status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReminderNotFound
	}
	return nil
}

func (s *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM reminders
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReminderNotFound
	}
	return nil
}

func prepareNew(r *Reminder) {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
}
