package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/verdantclinic/frontdesk/internal/db"
)

const uniqueViolationCode = "23505"

const entryColumns = `id, patient_name, phone, reason, first_visit, status, added_by, staff_notes, completed_by, created_at, completed_at`

type PgStore struct {
	db db.Querier
}

func NewPgStore(q db.Querier) *PgStore {
	return &PgStore{db: q}
}

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var completedBy *string
	var completedAt *time.Time

	err := row.Scan(
		&e.ID,
		&e.PatientName,
		&e.Phone,
		&e.Reason,
		&e.FirstVisit,
		&e.Status,
		&e.AddedBy,
		&e.StaffNotes,
		&completedBy,
		&e.CreatedAt,
		&completedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEntryNotFound
		}
		return nil, err
	}

	if completedBy != nil {
		e.CompletedBy = *completedBy
	}
	e.CompletedAt = completedAt
	return &e, nil
}

func (s *PgStore) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM call_queue
		WHERE id = $1
	`, id)
	return scanEntry(row)
}

func (s *PgStore) PendingByPhone(ctx context.Context, phone string) (*Entry, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+entryColumns+`
		FROM call_queue
		WHERE phone = $1
		  AND status = 'pending'
	`, phone)
	return scanEntry(row)
}

func (s *PgStore) ListPending(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+entryColumns+`
		FROM call_queue
		WHERE status = 'pending'
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PgStore) Create(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Status == "" {
		e.Status = EntryPending
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO call_queue (id, patient_name, phone, reason, first_visit, status, added_by, staff_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.PatientName, e.Phone, e.Reason, e.FirstVisit, e.Status, e.AddedBy, e.StaffNotes, e.CreatedAt)
	if err != nil {
		// The partial unique index on pending phones catches adds that
		// raced past the service's pre-check.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrAlreadyQueued
		}
		return fmt.Errorf("insert queue entry: %w", err)
	}
	return nil
}

func (s *PgStore) Complete(ctx context.Context, id uuid.UUID, by, notes string) (*Entry, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE call_queue
		SET status = 'completed',
		    completed_by = $2,
		    staff_notes = $3,
		    completed_at = now()
		WHERE id = $1
		  AND status = 'pending'
		RETURNING `+entryColumns+`
	`, id, by, notes)
	return scanEntry(row)
}

func (s *PgStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM call_queue
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete queue entry: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *PgStore) InsertLog(ctx context.Context, l LogEntry) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO call_logs (entry_id, patient_name, phone, reason, action, action_by, staff_notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`, l.EntryID, l.PatientName, l.Phone, l.Reason, l.Action, l.ActionBy, l.StaffNotes, nullableTime(l.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert call log: %w", err)
	}
	return nil
}

func (s *PgStore) ListLogs(ctx context.Context) ([]LogEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, entry_id, patient_name, phone, reason, action, action_by, staff_notes, created_at
		FROM call_logs
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []LogEntry
	for rows.Next() {
		var l LogEntry
		if err := rows.Scan(&l.ID, &l.EntryID, &l.PatientName, &l.Phone, &l.Reason, &l.Action, &l.ActionBy, &l.StaffNotes, &l.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
