package schedule

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/verdantclinic/frontdesk/internal/db"
)

const bookingColumns = `id, date, time, track, channel, duration_units, status, patient_id, first_visit, notes, origin, created_at, updated_at`

// PgStore persists bookings in Postgres. A partial unique index on
// (date, time, track) over active statuses backstops the day lock: even if
// a writer bypassed the coordinator, the store itself refuses a second
// active booking for the same cell.
type PgStore struct {
	db db.Querier
}

func NewPgStore(q db.Querier) *PgStore {
	return &PgStore{db: q}
}

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var track, channel *string

	err := row.Scan(
		&b.ID,
		&b.Date,
		&b.Time,
		&track,
		&channel,
		&b.DurationUnits,
		&b.Status,
		&b.PatientID,
		&b.FirstVisit,
		&b.Notes,
		&b.Origin,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	if track != nil {
		b.Track = Track(*track)
	}
	if channel != nil {
		b.Channel = Channel(*channel)
	}
	return &b, nil
}

func collectBookings(rows pgx.Rows) ([]Booking, error) {
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgStore) ActiveBookings(ctx context.Context, date string) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE date = $1
		  AND status IN ('scheduled', 'rescheduled')
		ORDER BY time, track
	`, date)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgStore) BookingsByDate(ctx context.Context, date string) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE date = $1
		ORDER BY time, track
	`, date)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *PgStore) BookingByID(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgStore) CreateBookings(ctx context.Context, bookings []Booking) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin bookings tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	for _, b := range bookings {
		_, err := tx.Exec(ctx, `
			INSERT INTO bookings (`+bookingColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, b.ID, b.Date, b.Time, nullableString(string(b.Track)), nullableString(string(b.Channel)),
			b.DurationUnits, b.Status, b.PatientID, b.FirstVisit, b.Notes, b.Origin, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit bookings tx: %w", err)
	}
	return nil
}

func (r *PgStore) UpdateBookingSlot(ctx context.Context, b *Booking) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET date = $2,
		    time = $3,
		    track = $4,
		    channel = $5,
		    status = $6,
		    notes = $7,
		    updated_at = now()
		WHERE id = $1
	`, b.ID, b.Date, b.Time, nullableString(string(b.Track)), nullableString(string(b.Channel)), b.Status, b.Notes)
	if err != nil {
		return fmt.Errorf("update booking slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *PgStore) UpdateBookingStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Booking, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns+`
	`, id, to, from)
	return scanBooking(row)
}

func (r *PgStore) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM bookings
		WHERE id = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

func (r *PgStore) FindOverdueActive(ctx context.Context, date, clock string) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status IN ('scheduled', 'rescheduled')
		  AND (date < $1 OR (date = $1 AND time <= $2))
		ORDER BY date, time
	`, date, clock)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
