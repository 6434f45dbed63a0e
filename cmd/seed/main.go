package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verdantclinic/frontdesk/internal/db"
	"github.com/verdantclinic/frontdesk/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	patientIDs, err := seedPatients(context.Background(), pool, 2000)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedBookings(context.Background(), pool, patientIDs); err != nil {
		log.Fatalf("seed bookings: %v", err)
	}

	log.Println("seed complete")
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	const batchSize = 500
	ids := make([]uuid.UUID, 0, count)

	for offset := 0; offset < count; offset += batchSize {
		end := offset + batchSize
		if end > count {
			end = count
		}

		tx, err := pool.Begin(ctx)
		if err != nil {
			return nil, err
		}

		for i := offset; i < end; i++ {
			id := uuid.New()
			// Sequence the numbers so the unique phone constraint never trips.
			phone := fmt.Sprintf("98%08d", i)
			firstVisit := gofakeit.Number(0, 99) < 40

			_, err := tx.Exec(ctx, `
				INSERT INTO patients (id, name, phone, age, gender, address, first_visit, visit_dates, notes, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, '{}', '', now(), now())
			`, id, gofakeit.Name(), phone, gofakeit.Number(5, 85), gofakeit.Gender(), gofakeit.Address().Address, firstVisit)
			if err != nil {
				_ = tx.Rollback(ctx)
				return nil, err
			}
			ids = append(ids, id)
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}

		log.Printf("patients seeded: %d/%d", end, count)
	}

	log.Println("patients seeded")
	return ids, nil
}

// seedBookings fills roughly a third of today's and tomorrow's grid cells
// so the day sheet renders something worth looking at.
func seedBookings(ctx context.Context, pool *pgxpool.Pool, patientIDs []uuid.UUID) error {
	if len(patientIDs) == 0 {
		return fmt.Errorf("no patients to book")
	}

	grid := schedule.DualTrackGrid()
	times := grid.Times()
	dates := []string{
		time.Now().Format(schedule.DateLayout),
		time.Now().AddDate(0, 0, 1).Format(schedule.DateLayout),
	}

	total := 0
	for _, date := range dates {
		tx, err := pool.Begin(ctx)
		if err != nil {
			return err
		}

		for _, t := range times {
			for _, track := range []schedule.Track{schedule.TrackA, schedule.TrackB} {
				if gofakeit.Number(0, 99) >= 33 {
					continue
				}

				channel := schedule.ChannelWalkIn
				if track == schedule.TrackB && gofakeit.Bool() {
					channel = schedule.ChannelCall
				}
				patientID := patientIDs[gofakeit.Number(0, len(patientIDs)-1)]

				_, err := tx.Exec(ctx, `
					INSERT INTO bookings (id, date, time, track, channel, duration_units, status, patient_id, first_visit, notes, origin, created_at, updated_at)
					VALUES ($1, $2, $3, $4, $5, 1, 'scheduled', $6, false, '', 'seed', now(), now())
				`, uuid.New(), date, t, string(track), string(channel), patientID)
				if err != nil {
					_ = tx.Rollback(ctx)
					return err
				}
				total++
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return err
		}
	}

	log.Printf("bookings seeded: %d", total)
	return nil
}
