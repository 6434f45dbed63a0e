package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/verdantclinic/frontdesk/internal/patient"
	"github.com/verdantclinic/frontdesk/internal/queue"
	"github.com/verdantclinic/frontdesk/internal/reminder"
	"github.com/verdantclinic/frontdesk/internal/schedule"
)

type RouterConfig struct {
	Bookings  *schedule.Service
	Sheets    *schedule.SheetCache
	Patients  patient.Store
	Reminders *reminder.Service
	Queue     *queue.Service
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
	Logger    zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Get("/days/{date}/sheet", daySheetHandler(cfg.Sheets))

	r.Route("/bookings", func(r chi.Router) {
		r.Post("/", createBookingHandler(cfg.Bookings))
		r.Get("/", listBookingsHandler(cfg.Bookings))
		r.Post("/{id}/reschedule", rescheduleBookingHandler(cfg.Bookings))
		r.Post("/{id}/cancel", cancelBookingHandler(cfg.Bookings))
		r.Post("/{id}/complete", completeBookingHandler(cfg.Bookings))
		r.Delete("/{id}", deleteBookingHandler(cfg.Bookings))
	})

	r.Route("/patients", func(r chi.Router) {
		r.Post("/", createPatientHandler(cfg.Patients))
		r.Get("/", listPatientsHandler(cfg.Patients))
		r.Get("/lookup", lookupPatientHandler(cfg.Patients))
		r.Get("/{id}", getPatientHandler(cfg.Patients))
		r.Patch("/{id}", updatePatientHandler(cfg.Patients))
	})

	r.Route("/reminders", func(r chi.Router) {
		r.Post("/", createReminderHandler(cfg.Reminders))
		r.Get("/", listRemindersHandler(cfg.Reminders))
		r.Post("/{id}/complete", completeReminderHandler(cfg.Reminders))
		r.Post("/{id}/book", bookReminderHandler(cfg.Reminders, cfg.Bookings.Grid()))
		r.Delete("/{id}", deleteReminderHandler(cfg.Reminders))
	})

	r.Route("/queue", func(r chi.Router) {
		r.Post("/", createQueueEntryHandler(cfg.Queue))
		r.Get("/", listQueueHandler(cfg.Queue))
		r.Get("/logs", listQueueLogsHandler(cfg.Queue))
		r.Post("/{id}/complete", completeQueueEntryHandler(cfg.Queue))
		r.Delete("/{id}", deleteQueueEntryHandler(cfg.Queue))
	})

	return r
}
