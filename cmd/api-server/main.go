package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/verdantclinic/frontdesk/internal/api"
	"github.com/verdantclinic/frontdesk/internal/config"
	"github.com/verdantclinic/frontdesk/internal/db"
	"github.com/verdantclinic/frontdesk/internal/patient"
	"github.com/verdantclinic/frontdesk/internal/queue"
	redisclient "github.com/verdantclinic/frontdesk/internal/redis"
	"github.com/verdantclinic/frontdesk/internal/reminder"
	"github.com/verdantclinic/frontdesk/internal/schedule"
	"github.com/verdantclinic/frontdesk/pkg/logger"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	rdb, err := redisclient.NewRedisClient(redisclient.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		PoolSize: cfg.RedisPoolSize,
		Timeout:  cfg.RedisTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	bookingStore := schedule.NewPgStore(pgPool)
	patientStore := patient.NewPgStore(pgPool)
	reminderStore := reminder.NewPgStore(pgPool)
	queueStore := queue.NewPgStore(pgPool)

	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL, cfg.LockWait)
	notifier := redisclient.NewRedisNotifier(rdb)

	grid := schedule.DualTrackGrid()
	reminderSvc := reminder.NewService(reminderStore, nil, log)
	bookingSvc := schedule.NewService(bookingStore, locker, notifier, patientStore, reminderSvc, grid, log)
	reminderSvc.SetBooker(bookingSvc)
	queueSvc := queue.NewService(queueStore, log)

	sheets := schedule.NewSheetCache(grid, bookingStore, cfg.CacheTTL, log)
	changes, stopFeed := redisclient.SubscribeBookings(rootCtx, rdb)
	defer stopFeed()
	go sheets.Listen(changes)

	router := api.NewRouter(api.RouterConfig{
		Bookings:  bookingSvc,
		Sheets:    sheets,
		Patients:  patientStore,
		Reminders: reminderSvc,
		Queue:     queueSvc,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
		Logger:    log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}

	log.Info().Msg("shutting down api-server")
	shutCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
