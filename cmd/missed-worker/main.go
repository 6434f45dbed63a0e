package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/verdantclinic/frontdesk/internal/config"
	"github.com/verdantclinic/frontdesk/internal/db"
	"github.com/verdantclinic/frontdesk/internal/patient"
	redisclient "github.com/verdantclinic/frontdesk/internal/redis"
	"github.com/verdantclinic/frontdesk/internal/reminder"
	"github.com/verdantclinic/frontdesk/internal/schedule"
	"github.com/verdantclinic/frontdesk/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.Env)
	log.Info().
		Str("env", cfg.Env).
		Dur("interval", cfg.WorkerInterval).
		Dur("grace", cfg.MissedGrace).
		Msg("missed-worker starting up")

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

	store := schedule.NewPgStore(pgPool)
	patients := patient.NewPgStore(pgPool)
	reminders := reminder.NewService(reminder.NewPgStore(pgPool), nil, log)
	locker := redisclient.NewRedisDayLocker(rdb, cfg.LockTTL, cfg.LockWait)
	notifier := redisclient.NewRedisNotifier(rdb)
	svc := schedule.NewService(store, locker, notifier, patients, reminders, schedule.DualTrackGrid(), log)

	runOnce(rootCtx, svc, cfg.MissedGrace, log)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			log.Info().Msg("shutdown signal received, stopping missed-worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.MissedGrace, log)
		}
	}
}

func runOnce(ctx context.Context, svc *schedule.Service, grace time.Duration, log zerolog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	marked, err := svc.MarkMissed(runCtx, time.Now().Add(-grace))
	if err != nil {
		log.Error().Err(err).Msg("missed sweep error")
		return
	}
	log.Info().Int("marked", marked).Dur("took", time.Since(start)).Msg("missed sweep complete")
}
