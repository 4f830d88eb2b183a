package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-borong/internal/config"
	"github.com/noah-isme/backend-borong/internal/db"
	"github.com/noah-isme/backend-borong/internal/events"
	"github.com/noah-isme/backend-borong/internal/obs"
	"github.com/noah-isme/backend-borong/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("component", "worker").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, queries := mustInitDatabase(ctx, cfg, logger)
	defer pool.Close()

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	client := asynq.NewClient(redisOpt)
	defer func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("close asynq client")
		}
	}()

	enqueuer := &tasks.Enqueuer{Client: client}
	bus := &events.Bus{Store: queries, Scheduler: enqueuer}

	deliverer := &tasks.EventDeliverer{Q: queries, Log: logger}
	expirer := &tasks.OrderExpirer{
		Q:          queries,
		Events:     bus,
		PendingTTL: cfg.PendingOrderTTL,
		Log:        logger,
	}
	mux := tasks.NewMux(deliverer, expirer)

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.WorkerConcurrency,
		Queues: map[string]int{
			tasks.QueueEvents:      6,
			tasks.QueueMaintenance: 2,
			"default":              2,
		},
	})

	scheduler := asynq.NewScheduler(redisOpt, nil)
	if _, err := scheduler.Register("@every "+cfg.OrderExpireInterval.String(), tasks.NewOrdersExpireTask()); err != nil {
		logger.Fatal().Err(err).Msg("register expire schedule")
	}

	relay := &tasks.Relay{
		Q:         queries,
		Scheduler: enqueuer,
		Interval:  cfg.OutboxRelayInterval,
		Log:       logger,
	}
	go relay.Run(ctx)

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start task scheduler")
	}

	logger.Info().Msg("worker started")
	<-ctx.Done()

	scheduler.Shutdown()
	srv.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func mustInitDatabase(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*pgxpool.Pool, *db.Queries) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse database config")
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Fatal().Err(err).Msg("connect database")
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ping database")
	}
	return pool, db.New(pool)
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
