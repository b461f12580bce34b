package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	redis "github.com/redis/go-redis/v9"

	"github.com/decantory/backend-decantory/internal/config"
	"github.com/decantory/backend-decantory/internal/notify"
	"github.com/decantory/backend-decantory/internal/obs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := obs.NewLogger(cfg.LogFormat, cfg.LogLevel).With().
		Str("env", cfg.AppEnv).
		Str("component", "worker").
		Logger()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: redisOpts.Addr, Password: redisOpts.Password, DB: redisOpts.DB},
		asynq.Config{
			Concurrency: cfg.QueueConcurrency,
		},
	)

	worker := notify.Worker{
		Sender: notify.LogSender{Logger: logger},
		Logger: logger,
	}
	mux := asynq.NewServeMux()
	worker.Register(mux)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(mux); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	logger.Info().Int("concurrency", cfg.QueueConcurrency).Msg("worker started")

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	srv.Shutdown()
}
