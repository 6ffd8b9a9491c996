package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/zlc1004/Carpool-sub000/internal/cache"
	"github.com/zlc1004/Carpool-sub000/internal/config"
	"github.com/zlc1004/Carpool-sub000/internal/database"
	"github.com/zlc1004/Carpool-sub000/internal/log"
	"github.com/zlc1004/Carpool-sub000/internal/queue"
	"github.com/zlc1004/Carpool-sub000/internal/repository"
	"github.com/zlc1004/Carpool-sub000/internal/storage"
	"github.com/zlc1004/Carpool-sub000/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	imageRepo := repository.NewImageRepository(dbPool)
	processor := tasks.NewProcessor(imageRepo, objectStore, logger)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Queue.ClaimInterval,
		logger,
		processor,
	)

	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("ensure consumer group failed")
	}

	go func() {
		if err := consumer.Start(ctx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}
