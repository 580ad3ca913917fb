// Package main runs the standalone outbox dispatcher (push notifications and attribution events).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/creatorhub/backend/config"
	"github.com/creatorhub/backend/internal/attribution"
	"github.com/creatorhub/backend/internal/auth"
	"github.com/creatorhub/backend/internal/campaigns"
	"github.com/creatorhub/backend/internal/notifications"
	"github.com/creatorhub/backend/internal/worker"
	"github.com/creatorhub/backend/pkg/database"
	"github.com/creatorhub/backend/pkg/queue"
	"github.com/creatorhub/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolOptions{MaxConns: cfg.Database.MaxConns}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()
	db := database.NewDB(pool)

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	jobQueue := queue.NewQueue(rdb.Client, logger)
	userRepo := auth.NewRepository(db)
	campaignCtrl := campaigns.NewController(campaigns.NewRepository(db), nil, nil, logger)
	pushRelay := notifications.NewRelay(cfg.Push.RelayURL, cfg.Push.Sound, cfg.Push.Timeout)
	notifier := notifications.NewService(userRepo, campaignCtrl, pushRelay, cfg.Push.Concurrency, logger)

	var events worker.EventSender
	if cfg.Attribution.RelayURL != "" {
		events = attribution.NewRelay(cfg.Attribution.RelayURL, cfg.Attribution.APIKey, cfg.Attribution.Timeout)
	} else {
		logger.Warn("attribution relay not configured; attribution jobs will be dead-lettered")
	}

	dispatcher := worker.NewDispatcher(jobQueue, notifier, events, cfg.Worker.MaxBackoff, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		dispatcher.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		logger.Warn("dispatcher did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
