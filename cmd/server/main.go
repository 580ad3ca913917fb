// Package main runs the creator platform HTTP server with live subscriptions and graceful shutdown.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/creatorhub/backend/config"
	"github.com/creatorhub/backend/internal/accounts"
	"github.com/creatorhub/backend/internal/attribution"
	"github.com/creatorhub/backend/internal/auth"
	"github.com/creatorhub/backend/internal/campaigns"
	"github.com/creatorhub/backend/internal/middleware"
	"github.com/creatorhub/backend/internal/notifications"
	"github.com/creatorhub/backend/internal/realtime"
	"github.com/creatorhub/backend/internal/webinars"
	"github.com/creatorhub/backend/internal/worker"
	"github.com/creatorhub/backend/pkg/database"
	"github.com/creatorhub/backend/pkg/queue"
	"github.com/creatorhub/backend/pkg/redis"
	"github.com/creatorhub/backend/pkg/response"
	"github.com/creatorhub/backend/pkg/storage"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}
	db := database.NewDB(pool)

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var briefs campaigns.BriefStore
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			BriefsBucket:         cfg.AWS.BriefsBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled", zap.Error(err))
		} else {
			briefs = s3Client
		}
	}

	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Users and accounts
	userRepo := auth.NewRepository(db)
	accountSvc := accounts.NewService(userRepo, accounts.NewRepository(db), logger)
	authHandler := auth.NewHandler(userRepo, jwtService, accountSvc, logger)
	accountHandler := accounts.NewHandler(accountSvc, jwtService, logger)

	// Campaigns
	campaignRepo := campaigns.NewRepository(db)
	campaignCtrl := campaigns.NewController(campaignRepo, hub, jobQueue, logger)
	campaignHandler := campaigns.NewHandler(campaignRepo, campaignCtrl, briefs, logger)

	// Notifications
	pushRelay := notifications.NewRelay(cfg.Push.RelayURL, cfg.Push.Sound, cfg.Push.Timeout)
	notifier := notifications.NewService(userRepo, campaignCtrl, pushRelay, cfg.Push.Concurrency, logger)
	notificationHandler := notifications.NewHandler(notifier, logger)

	// Webinars
	webinarHandler := webinars.NewHandler(webinars.NewRepository(db), hub, logger)

	// Attribution
	tracker := attribution.NewTracker(userRepo, jobQueue, logger)
	attributionHandler := attribution.NewHandler(tracker, logger)

	snapshot := func(ctx context.Context, topic string, viewer uuid.UUID) (string, any, bool, error) {
		kind, raw, _ := strings.Cut(topic, ":")
		id, err := uuid.Parse(raw)
		if err != nil {
			return "", nil, false, nil
		}
		switch kind {
		case "campaign":
			m, err := campaignCtrl.LiveSnapshot(ctx, id, viewer)
			if errors.Is(err, campaigns.ErrCampaignNotFound) {
				return "", nil, false, nil
			}
			if err != nil {
				return "", nil, false, err
			}
			return realtime.EventCampaignUpdated, m, true, nil
		case "webinar":
			v, err := webinarHandler.Snapshot(ctx, id)
			if errors.Is(err, webinars.ErrWebinarNotFound) {
				return "", nil, false, nil
			}
			if err != nil {
				return "", nil, false, err
			}
			return realtime.EventWebinarUpdated, v, true, nil
		}
		return "", nil, false, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) {
		if err := pool.Ping(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Healthy(c.Request.Context()); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Account status and restore also accept restore-scoped tokens
	accountGroup := router.Group("/account")
	accountGroup.Use(middleware.JWTAllowDeleted(jwtService))
	{
		accountGroup.GET("/deleted", accountHandler.Status)
		accountGroup.POST("/restore", accountHandler.Restore)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Users
		api.GET("/users/me", authHandler.Me)
		api.PATCH("/users/me", authHandler.UpdateMe)
		api.PUT("/users/me/push-token", authHandler.SetPushToken)
		api.DELETE("/users/me", accountHandler.Delete)
		api.GET("/users", middleware.RequireAdmin(), authHandler.List)
		api.PUT("/users/:id/roles", middleware.RequireAdmin(), authHandler.SetRoles)

		// Campaigns
		api.GET("/campaigns", campaignHandler.List)
		api.GET("/campaigns/mine", campaignHandler.Mine)
		api.POST("/campaigns", middleware.RequireAdmin(), campaignHandler.Create)
		api.GET("/campaigns/:id", campaignHandler.Get)
		api.DELETE("/campaigns/:id", middleware.RequireAdmin(), campaignHandler.Delete)
		api.PATCH("/campaigns/:id/status", middleware.RequireAdmin(), campaignHandler.UpdateStatus)
		api.PUT("/campaigns/:id/submission-url", middleware.RequireAdmin(), campaignHandler.SetSubmissionURL)
		api.POST("/campaigns/:id/brief", middleware.RequireAdmin(), campaignHandler.UploadBrief)
		api.GET("/campaigns/:id/brief", campaignHandler.Brief)
		api.POST("/campaigns/:id/apply", campaignHandler.Apply)
		api.GET("/campaigns/:id/status", campaignHandler.MyStatus)
		api.GET("/campaigns/:id/members", middleware.RequireAdmin(), campaignHandler.Members)
		api.POST("/campaigns/:id/members/:userId/approve", middleware.RequireAdmin(), campaignHandler.Approve)
		api.POST("/campaigns/:id/members/:userId/reject", middleware.RequireAdmin(), campaignHandler.Reject)

		// Notifications (admin)
		api.POST("/notifications/users/:id", middleware.RequireAdmin(), notificationHandler.SendToUser)
		api.POST("/notifications/campaigns/:id/approved", middleware.RequireAdmin(), notificationHandler.SendToApproved)

		// Webinars
		api.GET("/webinars", webinarHandler.List)
		api.POST("/webinars", middleware.RequireAdmin(), webinarHandler.Create)
		api.GET("/webinars/:id", webinarHandler.GetByID)
		api.PUT("/webinars/:id", middleware.RequireAdmin(), webinarHandler.Update)
		api.DELETE("/webinars/:id", middleware.RequireAdmin(), webinarHandler.Delete)
		api.POST("/webinars/:id/rsvp", webinarHandler.Join)
		api.DELETE("/webinars/:id/rsvp", webinarHandler.Leave)

		// Attribution
		api.POST("/events", attributionHandler.Track)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtService.ValidateForSocket, snapshot))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Background outbox dispatcher (push notifications, attribution events)
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	workerDone := make(chan struct{})
	if cfg.Server.RunWorker {
		var events worker.EventSender
		if cfg.Attribution.RelayURL != "" {
			events = attribution.NewRelay(cfg.Attribution.RelayURL, cfg.Attribution.APIKey, cfg.Attribution.Timeout)
		}
		dispatcher := worker.NewDispatcher(jobQueue, notifier, events, cfg.Worker.MaxBackoff, logger)
		go func() {
			dispatcher.Run(workerCtx)
			close(workerDone)
		}()
	} else {
		close(workerDone)
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("shutting down", zap.String("signal", fmt.Sprint(sig)))

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
