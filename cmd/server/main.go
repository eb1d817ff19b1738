package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatrelay/internal/api"
	"chatrelay/internal/buffer"
	"chatrelay/internal/channel"
	"chatrelay/internal/config"
	"chatrelay/internal/metrics"
	"chatrelay/internal/model"
	"chatrelay/internal/repository"
	"chatrelay/internal/service"
	"chatrelay/pkg/logger"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	logger.InitLogger(cfg.Server.Environment)
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Error("application startup failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Infrastructure
	rdb, err := initRedis(cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()

	db, err := initDB(cfg.MySQL)
	if err != nil {
		return err
	}

	// Repositories
	jobRepo := repository.NewJobRepository(db)
	pendingRepo := repository.NewPendingRepository(db)
	historyRepo := repository.NewHistoryRepository(db)
	credRepo := repository.NewInstanceCredentialRepository(db)

	// Channel transport
	states := channel.NewStateRegistry(rdb, cfg.Channel.StateTTL)
	adapter := channel.NewHTTPAdapter(cfg.Channel.TransportURL, cfg.Channel.TransportToken, states)

	// Services
	observer := metrics.NewPrometheusObserver()
	recent := buffer.NewRecentBuffer(cfg.Channel.RecentBuffer)

	outbound := service.NewOutboundService(jobRepo, pendingRepo, historyRepo, cfg.Queue.MaxAttempts)
	dispatcher := service.NewDispatcher(jobRepo, pendingRepo, historyRepo, adapter, observer, recent, service.DispatcherConfig{
		Interval:     cfg.Queue.PollInterval,
		BatchSize:    cfg.Queue.BatchSize,
		LeaseTimeout: cfg.Queue.LeaseTimeout,
		Backoff:      service.BackoffPolicy{Base: cfg.Queue.BackoffBase, Cap: cfg.Queue.BackoffCap},
	})
	monitor := service.NewQueueMonitor(jobRepo, pendingRepo, observer, cfg.Monitor.QueueName, cfg.Monitor.Interval)

	// Background loops
	go func() {
		logger.Info("starting dispatcher")
		dispatcher.Run(ctx)
	}()
	go func() {
		logger.Info("starting queue monitor")
		monitor.Run(ctx)
	}()

	// HTTP surface
	r := api.RegisterRoutes(
		api.NewMessageHandler(outbound),
		api.NewQueueHandler(jobRepo, pendingRepo, historyRepo, recent, cfg.Monitor.QueueName),
		credRepo,
		rdb,
		cfg.RateLimit.RequestsPerSecond,
	)

	srv := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Port),
			zap.String("env", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server listen failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Stop the dispatcher and monitor
	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server exited properly")
	return nil
}

// -- Infrastructure Initializers --

func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

func initDB(cfg config.MySQLConfig) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mysql: %w", err)
	}

	// Simple auto-migrate for dev convenience
	err = db.AutoMigrate(
		&model.MessageJob{},
		&model.PendingMessage{},
		&model.MessageHistory{},
		&model.InstanceCredential{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
