package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/gurkanbulca/tasktimer/internal/cache"
	"github.com/gurkanbulca/tasktimer/internal/config"
	"github.com/gurkanbulca/tasktimer/internal/database"
	"github.com/gurkanbulca/tasktimer/internal/events"
	"github.com/gurkanbulca/tasktimer/internal/httpapi"
	"github.com/gurkanbulca/tasktimer/internal/logging"
	"github.com/gurkanbulca/tasktimer/internal/models"
	"github.com/gurkanbulca/tasktimer/internal/repository"
	"github.com/gurkanbulca/tasktimer/internal/server"
	"github.com/gurkanbulca/tasktimer/internal/service"
	"github.com/gurkanbulca/tasktimer/pkg/email"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateConfig(); err != nil {
		return err
	}

	logger := logging.New(cfg.Log.Level)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.ToDatabaseConfig(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}()

	if cfg.Server.AutoMigrate {
		logger.Info("running auto migration")
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	store := repository.NewStore(db)
	checks := map[string]httpapi.Pinger{"database": store}

	dispatchers := []events.Dispatcher{events.NewLogDispatcher(logger)}

	var statsCache service.StatsCache
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		c := cache.NewStatsCache(rdb, cfg.Redis.StatsTTL)
		statsCache = c
		dispatchers = append(dispatchers, events.NewCacheInvalidator(c))
		checks["redis"] = httpapi.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		logger.Info("pause stats cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.StatsTTL)
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Error("close kafka publisher", "error", err)
			}
		}()
		dispatchers = append(dispatchers, publisher)
		logger.Info("publishing lifecycle events", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	if len(cfg.Notify.Recipients) > 0 {
		sender := email.NewSMTPSender(cfg.ToEmailConfig())
		if err := sender.TestConnection(ctx); err != nil {
			logger.Warn("smtp connection test failed", "error", err)
		}
		dispatchers = append(dispatchers, events.NewAttentionNotifier(sender, cfg.Notify.Recipients))
		logger.Info("attention emails enabled", "recipients", len(cfg.Notify.Recipients))
	}

	dispatcher := events.NewMultiDispatcher(dispatchers...)
	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMaxRetries(cfg.Tracking.MaxTransitionRetries),
		service.WithPauseLimits(models.PauseLimits{
			MaxReasonLength:  cfg.Tracking.MaxReasonLength,
			MaxCommentLength: cfg.Tracking.MaxCommentLength,
		}),
	}

	lifecycle := service.NewLifecycleService(store, dispatcher, opts...)
	tracker := server.New(
		service.NewTaskService(store, statsCache, opts...),
		lifecycle,
		service.NewPauseService(lifecycle, store, statsCache, opts...),
		service.NewReportService(store, opts...),
		logger,
	)

	if cfg.Sweeper.Schedule != "" {
		sweeper := service.NewOverdueSweeper(store, dispatcher, opts...)
		if err := sweeper.Start(ctx, cfg.Sweeper.Schedule); err != nil {
			return err
		}
		defer func() { <-sweeper.Stop().Done() }()
	}

	grpcServer, healthServer := server.NewGRPCServer(tracker, logger, server.GRPCOptions{
		EnableReflection: cfg.Server.EnableReflection,
	})
	listener, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.GRPCPort, err)
	}

	httpServer := httpapi.NewServer(":"+cfg.Server.HTTPPort, httpapi.BuildInfo{
		Version:     version,
		Environment: cfg.Server.Environment,
	}, checks, logger)

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc server listening", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(listener); err != nil {
			errCh <- fmt.Errorf("serve grpc: %w", err)
		}
	}()
	go func() {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve http: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-errCh:
		logger.Error("server failed, shutting down", "error", err)
	}

	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown http server", "error", err)
	}
	grpcServer.GracefulStop()
	logger.Info("server shutdown complete")
	return err
}
