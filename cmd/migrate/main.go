package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/gurkanbulca/tasktimer/internal/config"
	"github.com/gurkanbulca/tasktimer/internal/database"
	"github.com/gurkanbulca/tasktimer/internal/logging"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level)

	ctx := context.Background()
	db, err := database.Open(ctx, cfg.ToDatabaseConfig(), logger)
	if err != nil {
		logger.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	logger.Info("running database migrations", "driver", cfg.Database.Driver)
	if err := db.Migrate(ctx); err != nil {
		logger.Error("run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("migrations completed")
}
