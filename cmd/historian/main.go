// cmd/historian/main.go drains the action journal from Redis into PostgreSQL.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/songquiz/internal/cache"
	"github.com/jason-s-yu/songquiz/internal/config"
	"github.com/jason-s-yu/songquiz/internal/database"
	"github.com/jason-s-yu/songquiz/internal/historian"
	_ "github.com/joho/godotenv/autoload"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(cfg.PostgresURL(), logger); err != nil {
		logger.Fatalf("migrations: %v", err)
	}
	if err := database.ConnectDB(ctx, cfg.PostgresURL()); err != nil {
		logger.Fatalf("database: %v", err)
	}
	defer database.Close()

	rdb, err := cache.ConnectRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	h := historian.New(rdb, database.ActionWriter{}, historian.Config{
		Queue:         cfg.Redis.Queue,
		BatchSize:     cfg.Historian.BatchSize,
		FlushInterval: cfg.Historian.FlushInterval,
	}, logger.WithField("component", "historian"))

	logger.Infof("historian reading from %s", cfg.Redis.Queue)
	h.Run(ctx)
	logger.Info("historian stopped")
}
