// cmd/historian/main.go drains the archive queue of ended matches into PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/automatch/internal/config"
	"github.com/jason-s-yu/automatch/internal/database"
	"github.com/jason-s-yu/automatch/internal/historian"
	"github.com/jason-s-yu/automatch/internal/store"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()

	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.ArchiveQueue == "" {
		logger.Fatal("ARCHIVE_QUEUE is not set; nothing to drain")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := store.Connect(ctx, store.Options{URL: cfg.RedisURL, Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer s.Close()

	pool, err := database.ConnectDB(ctx, database.ConnString())
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	archive := database.NewMatchArchive(pool)
	if err := archive.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	hs := historian.NewService(s, archive, historian.Options{
		Queue:      cfg.ArchiveQueue,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlush,
	}, logger)

	logger.Infof("historian: draining %q", cfg.ArchiveQueue)
	hs.Run(ctx)
	logger.Info("historian: stopped")
}
