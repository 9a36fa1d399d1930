package main

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/safar/retail-pos/internal/config"
	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/migrations"
	"github.com/safar/retail-pos/pkg/logger"
)

func main() {
	log := logger.Named(logger.Must(logger.New("info")), "migrate")
	defer func() { _ = log.Sync() }()

	if len(os.Args) < 2 {
		log.Fatal("usage: go run scripts/run_migrations.go [up|down]")
	}
	direction := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("load config", zap.Error(err))
	}

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := database.Migrate(ctx, db, migrations.FS, direction)
	if err != nil {
		log.Fatal("run migrations", zap.Int("completed", n), zap.Error(err))
	}

	log.Info("migrations finished", zap.Int("count", n), zap.String("direction", direction))
}
