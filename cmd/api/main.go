package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/safar/retail-pos/internal/config"
	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/events"
	"github.com/safar/retail-pos/internal/purchase"
	"github.com/safar/retail-pos/internal/scheduler"
	"github.com/safar/retail-pos/internal/server/handlers"
	"github.com/safar/retail-pos/internal/server/router"
	"github.com/safar/retail-pos/internal/store"
	"github.com/safar/retail-pos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		baseLogger.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	baseLogger.Info("connected to database")

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.AMQPURL != "" {
		amqpPublisher := events.NewAMQPPublisher(cfg.Events.AMQPURL, cfg.Events.Exchange, logger.Named(baseLogger, "events"))
		if err := amqpPublisher.Connect(); err != nil {
			baseLogger.Fatal("connect to broker", zap.Error(err))
		}
		defer func() {
			if err := amqpPublisher.Close(); err != nil {
				baseLogger.Error("close broker connection", zap.Error(err))
			}
		}()
		publisher = amqpPublisher
	} else {
		baseLogger.Warn("AMQP_URL not set, purchase events disabled")
	}

	engine := purchase.NewEngine(db, purchase.Options{
		LockTimeout: cfg.Purchase.LockTimeout,
		MaxRetries:  cfg.Purchase.MaxRetries,
	}, publisher, logger.Named(baseLogger, "purchase"))
	catalog := store.NewCatalog(db)

	sweeper := scheduler.NewStockSweeper(catalog.LowStock,
		cfg.Inventory.LowStockThreshold,
		cfg.Inventory.LowStockSchedule,
		logger.Named(baseLogger, "scheduler"))
	if err := sweeper.Start(); err != nil {
		baseLogger.Fatal("start scheduler", zap.Error(err))
	}
	defer sweeper.Stop()

	handler := router.New(
		handlers.NewPurchaseHandler(engine, logger.Named(baseLogger, "handlers.purchases")),
		handlers.NewProductHandler(catalog, logger.Named(baseLogger, "handlers.products")),
		logger.Named(baseLogger, "router"),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}
