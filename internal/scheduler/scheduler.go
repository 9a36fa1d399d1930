package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/safar/retail-pos/internal/models"
)

// LowStockFunc lists products at or below threshold.
type LowStockFunc func(ctx context.Context, threshold int) ([]models.ProductStock, error)

// StockSweeper periodically logs products that are running low so staff can
// reorder from a wholesaler.
type StockSweeper struct {
	cron      *cron.Cron
	lowStock  LowStockFunc
	threshold int
	schedule  string
	timeout   time.Duration
	logger    *zap.Logger
}

func NewStockSweeper(lowStock LowStockFunc, threshold int, schedule string, logger *zap.Logger) *StockSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StockSweeper{
		cron:      cron.New(),
		lowStock:  lowStock,
		threshold: threshold,
		schedule:  schedule,
		timeout:   time.Minute,
		logger:    logger,
	}
}

// Start registers the sweep and starts the cron runner. An empty schedule
// disables the sweeper.
func (s *StockSweeper) Start() error {
	if s.schedule == "" {
		s.logger.Info("low stock sweep disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("schedule low stock sweep: %w", err)
	}

	s.logger.Info("starting scheduler",
		zap.String("schedule", s.schedule),
		zap.Int("threshold", s.threshold))
	s.cron.Start()
	return nil
}

// Stop halts the runner and waits for a sweep in progress.
func (s *StockSweeper) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *StockSweeper) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("low stock sweep failed", zap.Error(err))
	}
}

// Sweep runs one pass and returns the products it reported.
func (s *StockSweeper) Sweep(ctx context.Context) ([]models.ProductStock, error) {
	products, err := s.lowStock(ctx, s.threshold)
	if err != nil {
		return nil, err
	}

	for _, p := range products {
		s.logger.Warn("low stock",
			zap.String("product_id", p.ID.String()),
			zap.String("name", p.Name),
			zap.String("product_type", string(p.Type)),
			zap.Int("quantity", p.Quantity))
	}

	s.logger.Info("low stock sweep finished", zap.Int("products", len(products)))
	return products, nil
}
