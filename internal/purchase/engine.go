// Package purchase records multi-line customer purchases against the shared
// inventory.
package purchase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/events"
	"github.com/safar/retail-pos/internal/models"
	"github.com/safar/retail-pos/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Options struct {
	// LockTimeout bounds the wait for each inventory row lock.
	LockTimeout time.Duration
	// MaxRetries is how many times a conflicting unit of work is retried
	// before TransactionConflict is reported.
	MaxRetries int
	// PublishTimeout bounds post-commit event publication.
	PublishTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		LockTimeout:    2 * time.Second,
		MaxRetries:     3,
		PublishTimeout: 3 * time.Second,
	}
}

type Engine struct {
	db        *sql.DB
	opts      Options
	publisher events.Publisher
	logger    *zap.Logger
}

func NewEngine(db *sql.DB, opts Options, publisher events.Publisher, logger *zap.Logger) *Engine {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultOptions().PublishTimeout
	}
	return &Engine{db: db, opts: opts, publisher: publisher, logger: logger}
}

// Submit validates every line against locked inventory and, only if all of
// them can be served, records the purchase and decrements stock in the same
// transaction. Either the returned purchase exists with its items and total,
// or nothing changed. Failures are *Error values.
func (e *Engine) Submit(ctx context.Context, requests []LineRequest) (*models.CustomerPurchase, error) {
	lines := normalizeLines(requests)
	if len(lines) == 0 {
		return nil, &Error{Kind: KindValidation, Err: ErrNoLines}
	}

	var purchase *models.CustomerPurchase

	err := database.WithRetry(ctx, e.db, database.TxOptions{
		IsolationLevel: sql.LevelReadCommitted,
		MaxRetries:     e.opts.MaxRetries,
		LockTimeout:    e.opts.LockTimeout,
	}, func(tx *sql.Tx) error {
		if err := e.validate(ctx, tx, lines); err != nil {
			return err
		}

		p, err := e.commit(ctx, tx, lines)
		if err != nil {
			return err
		}
		purchase = p
		return nil
	})
	if err != nil {
		perr := classify(err)
		e.logRejection(perr, len(lines))
		return nil, perr
	}

	e.logger.Info("purchase committed",
		zap.String("purchase_id", purchase.ID.String()),
		zap.String("total_amount", purchase.TotalAmount.StringFixed(2)),
		zap.Int("lines", len(purchase.Items)))

	e.publish(ctx, purchase)

	return purchase, nil
}

// validate resolves every product, locks every inventory row the submission
// touches and checks cumulative demand per product. It writes nothing.
func (e *Engine) validate(ctx context.Context, tx *sql.Tx, lines []line) error {
	for _, l := range lines {
		if _, err := store.GetProduct(ctx, tx, l.ProductID); err != nil {
			if errors.Is(err, database.ErrProductNotFound) {
				return &Error{Kind: KindProductNotFound, ProductID: l.ProductID, Line: l.Number, Err: err}
			}
			return err
		}
	}

	onHand := make(map[uuid.UUID]int, len(lines))
	for _, productID := range lockOrder(lines) {
		record, err := store.LockInventory(ctx, tx, productID)
		if err != nil {
			if errors.Is(err, database.ErrInventoryNotFound) {
				return &Error{Kind: KindProductNotFound, ProductID: productID, Line: firstLine(lines, productID), Err: err}
			}
			return err
		}
		onHand[productID] = record.Quantity
	}

	// demand never exceeds onHand, so the subtraction cannot overflow even
	// when a single quantity is close to math.MaxInt.
	demand := make(map[uuid.UUID]int, len(onHand))
	for _, l := range lines {
		prior := demand[l.ProductID]
		if l.Quantity > onHand[l.ProductID]-prior {
			return &Error{
				Kind:      KindInsufficientStock,
				ProductID: l.ProductID,
				Line:      l.Number,
				Requested: saturatingAdd(prior, l.Quantity),
				Available: onHand[l.ProductID],
				Err:       database.ErrInsufficientStock,
			}
		}
		demand[l.ProductID] = prior + l.Quantity
	}

	return nil
}

// commit writes the header, one item per line with the current price as its
// snapshot, decrements inventory and stores the accumulated total.
func (e *Engine) commit(ctx context.Context, tx *sql.Tx, lines []line) (*models.CustomerPurchase, error) {
	header, err := store.CreatePurchaseHeader(ctx, tx, uuid.New())
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for i, l := range lines {
		product, err := store.GetProduct(ctx, tx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("resolve product for line %d: %w", l.Number, err)
		}

		// Already held since validation; this re-reads the locked row.
		if _, err := store.LockInventory(ctx, tx, l.ProductID); err != nil {
			return nil, err
		}

		item, err := store.InsertPurchaseItem(ctx, tx, models.PurchaseItem{
			ID:         uuid.New(),
			PurchaseID: header.ID,
			ProductID:  product.ID,
			LineNo:     i + 1,
			Quantity:   l.Quantity,
			UnitPrice:  product.Price,
		})
		if err != nil {
			return nil, err
		}

		if err := store.DecrementInventory(ctx, tx, l.ProductID, l.Quantity); err != nil {
			if errors.Is(err, database.ErrInsufficientStock) {
				return nil, &Error{Kind: KindInsufficientStock, ProductID: l.ProductID, Line: l.Number, Requested: l.Quantity, Err: err}
			}
			return nil, err
		}

		total = total.Add(item.LineTotal())
	}

	if err := store.SetPurchaseTotal(ctx, tx, header.ID, total); err != nil {
		if errors.Is(err, database.ErrValueOutOfRange) {
			return nil, &Error{Kind: KindValidation, Err: err}
		}
		return nil, err
	}

	return store.GetPurchase(ctx, tx, header.ID)
}

func (e *Engine) publish(ctx context.Context, purchase *models.CustomerPurchase) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.PublishTimeout)
	defer cancel()

	if err := e.publisher.PublishPurchaseCommitted(pubCtx, events.NewPurchaseCommitted(purchase)); err != nil {
		e.logger.Warn("publish purchase event failed",
			zap.String("purchase_id", purchase.ID.String()),
			zap.Error(err))
	}
}

func (e *Engine) logRejection(perr *Error, lines int) {
	fields := []zap.Field{
		zap.String("kind", string(perr.Kind)),
		zap.Int("lines", lines),
		zap.Error(perr.Err),
	}
	if perr.ProductID != uuid.Nil {
		fields = append(fields, zap.String("product_id", perr.ProductID.String()), zap.Int("line", perr.Line))
	}

	if perr.Kind == KindStorageFailure {
		e.logger.Error("purchase failed", fields...)
		return
	}
	e.logger.Warn("purchase rejected", fields...)
}

// Get returns a committed purchase with its items.
func (e *Engine) Get(ctx context.Context, id uuid.UUID) (*models.CustomerPurchase, error) {
	return store.GetPurchase(ctx, e.db, id)
}

// List pages through committed purchases, newest first.
func (e *Engine) List(ctx context.Context, cursor string, limit int) (*store.CursorPage, error) {
	return store.ListPurchasesCursor(ctx, e.db, cursor, limit)
}

func classify(err error) *Error {
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	if database.IsRetryable(err) {
		return &Error{Kind: KindTransactionConflict, Err: err}
	}
	return &Error{Kind: KindStorageFailure, Err: err}
}

func saturatingAdd(a, b int) int {
	if b > math.MaxInt-a {
		return math.MaxInt
	}
	return a + b
}

func firstLine(lines []line, productID uuid.UUID) int {
	for _, l := range lines {
		if l.ProductID == productID {
			return l.Number
		}
	}
	return 0
}
