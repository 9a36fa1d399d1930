package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/models"
	"github.com/safar/retail-pos/internal/testdb"
)

func createTestProduct(t *testing.T, db *sql.DB, name, price string, stock int) *models.ProductStock {
	t.Helper()

	product, err := CreateProduct(context.Background(), db, NewProduct{
		Name:         name,
		Price:        decimal.RequireFromString(price),
		Type:         models.ProductTypeWriting,
		InitialStock: stock,
	})
	if err != nil {
		t.Fatalf("Create product %s: %v", name, err)
	}
	return product
}

func TestConcurrentLockAndDecrement(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Gel pen", "1.20", 10)

	concurrency := 5
	var wg sync.WaitGroup
	errs := make(chan error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
				record, err := LockInventory(ctx, tx, product.ID)
				if err != nil {
					return err
				}
				if record.Quantity < 3 {
					return database.ErrInsufficientStock
				}
				return DecrementInventory(ctx, tx, product.ID, 3)
			})

			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	successCount := 0
	for err := range errs {
		switch {
		case err == nil:
			successCount++
		case errors.Is(err, database.ErrInsufficientStock):
		default:
			t.Errorf("Unexpected error: %v", err)
		}
	}

	if successCount != 3 {
		t.Errorf("Expected 3 successful decrements, got %d", successCount)
	}

	record, err := GetInventory(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get inventory: %v", err)
	}
	if record.Quantity != 1 {
		t.Errorf("Expected stock 1, got %d", record.Quantity)
	}
}

func TestLockInventoryTimeout(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Stapler", "7.00", 20)

	tx1, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin tx1: %v", err)
	}
	defer func() { _ = tx1.Rollback() }()

	if _, err := LockInventory(ctx, tx1, product.ID); err != nil {
		t.Fatalf("Lock inventory in tx1: %v", err)
	}

	tx2, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("Begin tx2: %v", err)
	}
	defer func() { _ = tx2.Rollback() }()

	if err := database.SetLockTimeout(ctx, tx2, 100*time.Millisecond); err != nil {
		t.Fatalf("Set lock timeout: %v", err)
	}

	_, err = LockInventory(ctx, tx2, product.ID)
	if !errors.Is(err, database.ErrLockTimeout) {
		t.Fatalf("Expected lock timeout, got: %v", err)
	}
	if !database.IsRetryable(err) {
		t.Error("Lock timeout should be retryable")
	}
}

func TestLockInventoryMissing(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		_, err := LockInventory(ctx, tx, uuid.New())
		return err
	})
	if !errors.Is(err, database.ErrInventoryNotFound) {
		t.Errorf("Expected inventory not found, got: %v", err)
	}
}

func TestDecrementInventoryGuard(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Eraser", "0.50", 2)

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		if _, err := LockInventory(ctx, tx, product.ID); err != nil {
			return err
		}
		return DecrementInventory(ctx, tx, product.ID, 3)
	})
	if !errors.Is(err, database.ErrInsufficientStock) {
		t.Errorf("Expected insufficient stock, got: %v", err)
	}

	err = database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		return DecrementInventory(ctx, tx, product.ID, 0)
	})
	if !errors.Is(err, database.ErrInvalidQuantity) {
		t.Errorf("Expected invalid quantity, got: %v", err)
	}

	record, err := GetInventory(ctx, db, product.ID)
	if err != nil {
		t.Fatalf("Get inventory: %v", err)
	}
	if record.Quantity != 2 {
		t.Errorf("Stock should remain unchanged at 2, got %d", record.Quantity)
	}
}

func TestRestockInventory(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Ruler", "2.00", 1)

	record, err := RestockInventory(ctx, db, product.ID, 24)
	if err != nil {
		t.Fatalf("Restock: %v", err)
	}
	if record.Quantity != 25 {
		t.Errorf("Expected stock 25, got %d", record.Quantity)
	}
	if !record.UpdatedAt.After(product.StockUpdatedAt) && !record.UpdatedAt.Equal(product.StockUpdatedAt) {
		t.Errorf("Expected updated_at to move forward")
	}

	if _, err := RestockInventory(ctx, db, product.ID, -1); !errors.Is(err, database.ErrInvalidQuantity) {
		t.Errorf("Expected invalid quantity, got: %v", err)
	}
	if _, err := RestockInventory(ctx, db, uuid.New(), 1); !errors.Is(err, database.ErrInventoryNotFound) {
		t.Errorf("Expected inventory not found, got: %v", err)
	}
	if _, err := RestockInventory(ctx, db, product.ID, math.MaxInt32); !errors.Is(err, database.ErrInvalidQuantity) {
		t.Errorf("Expected invalid quantity on overflow, got: %v", err)
	}
}

func TestListLowStock(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	empty := createTestProduct(t, db, "Glue stick", "1.10", 0)
	low := createTestProduct(t, db, "Sticky notes", "3.40", 4)
	createTestProduct(t, db, "Binder", "5.00", 40)

	products, err := ListLowStock(ctx, db, 5)
	if err != nil {
		t.Fatalf("List low stock: %v", err)
	}

	if len(products) != 2 {
		t.Fatalf("Expected 2 low stock products, got %d", len(products))
	}
	if products[0].ID != empty.ID || products[1].ID != low.ID {
		t.Errorf("Expected emptiest first, got %s then %s", products[0].Name, products[1].Name)
	}
}
