package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/models"
)

// LockInventory reads the inventory record for productID and holds a row lock
// on it until tx ends. The wait for the lock is bounded by the transaction's
// lock_timeout; expiry is reported as database.ErrLockTimeout.
func LockInventory(ctx context.Context, tx *sql.Tx, productID uuid.UUID) (*models.InventoryRecord, error) {
	record := &models.InventoryRecord{}

	query := `
		SELECT id, product_id, quantity, updated_at
		FROM inventory
		WHERE product_id = $1
		FOR UPDATE`

	err := tx.QueryRowContext(ctx, query, productID).Scan(
		&record.ID,
		&record.ProductID,
		&record.Quantity,
		&record.UpdatedAt,
	)
	if err != nil {
		if database.IsLockNotAvailable(err) {
			return nil, fmt.Errorf("lock inventory %s: %w", productID, database.ErrLockTimeout)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("lock inventory %s: %w", productID, err)
	}

	return record, nil
}

// DecrementInventory subtracts amount from the product's quantity on hand.
// The caller must already hold the row lock from LockInventory in the same
// transaction; the guard on quantity still refuses to go below zero.
func DecrementInventory(ctx context.Context, tx *sql.Tx, productID uuid.UUID, amount int) error {
	if amount < 1 {
		return database.ErrInvalidQuantity
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE inventory
		 SET quantity = quantity - $1,
		     updated_at = NOW()
		 WHERE product_id = $2
		   AND quantity >= $1`,
		amount, productID)
	if err != nil {
		if database.IsLockNotAvailable(err) {
			return fmt.Errorf("decrement inventory %s: %w", productID, database.ErrLockTimeout)
		}
		if database.IsCheckViolation(err) {
			return database.ErrInsufficientStock
		}
		return fmt.Errorf("decrement inventory: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrInsufficientStock
	}

	return nil
}

// RestockInventory adds amount to the product's quantity on hand, as when a
// wholesale delivery is received.
func RestockInventory(ctx context.Context, q database.Querier, productID uuid.UUID, amount int) (*models.InventoryRecord, error) {
	if amount < 1 {
		return nil, database.ErrInvalidQuantity
	}

	record := &models.InventoryRecord{}

	err := q.QueryRowContext(ctx,
		`UPDATE inventory
		 SET quantity = quantity + $1,
		     updated_at = NOW()
		 WHERE product_id = $2
		 RETURNING id, product_id, quantity, updated_at`,
		amount, productID).Scan(
		&record.ID,
		&record.ProductID,
		&record.Quantity,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrInventoryNotFound
		}
		if database.IsNumericOutOfRange(err) {
			return nil, fmt.Errorf("%w: restocking %d would exceed the largest storable quantity", database.ErrInvalidQuantity, amount)
		}
		return nil, fmt.Errorf("restock inventory: %w", err)
	}

	return record, nil
}

func GetInventory(ctx context.Context, q database.Querier, productID uuid.UUID) (*models.InventoryRecord, error) {
	record := &models.InventoryRecord{}

	err := q.QueryRowContext(ctx,
		`SELECT id, product_id, quantity, updated_at
		 FROM inventory
		 WHERE product_id = $1`,
		productID).Scan(
		&record.ID,
		&record.ProductID,
		&record.Quantity,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrInventoryNotFound
		}
		return nil, fmt.Errorf("get inventory: %w", err)
	}

	return record, nil
}

// ListLowStock returns products whose quantity on hand is at or below
// threshold, emptiest first.
func ListLowStock(ctx context.Context, q database.Querier, threshold int) ([]models.ProductStock, error) {
	query := `SELECT` + productStockColumns + `
		FROM products p
		JOIN inventory i ON i.product_id = p.id
		WHERE i.quantity <= $1
		ORDER BY i.quantity, p.name`

	rows, err := q.QueryContext(ctx, query, threshold)
	if err != nil {
		return nil, fmt.Errorf("list low stock: %w", err)
	}
	defer rows.Close()

	var products []models.ProductStock
	for rows.Next() {
		var product models.ProductStock
		if err := scanProductStock(rows, &product); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}
