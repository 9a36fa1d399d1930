package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/models"
	"github.com/shopspring/decimal"
)

// CreatePurchaseHeader inserts an empty purchase whose total is written later
// by SetPurchaseTotal in the same transaction.
func CreatePurchaseHeader(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*models.CustomerPurchase, error) {
	purchase := &models.CustomerPurchase{}

	err := tx.QueryRowContext(ctx,
		`INSERT INTO customer_purchases (id, purchased_at, total_amount)
		 VALUES ($1, NOW(), 0)
		 RETURNING id, purchased_at, total_amount`,
		id).Scan(&purchase.ID, &purchase.PurchasedAt, &purchase.TotalAmount)
	if err != nil {
		return nil, fmt.Errorf("create purchase: %w", err)
	}

	return purchase, nil
}

func InsertPurchaseItem(ctx context.Context, tx *sql.Tx, item models.PurchaseItem) (*models.PurchaseItem, error) {
	if item.Quantity < 1 {
		return nil, database.ErrInvalidQuantity
	}
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}

	err := tx.QueryRowContext(ctx,
		`INSERT INTO purchase_items (id, purchase_id, product_id, line_no, quantity, unit_price, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING unit_price, created_at`,
		item.ID, item.PurchaseID, item.ProductID, item.LineNo, item.Quantity, item.UnitPrice).Scan(
		&item.UnitPrice,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create purchase item: %w", err)
	}

	return &item, nil
}

// MaxPurchaseTotal is the first amount that does not fit customer_purchases.total_amount.
var MaxPurchaseTotal = decimal.New(1, 10)

func SetPurchaseTotal(ctx context.Context, tx *sql.Tx, purchaseID uuid.UUID, total decimal.Decimal) error {
	result, err := tx.ExecContext(ctx,
		`UPDATE customer_purchases SET total_amount = $1 WHERE id = $2`,
		total, purchaseID)
	if err != nil {
		if database.IsNumericOutOfRange(err) {
			return fmt.Errorf("%w: purchase total %s exceeds %s", database.ErrValueOutOfRange, total.StringFixed(2), MaxPurchaseTotal)
		}
		return fmt.Errorf("set purchase total: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrPurchaseNotFound
	}

	return nil
}

// GetPurchase loads a purchase header and its items in line order.
func GetPurchase(ctx context.Context, q database.Querier, id uuid.UUID) (*models.CustomerPurchase, error) {
	purchase := &models.CustomerPurchase{}

	err := q.QueryRowContext(ctx,
		`SELECT id, purchased_at, total_amount
		 FROM customer_purchases
		 WHERE id = $1`,
		id).Scan(&purchase.ID, &purchase.PurchasedAt, &purchase.TotalAmount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrPurchaseNotFound
		}
		return nil, fmt.Errorf("get purchase: %w", err)
	}

	itemsQuery := `
		SELECT id, purchase_id, product_id, line_no, quantity, unit_price, created_at
		FROM purchase_items
		WHERE purchase_id = $1
		ORDER BY line_no`

	rows, err := q.QueryContext(ctx, itemsQuery, id)
	if err != nil {
		return nil, fmt.Errorf("get purchase items: %w", err)
	}
	defer rows.Close()

	var items []models.PurchaseItem
	for rows.Next() {
		var item models.PurchaseItem
		err := rows.Scan(
			&item.ID,
			&item.PurchaseID,
			&item.ProductID,
			&item.LineNo,
			&item.Quantity,
			&item.UnitPrice,
			&item.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan purchase item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	purchase.Items = items

	return purchase, nil
}

// ListPurchasesCursor pages through purchase headers, newest first.
func ListPurchasesCursor(ctx context.Context, q database.Querier, cursor string, limit int) (*CursorPage, error) {
	cursorData, err := DecodeCursor(cursor)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}

	var rows *sql.Rows
	if cursorData.IsZero() {
		rows, err = q.QueryContext(ctx,
			`SELECT id, purchased_at, total_amount
			 FROM customer_purchases
			 ORDER BY purchased_at DESC, id DESC
			 LIMIT $1`,
			limit+1)
	} else {
		rows, err = q.QueryContext(ctx,
			`SELECT id, purchased_at, total_amount
			 FROM customer_purchases
			 WHERE (purchased_at, id) < ($1::timestamptz, $2::uuid)
			 ORDER BY purchased_at DESC, id DESC
			 LIMIT $3`,
			cursorData.PurchasedAt, cursorData.ID, limit+1)
	}
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	defer rows.Close()

	purchases := []models.CustomerPurchase{}
	for rows.Next() {
		var purchase models.CustomerPurchase
		if err := rows.Scan(&purchase.ID, &purchase.PurchasedAt, &purchase.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan purchase: %w", err)
		}
		purchases = append(purchases, purchase)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	hasMore := len(purchases) > limit
	if hasMore {
		purchases = purchases[:limit]
	}

	var nextCursor string
	if hasMore && len(purchases) > 0 {
		last := purchases[len(purchases)-1]
		nextCursor = EncodeCursor(PurchaseCursor{
			PurchasedAt: last.PurchasedAt,
			ID:          last.ID,
		})
	}

	return &CursorPage{
		Items:      purchases,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}
