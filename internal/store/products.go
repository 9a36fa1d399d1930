package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/models"
	"github.com/shopspring/decimal"
)

// NewProduct is the input for CreateProduct.
type NewProduct struct {
	Name         string
	Price        decimal.Decimal
	Type         models.ProductType
	InitialStock int
}

// MaxPrice is the first price that does not fit products.price.
var MaxPrice = decimal.New(1, 8)

const maxNameLength = 100

func (p NewProduct) validate() error {
	name := strings.TrimSpace(p.Name)
	switch {
	case name == "":
		return fmt.Errorf("%w: name is required", database.ErrInvalidProduct)
	case utf8.RuneCountInString(name) > maxNameLength:
		return fmt.Errorf("%w: name longer than %d characters", database.ErrInvalidProduct, maxNameLength)
	}
	if err := validatePrice(p.Price); err != nil {
		return err
	}
	switch {
	case !p.Type.Valid():
		return fmt.Errorf("%w: unknown product type %q", database.ErrInvalidProduct, p.Type)
	case p.InitialStock < 0:
		return fmt.Errorf("%w: initial stock must not be negative", database.ErrInvalidProduct)
	case p.InitialStock > math.MaxInt32:
		return fmt.Errorf("%w: initial stock too large", database.ErrInvalidProduct)
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	switch {
	case price.IsNegative():
		return fmt.Errorf("%w: price must not be negative", database.ErrInvalidProduct)
	case price.Round(2).GreaterThanOrEqual(MaxPrice):
		return fmt.Errorf("%w: price must be below %s", database.ErrInvalidProduct, MaxPrice)
	}
	return nil
}

const productStockColumns = `
	p.id, p.name, p.price, p.product_type, p.created_at, p.updated_at,
	i.quantity, i.updated_at`

func scanProductStock(row interface{ Scan(...any) error }, ps *models.ProductStock) error {
	return row.Scan(
		&ps.ID,
		&ps.Name,
		&ps.Price,
		&ps.Type,
		&ps.CreatedAt,
		&ps.UpdatedAt,
		&ps.Quantity,
		&ps.StockUpdatedAt,
	)
}

// CreateProduct inserts a product together with its inventory record.
func CreateProduct(ctx context.Context, db *sql.DB, req NewProduct) (*models.ProductStock, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	product := &models.ProductStock{}

	err := database.WithTransaction(ctx, db, database.DefaultTxOptions(), func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO products (id, name, price, product_type, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, NOW(), NOW())
			 RETURNING id, name, price, product_type, created_at, updated_at`,
			uuid.New(), strings.TrimSpace(req.Name), req.Price.Round(2), req.Type).Scan(
			&product.ID,
			&product.Name,
			&product.Price,
			&product.Type,
			&product.CreatedAt,
			&product.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO inventory (id, product_id, quantity, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 RETURNING quantity, updated_at`,
			uuid.New(), product.ID, req.InitialStock).Scan(&product.Quantity, &product.StockUpdatedAt)
		if err != nil {
			return fmt.Errorf("create inventory record: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return product, nil
}

func GetProduct(ctx context.Context, q database.Querier, id uuid.UUID) (*models.Product, error) {
	product := &models.Product{}

	query := `
		SELECT id, name, price, product_type, created_at, updated_at
		FROM products
		WHERE id = $1`

	err := q.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Type,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return product, nil
}

// GetProductStock returns the product with its current quantity on hand.
func GetProductStock(ctx context.Context, q database.Querier, id uuid.UUID) (*models.ProductStock, error) {
	product := &models.ProductStock{}

	query := `SELECT` + productStockColumns + `
		FROM products p
		JOIN inventory i ON i.product_id = p.id
		WHERE p.id = $1`

	if err := scanProductStock(q.QueryRowContext(ctx, query, id), product); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("get product stock: %w", err)
	}

	return product, nil
}

// UpdateProductPrice changes the catalog price. Purchase items already
// recorded keep the price they were sold at.
func UpdateProductPrice(ctx context.Context, db *sql.DB, id uuid.UUID, price decimal.Decimal) (*models.Product, error) {
	if err := validatePrice(price); err != nil {
		return nil, err
	}

	product := &models.Product{}

	err := db.QueryRowContext(ctx,
		`UPDATE products
		 SET price = $1, updated_at = NOW()
		 WHERE id = $2
		 RETURNING id, name, price, product_type, created_at, updated_at`,
		price.Round(2), id).Scan(
		&product.ID,
		&product.Name,
		&product.Price,
		&product.Type,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, database.ErrProductNotFound
		}
		return nil, fmt.Errorf("update product price: %w", err)
	}

	return product, nil
}

// DeleteProduct removes a product. The schema cascades the delete to its
// inventory record and to every purchase item that references it.
func DeleteProduct(ctx context.Context, db *sql.DB, id uuid.UUID) error {
	result, err := db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return database.ErrProductNotFound
	}

	return nil
}

func ListProducts(ctx context.Context, db *sql.DB, page, pageSize int) (*OffsetPage, error) {
	var total int64
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT` + productStockColumns + `
		FROM products p
		JOIN inventory i ON i.product_id = p.id
		ORDER BY p.created_at DESC, p.id
		LIMIT $1 OFFSET $2`

	rows, err := db.QueryContext(ctx, query, pageSize, offset)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []models.ProductStock{}
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

	return newOffsetPage(products, total, page, pageSize), nil
}
