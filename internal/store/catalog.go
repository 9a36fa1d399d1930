package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/safar/retail-pos/internal/models"
	"github.com/shopspring/decimal"
)

// Catalog binds the catalog and inventory functions to a connection pool for
// callers that want a value rather than a *sql.DB.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(db *sql.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Create(ctx context.Context, req NewProduct) (*models.ProductStock, error) {
	return CreateProduct(ctx, c.db, req)
}

func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (*models.ProductStock, error) {
	return GetProductStock(ctx, c.db, id)
}

func (c *Catalog) List(ctx context.Context, page, pageSize int) (*OffsetPage, error) {
	return ListProducts(ctx, c.db, page, pageSize)
}

func (c *Catalog) UpdatePrice(ctx context.Context, id uuid.UUID, price decimal.Decimal) (*models.Product, error) {
	return UpdateProductPrice(ctx, c.db, id, price)
}

func (c *Catalog) Delete(ctx context.Context, id uuid.UUID) error {
	return DeleteProduct(ctx, c.db, id)
}

func (c *Catalog) Restock(ctx context.Context, id uuid.UUID, amount int) (*models.InventoryRecord, error) {
	return RestockInventory(ctx, c.db, id, amount)
}

func (c *Catalog) LowStock(ctx context.Context, threshold int) ([]models.ProductStock, error) {
	return ListLowStock(ctx, c.db, threshold)
}
