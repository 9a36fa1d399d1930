package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ProductType string

const (
	ProductTypeWriting   ProductType = "WRITING"
	ProductTypePaper     ProductType = "PAPER"
	ProductTypeAccessory ProductType = "ACCESSORY"
	ProductTypeStorage   ProductType = "STORAGE"
	ProductTypeOther     ProductType = "OTHER"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeWriting, ProductTypePaper, ProductTypeAccessory, ProductTypeStorage, ProductTypeOther:
		return true
	}
	return false
}

type Product struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Type      ProductType     `json:"product_type"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// InventoryRecord is the quantity on hand for exactly one product.
type InventoryRecord struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProductStock joins a product with its inventory record.
type ProductStock struct {
	Product
	Quantity       int       `json:"quantity"`
	StockUpdatedAt time.Time `json:"stock_updated_at"`
}

type CustomerPurchase struct {
	ID          uuid.UUID       `json:"id"`
	PurchasedAt time.Time       `json:"purchased_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []PurchaseItem  `json:"items,omitempty"`
}

// ItemsTotal sums the line totals of the loaded items.
func (p *CustomerPurchase) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range p.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// PurchaseItem is one line of a purchase. UnitPrice is the product price at
// the time of sale.
type PurchaseItem struct {
	ID         uuid.UUID       `json:"id"`
	PurchaseID uuid.UUID       `json:"purchase_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	LineNo     int             `json:"line_no"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (i PurchaseItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
