package store

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/safar/retail-pos/internal/database"
	"github.com/safar/retail-pos/internal/models"
	"github.com/safar/retail-pos/internal/testdb"
)

func TestCreateAndGetProduct(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	created, err := CreateProduct(ctx, db, NewProduct{
		Name:         "  A5 notebook ",
		Price:        decimal.RequireFromString("4.999"),
		Type:         models.ProductTypePaper,
		InitialStock: 12,
	})
	if err != nil {
		t.Fatalf("Create product: %v", err)
	}

	if created.Name != "A5 notebook" {
		t.Errorf("Expected trimmed name, got %q", created.Name)
	}
	if !created.Price.Equal(decimal.RequireFromString("5.00")) {
		t.Errorf("Expected price rounded to 5.00, got %s", created.Price)
	}
	if created.Quantity != 12 {
		t.Errorf("Expected stock 12, got %d", created.Quantity)
	}

	product, err := GetProduct(ctx, db, created.ID)
	if err != nil {
		t.Fatalf("Get product: %v", err)
	}
	if product.Type != models.ProductTypePaper {
		t.Errorf("Expected PAPER, got %s", product.Type)
	}

	if _, err := GetProduct(ctx, db, uuid.New()); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
}

func TestCreateProductValidation(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  NewProduct
	}{
		{"empty name", NewProduct{Name: " ", Price: decimal.NewFromInt(1), Type: models.ProductTypeOther}},
		{"negative price", NewProduct{Name: "Pen", Price: decimal.NewFromInt(-1), Type: models.ProductTypeWriting}},
		{"unknown type", NewProduct{Name: "Pen", Price: decimal.NewFromInt(1), Type: "FOOD"}},
		{"negative stock", NewProduct{Name: "Pen", Price: decimal.NewFromInt(1), Type: models.ProductTypeWriting, InitialStock: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CreateProduct(ctx, db, tt.req); !errors.Is(err, database.ErrInvalidProduct) {
				t.Errorf("Expected invalid product, got: %v", err)
			}
		})
	}
}

func TestUpdateProductPrice(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	product := createTestProduct(t, db, "Highlighter", "2.00", 5)

	updated, err := UpdateProductPrice(ctx, db, product.ID, decimal.RequireFromString("2.25"))
	if err != nil {
		t.Fatalf("Update price: %v", err)
	}
	if !updated.Price.Equal(decimal.RequireFromString("2.25")) {
		t.Errorf("Expected 2.25, got %s", updated.Price)
	}

	if _, err := UpdateProductPrice(ctx, db, uuid.New(), decimal.NewFromInt(1)); !errors.Is(err, database.ErrProductNotFound) {
		t.Errorf("Expected product not found, got: %v", err)
	}
	if _, err := UpdateProductPrice(ctx, db, product.ID, decimal.NewFromInt(-3)); !errors.Is(err, database.ErrInvalidProduct) {
		t.Errorf("Expected invalid product, got: %v", err)
	}
}

func TestListProducts(t *testing.T) {
	db := testdb.New(t)
	ctx := context.Background()

	for _, name := range []string{"Pencil", "Sharpener", "Compass"} {
		createTestProduct(t, db, name, "1.00", 3)
	}

	page, err := ListProducts(ctx, db, 1, 2)
	if err != nil {
		t.Fatalf("List products: %v", err)
	}
	if page.Total != 3 || page.TotalPages != 2 {
		t.Errorf("Expected 3 products over 2 pages, got %d over %d", page.Total, page.TotalPages)
	}
	if items := page.Items.([]models.ProductStock); len(items) != 2 {
		t.Errorf("Expected 2 items on page 1, got %d", len(items))
	}

	page, err = ListProducts(ctx, db, 2, 2)
	if err != nil {
		t.Fatalf("List products page 2: %v", err)
	}
	if items := page.Items.([]models.ProductStock); len(items) != 1 {
		t.Errorf("Expected 1 item on page 2, got %d", len(items))
	}
}

func TestNewProductValidate(t *testing.T) {
	valid := NewProduct{Name: "Pen", Price: decimal.NewFromInt(1), Type: models.ProductTypeWriting}

	tests := []struct {
		name    string
		mutate  func(p *NewProduct)
		wantErr bool
	}{
		{"valid", func(p *NewProduct) {}, false},
		{"100 persian letters", func(p *NewProduct) { p.Name = strings.Repeat("ک", 100) }, false},
		{"101 persian letters", func(p *NewProduct) { p.Name = strings.Repeat("ک", 101) }, true},
		{"padding is not counted", func(p *NewProduct) { p.Name = "  " + strings.Repeat("a", 100) + "  " }, false},
		{"highest price", func(p *NewProduct) { p.Price = decimal.RequireFromString("99999999.99") }, false},
		{"price rounds past column", func(p *NewProduct) { p.Price = decimal.RequireFromString("99999999.995") }, true},
		{"price too large", func(p *NewProduct) { p.Price = decimal.New(1, 8) }, true},
		{"stock too large", func(p *NewProduct) { p.InitialStock = math.MaxInt32 + 1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)

			err := p.validate()
			if tt.wantErr && !errors.Is(err, database.ErrInvalidProduct) {
				t.Errorf("Expected invalid product, got: %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected valid product, got: %v", err)
			}
		})
	}
}

func TestUpdateProductPriceRejectsOutOfRange(t *testing.T) {
	// Rejected before the database is used.
	for _, price := range []string{"-0.01", "100000000"} {
		_, err := UpdateProductPrice(context.Background(), nil, uuid.New(), decimal.RequireFromString(price))
		if !errors.Is(err, database.ErrInvalidProduct) {
			t.Errorf("Price %s: expected invalid product, got: %v", price, err)
		}
	}
}
