package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductTypeValid(t *testing.T) {
	for _, pt := range []ProductType{
		ProductTypeWriting, ProductTypePaper, ProductTypeAccessory, ProductTypeStorage, ProductTypeOther,
	} {
		assert.True(t, pt.Valid(), pt)
	}

	assert.False(t, ProductType("").Valid())
	assert.False(t, ProductType("writing").Valid())
	assert.False(t, ProductType("FOOD").Valid())
}

func TestItemsTotal(t *testing.T) {
	purchase := &CustomerPurchase{
		Items: []PurchaseItem{
			{Quantity: 3, UnitPrice: decimal.RequireFromString("10.00")},
			{Quantity: 2, UnitPrice: decimal.RequireFromString("2.45")},
			{Quantity: 1, UnitPrice: decimal.Zero},
		},
	}

	assert.True(t, decimal.RequireFromString("34.90").Equal(purchase.ItemsTotal()))
	assert.True(t, decimal.Zero.Equal((&CustomerPurchase{}).ItemsTotal()))
}
