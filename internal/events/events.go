// Package events announces committed purchases to other back-office
// consumers. Publication happens after commit and never affects the purchase.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/safar/retail-pos/internal/models"
	"github.com/shopspring/decimal"
)

const RoutingKeyPurchaseCommitted = "purchase.committed"

type PurchaseCommitted struct {
	EventID     uuid.UUID       `json:"event_id"`
	PurchaseID  uuid.UUID       `json:"purchase_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []CommittedLine `json:"lines"`
	PurchasedAt time.Time       `json:"purchased_at"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

type CommittedLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func NewPurchaseCommitted(p *models.CustomerPurchase) PurchaseCommitted {
	lines := make([]CommittedLine, 0, len(p.Items))
	for _, item := range p.Items {
		lines = append(lines, CommittedLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return PurchaseCommitted{
		EventID:     uuid.New(),
		PurchaseID:  p.ID,
		TotalAmount: p.TotalAmount,
		Lines:       lines,
		PurchasedAt: p.PurchasedAt,
		OccurredAt:  time.Now().UTC(),
	}
}

type Publisher interface {
	PublishPurchaseCommitted(ctx context.Context, event PurchaseCommitted) error
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishPurchaseCommitted(context.Context, PurchaseCommitted) error {
	return nil
}
