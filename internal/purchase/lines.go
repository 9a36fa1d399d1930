package purchase

import (
	"bytes"
	"slices"

	"github.com/google/uuid"
)

// LineRequest is one (product, quantity) pair as submitted by the caller.
type LineRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// line is a LineRequest that survived normalization. Number is its 1-based
// position in the original submission so errors point at the row the user
// typed.
type line struct {
	Number    int
	ProductID uuid.UUID
	Quantity  int
}

// normalizeLines drops entries without a product or with a non-positive
// quantity. Duplicate products stay separate lines in submission order.
func normalizeLines(requests []LineRequest) []line {
	lines := make([]line, 0, len(requests))
	for i, req := range requests {
		if req.ProductID == uuid.Nil || req.Quantity <= 0 {
			continue
		}
		lines = append(lines, line{
			Number:    i + 1,
			ProductID: req.ProductID,
			Quantity:  req.Quantity,
		})
	}
	return lines
}

// lockOrder returns the distinct products of lines in ascending id order.
// Every submission locks inventory rows in this order, so two purchases that
// share products cannot deadlock on each other.
func lockOrder(lines []line) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}

	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return bytes.Compare(a[:], b[:])
	})
	return ids
}
