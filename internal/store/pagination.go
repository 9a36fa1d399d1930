package store

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type CursorPage struct {
	Items      interface{} `json:"items"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

type OffsetPage struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

func newOffsetPage(items interface{}, total int64, page, pageSize int) *OffsetPage {
	totalPages := int(total) / pageSize
	if int(total)%pageSize > 0 {
		totalPages++
	}

	return &OffsetPage{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}

// PurchaseCursor marks the last purchase of a page in (purchased_at, id)
// order.
type PurchaseCursor struct {
	PurchasedAt time.Time `json:"purchased_at"`
	ID          uuid.UUID `json:"id"`
}

func (c PurchaseCursor) IsZero() bool {
	return c.PurchasedAt.IsZero() && c.ID == uuid.Nil
}

func EncodeCursor(cursor PurchaseCursor) string {
	data, err := json.Marshal(cursor)
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor produced by EncodeCursor. The empty string
// decodes to the zero cursor, meaning the first page.
func DecodeCursor(encoded string) (PurchaseCursor, error) {
	var cursor PurchaseCursor
	if encoded == "" {
		return cursor, nil
	}

	data, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return cursor, err
	}

	err = json.Unmarshal(data, &cursor)
	return cursor, err
}
