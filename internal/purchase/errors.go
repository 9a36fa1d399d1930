package purchase

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type Kind string

const (
	KindValidation          Kind = "validation"
	KindProductNotFound     Kind = "product_not_found"
	KindInsufficientStock   Kind = "insufficient_stock"
	KindTransactionConflict Kind = "transaction_conflict"
	KindStorageFailure      Kind = "storage_failure"
)

var ErrNoLines = errors.New("at least one line with a product and a positive quantity is required")

// Error is the structured failure returned by Engine.Submit. Line is the
// 1-based position of the offending entry in the submission, or 0 when the
// failure is not tied to a line.
type Error struct {
	Kind      Kind
	ProductID uuid.UUID
	Line      int
	Requested int
	Available int
	Err       error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindProductNotFound:
		return fmt.Sprintf("line %d: product %s: %v", e.Line, e.ProductID, e.Err)
	case KindInsufficientStock:
		return fmt.Sprintf("line %d: product %s: %v (requested %d, available %d)",
			e.Line, e.ProductID, e.Err, e.Requested, e.Available)
	default:
		if e.Err == nil {
			return string(e.Kind)
		}
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the same lines may succeed without
// any change by the user.
func (e *Error) Retryable() bool {
	return e.Kind == KindTransactionConflict
}

// KindOf returns the kind of a Submit error, or "" for nil. Errors that are
// not *Error are storage failures.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}
	return KindStorageFailure
}
