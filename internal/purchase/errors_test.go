package purchase

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"

	"github.com/safar/retail-pos/internal/database"
)

func TestErrorUnwrap(t *testing.T) {
	id := uuid.New()
	err := fmt.Errorf("checkout: %w", &Error{
		Kind:      KindInsufficientStock,
		ProductID: id,
		Line:      2,
		Requested: 7,
		Available: 5,
		Err:       database.ErrInsufficientStock,
	})

	assert.ErrorIs(t, err, database.ErrInsufficientStock)
	assert.Equal(t, KindInsufficientStock, KindOf(err))

	var perr *Error
	if assert.ErrorAs(t, err, &perr) {
		assert.Equal(t, id, perr.ProductID)
		assert.False(t, perr.Retryable())
		assert.Contains(t, perr.Error(), "requested 7, available 5")
	}
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindStorageFailure, KindOf(errors.New("disk full")))
	assert.Equal(t, KindValidation, KindOf(&Error{Kind: KindValidation, Err: ErrNoLines}))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"domain error passes through", &Error{Kind: KindProductNotFound, Err: database.ErrProductNotFound}, KindProductNotFound},
		{"lock timeout", fmt.Errorf("max retries (3) exceeded: %w", fmt.Errorf("lock inventory: %w", database.ErrLockTimeout)), KindTransactionConflict},
		{"deadlock", &pq.Error{Code: "40P01"}, KindTransactionConflict},
		{"serialization", fmt.Errorf("commit transaction: %w", &pq.Error{Code: "40001"}), KindTransactionConflict},
		{"unique violation", &pq.Error{Code: "23505"}, KindStorageFailure},
		{"unknown", errors.New("connection reset"), KindStorageFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perr := classify(tt.err)
			assert.Equal(t, tt.want, perr.Kind)
			assert.Equal(t, tt.want == KindTransactionConflict, perr.Retryable())
		})
	}
}
