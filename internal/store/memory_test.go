package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryShowNotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.Show(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryUpdateMetadataShallowMerge(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, err := s.Create(ctx, Entity{
		ID:   "plan-1",
		Type: TypePlan,
		Metadata: map[string]any{
			"orderId": "order-1",
			"orderDetail": map[string]any{
				"2024-03-11": map[string]any{"memberOrders": map[string]any{"alice": "pho"}},
				"2024-03-12": map[string]any{"memberOrders": map[string]any{"bob": "bun"}},
			},
		},
	})
	require.NoError(t, err)

	// The merge is shallow: replacing orderDetail drops the day that the
	// partial does not carry. Callers must write the whole nested value.
	updated, err := s.UpdateMetadata(ctx, "plan-1", map[string]any{
		"orderDetail": map[string]any{
			"2024-03-11": map[string]any{"memberOrders": map[string]any{"alice": "bun"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "order-1", updated.Metadata["orderId"])
	detail := updated.Metadata["orderDetail"].(map[string]any)
	assert.Contains(t, detail, "2024-03-11")
	assert.NotContains(t, detail, "2024-03-12")
}

func TestMemoryUpdateMetadataCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	partial := map[string]any{"note": map[string]any{"v": 1}}
	_, err := s.Create(ctx, Entity{ID: "order-1", Type: TypeOrder, Metadata: partial})
	require.NoError(t, err)

	partial["note"].(map[string]any)["v"] = 2

	entity, err := s.Show(ctx, "order-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, entity.Metadata["note"].(map[string]any)["v"])
}

func TestMemoryQueryFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	for _, id := range []string{"r1", "r2", "r3"} {
		_, err := s.Create(ctx, Entity{
			ID:       id,
			Type:     TypeRating,
			Metadata: map[string]any{"companyId": "acme"},
		})
		require.NoError(t, err)
	}
	_, err := s.Create(ctx, Entity{
		ID:       "r-other",
		Type:     TypeRating,
		Metadata: map[string]any{"companyId": "globex"},
	})
	require.NoError(t, err)

	entities, meta, err := s.Query(ctx, Filter{
		Type:    TypeRating,
		Equals:  map[string]any{"companyId": "acme"},
		Page:    1,
		PerPage: 2,
	})
	require.NoError(t, err)
	assert.Len(t, entities, 2)
	assert.Equal(t, 3, meta.TotalItems)
	assert.Equal(t, 2, meta.TotalPages)

	entities, _, err = s.Query(ctx, Filter{
		Type:    TypeRating,
		Equals:  map[string]any{"companyId": "acme"},
		Page:    2,
		PerPage: 2,
	})
	require.NoError(t, err)
	assert.Len(t, entities, 1)
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLedger()

	first, err := l.CreatePayment(ctx, PaymentRecord{
		PaymentType: "client",
		OrderID:     "order-1",
		Amount:      100000,
	})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	_, err = l.CreatePayment(ctx, PaymentRecord{
		PaymentType:  "partner",
		OrderID:      "order-1",
		SubOrderDate: "2024-03-11",
		Amount:       40000,
	})
	require.NoError(t, err)

	paid, err := l.SumPaid(ctx, PaymentFilter{PaymentType: "client", OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(100000), paid)

	records, err := l.ListPayments(ctx, PaymentFilter{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Len(t, records, 2)

	require.NoError(t, l.DeletePayment(ctx, first.ID))
	assert.ErrorIs(t, l.DeletePayment(ctx, first.ID), ErrNotFound)

	paid, err = l.SumPaid(ctx, PaymentFilter{OrderID: "order-1"})
	require.NoError(t, err)
	assert.Equal(t, int64(40000), paid)
}
