package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitiate(t *testing.T) {
	var got TransactionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/transactions/initiate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(TransactionResponse{
			TransactionID:  "tx-1",
			LastTransition: "transition/initiate-transaction",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	resp, err := c.Initiate(context.Background(), TransactionRequest{
		OrderID:        "order-1",
		PlanID:         "plan-1",
		SubOrderDate:   "2024-03-11",
		RestaurantID:   "rest-1",
		Transition:     "transition/initiate-transaction",
		IsLastTxOfPlan: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "tx-1", resp.TransactionID)
	assert.Equal(t, "order-1", got.OrderID)
	assert.True(t, got.IsLastTxOfPlan)
}

func TestInitiateErrors(t *testing.T) {
	t.Run("engine error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Initiate(context.Background(), TransactionRequest{OrderID: "order-1"})
		assert.ErrorContains(t, err, "502")
	})

	t.Run("empty transaction id", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(TransactionResponse{})
		}))
		defer srv.Close()

		_, err := NewClient(srv.URL).Initiate(context.Background(), TransactionRequest{OrderID: "order-1"})
		assert.ErrorContains(t, err, "empty transaction id")
	})

	t.Run("not configured", func(t *testing.T) {
		_, err := NewClient("").Initiate(context.Background(), TransactionRequest{})
		assert.Error(t, err)
	})
}
