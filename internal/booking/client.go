// Package booking talks to the external transaction engine that backs each
// sub-order day with a marketplace booking transaction.
package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// TransactionRequest initiates the booking for one sub-order date. The last
// date of a plan is tagged so the engine can close out the plan.
type TransactionRequest struct {
	OrderID        string `json:"orderId"`
	PlanID         string `json:"planId"`
	SubOrderDate   string `json:"subOrderDate"`
	RestaurantID   string `json:"restaurantId"`
	Transition     string `json:"transition"`
	IsLastTxOfPlan bool   `json:"isLastTxOfPlan"`
}

type TransactionResponse struct {
	TransactionID  string `json:"transactionId"`
	LastTransition string `json:"lastTransition"`
}

// Initiate fires one booking transaction. Failures propagate to the caller;
// there is no compensating rollback of transactions already initiated for
// earlier dates in the same batch.
func (c *Client) Initiate(ctx context.Context, request TransactionRequest) (*TransactionResponse, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("booking engine not configured")
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("encode transaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transactions/initiate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("booking engine returned %d for %s/%s", resp.StatusCode, request.OrderID, request.SubOrderDate)
	}

	var out TransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode transaction response: %w", err)
	}
	if out.TransactionID == "" {
		return nil, fmt.Errorf("booking engine returned empty transaction id")
	}
	return &out, nil
}
