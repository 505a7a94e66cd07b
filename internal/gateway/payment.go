package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ChargeResult is the gateway's record of a capture attempt.
type ChargeResult struct {
	ID     string
	Status string
	Reason string
}

type RefundResult struct {
	ID     string
	Status string
}

const (
	ChargeStatusSucceeded = "succeeded"
	ChargeStatusDeclined  = "declined"
)

// PaymentGateway captures and refunds payments. Charge is idempotent per
// idempotency key: retrying with the same key must not double-charge.
type PaymentGateway interface {
	Charge(ctx context.Context, amount decimal.Decimal, idempotencyKey, method string) (*ChargeResult, error)
	Refund(ctx context.Context, paymentID string, amount decimal.Decimal) (*RefundResult, error)
}

// HTTPPaymentGateway talks to the payment provider's REST API.
type HTTPPaymentGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewHTTPPaymentGateway(baseURL, apiKey string, timeout time.Duration) *HTTPPaymentGateway {
	return &HTTPPaymentGateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPPaymentGateway) Charge(ctx context.Context, amount decimal.Decimal, idempotencyKey, method string) (*ChargeResult, error) {
	payload := map[string]any{
		"amount":   amount.StringFixed(2),
		"currency": "USD",
		"method":   method,
	}

	body, err := g.post(ctx, "/charges", payload, idempotencyKey)
	if err != nil {
		return nil, err
	}

	var result struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Reason string `json:"decline_reason"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal charge response: %w", err)
	}

	return &ChargeResult{ID: result.ID, Status: result.Status, Reason: result.Reason}, nil
}

func (g *HTTPPaymentGateway) Refund(ctx context.Context, paymentID string, amount decimal.Decimal) (*RefundResult, error) {
	payload := map[string]any{
		"charge_id": paymentID,
		"amount":    amount.StringFixed(2),
	}

	body, err := g.post(ctx, "/refunds", payload, "refund-"+paymentID)
	if err != nil {
		return nil, err
	}

	var result struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal refund response: %w", err)
	}

	return &RefundResult{ID: result.ID, Status: result.Status}, nil
}

func (g *HTTPPaymentGateway) post(ctx context.Context, path string, payload any, idempotencyKey string) ([]byte, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+path, bytes.NewReader(payloadJSON))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("payment api %s: status %d", path, resp.StatusCode)
	}

	return body, nil
}
