package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

type SendResult struct {
	Success   bool
	MessageID string
	Error     string
}

// EmailGateway delivers transactional mail. Send is idempotent per
// idempotency key so a redelivered reminder job cannot mail twice.
type EmailGateway interface {
	Send(ctx context.Context, to, subject, htmlBody, textBody, idempotencyKey string) (*SendResult, error)
}

type HTTPEmailGateway struct {
	baseURL    string
	apiKey     string
	from       string
	httpClient *http.Client
}

func NewHTTPEmailGateway(baseURL, apiKey, from string, timeout time.Duration) *HTTPEmailGateway {
	return &HTTPEmailGateway{
		baseURL:    baseURL,
		apiKey:     apiKey,
		from:       from,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (g *HTTPEmailGateway) Send(ctx context.Context, to, subject, htmlBody, textBody, idempotencyKey string) (*SendResult, error) {
	payload := map[string]any{
		"from":    g.from,
		"to":      to,
		"subject": subject,
		"html":    htmlBody,
		"text":    textBody,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", g.baseURL+"/messages", bytes.NewReader(payloadJSON))
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

	var result struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	if resp.StatusCode >= 400 || result.Error != "" {
		return &SendResult{Success: false, Error: result.Error}, nil
	}
	return &SendResult{Success: true, MessageID: result.MessageID}, nil
}
