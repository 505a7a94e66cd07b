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

// CalendarMirror maintains the copy of local blockouts in the external
// calendar. Mirroring is best-effort only: the local store stays the source
// of truth and callers log mirror failures instead of propagating them.
type CalendarMirror interface {
	CreateBlockEvent(ctx context.Context, start, end time.Time, reason string) (string, error)
	DeleteEvent(ctx context.Context, eventID string) error
}

type HTTPCalendarMirror struct {
	baseURL    string
	apiKey     string
	calendarID string
	httpClient *http.Client
}

func NewHTTPCalendarMirror(baseURL, apiKey, calendarID string, timeout time.Duration) *HTTPCalendarMirror {
	return &HTTPCalendarMirror{
		baseURL:    baseURL,
		apiKey:     apiKey,
		calendarID: calendarID,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (m *HTTPCalendarMirror) CreateBlockEvent(ctx context.Context, start, end time.Time, reason string) (string, error) {
	payload := map[string]any{
		"calendar_id": m.calendarID,
		"summary":     "Blocked: " + reason,
		"start":       start.Format("2006-01-02"),
		"end":         end.Format("2006-01-02"),
		"all_day":     true,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", m.baseURL+"/events", bytes.NewReader(payloadJSON))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("calendar api: status %d", resp.StatusCode)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return result.ID, nil
}

func (m *HTTPCalendarMirror) DeleteEvent(ctx context.Context, eventID string) error {
	req, err := http.NewRequestWithContext(ctx, "DELETE", m.baseURL+"/events/"+eventID, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("calendar api: status %d", resp.StatusCode)
	}
	return nil
}
