package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
)

// ProductCatalog is the read-only pricing source for workshop products.
type ProductCatalog interface {
	ProductPrice(ctx context.Context, productID string) (decimal.Decimal, error)
	ProductDuration(ctx context.Context, productID string) (int, error)
	ProductName(ctx context.Context, productID string) (string, error)
}

type HTTPProductCatalog struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPProductCatalog(baseURL string, timeout time.Duration) *HTTPProductCatalog {
	return &HTTPProductCatalog{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type catalogProduct struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Price        string `json:"price"`
	DurationDays int    `json:"duration_days"`
}

func (c *HTTPProductCatalog) ProductPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	p, err := c.fetch(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse product price: %w", err)
	}
	return price, nil
}

func (c *HTTPProductCatalog) ProductDuration(ctx context.Context, productID string) (int, error) {
	p, err := c.fetch(ctx, productID)
	if err != nil {
		return 0, err
	}
	return p.DurationDays, nil
}

func (c *HTTPProductCatalog) ProductName(ctx context.Context, productID string) (string, error) {
	p, err := c.fetch(ctx, productID)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (c *HTTPProductCatalog) fetch(ctx context.Context, productID string) (*catalogProduct, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/products/"+productID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog api: status %d", resp.StatusCode)
	}

	var p catalogProduct
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("unmarshal product: %w", err)
	}
	return &p, nil
}
