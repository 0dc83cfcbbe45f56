package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/slaptrapper/distribution-api/internal/config"
)

// DeliveryGateway exposes the distributor's per-platform delivery state and
// reported stream counts.
type DeliveryGateway interface {
	Deliveries(ctx context.Context, releaseID string) ([]Delivery, error)
	Stats(ctx context.Context, releaseID string) (*ReleaseStats, error)
}

// Delivery is one platform's delivery record.
type Delivery struct {
	Platform    string `json:"platform"`
	Status      string `json:"status"`
	URL         string `json:"url,omitempty"`
	DeliveredAt string `json:"delivered_at,omitempty"`
}

// ReleaseStats carries streams reported since the last sync.
type ReleaseStats struct {
	NewStreams int64   `json:"new_streams"`
	PayoutRate float64 `json:"payout_rate"`
}

// FugaClient implements DeliveryGateway against the FUGA v3 API.
type FugaClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	apiSecret  string
}

func NewFugaClient(cfg *config.DeliveryConfig) *FugaClient {
	return &FugaClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}
}

func (c *FugaClient) Deliveries(ctx context.Context, releaseID string) ([]Delivery, error) {
	endpoint := fmt.Sprintf("/products/%s/deliveries", releaseID)
	var deliveries []Delivery
	if err := c.get(ctx, endpoint, &deliveries); err != nil {
		return nil, err
	}
	return deliveries, nil
}

func (c *FugaClient) Stats(ctx context.Context, releaseID string) (*ReleaseStats, error) {
	endpoint := fmt.Sprintf("/products/%s/stats", releaseID)
	var stats ReleaseStats
	if err := c.get(ctx, endpoint, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *FugaClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-API-Secret", c.apiSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("delivery API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
