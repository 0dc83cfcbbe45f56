package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/slaptrapper/distribution-api/internal/config"
)

// MasteringOrderAPI creates managed mastering orders with an engineer-run
// service (completion arrives via webhook, not polling).
type MasteringOrderAPI interface {
	CreateOrder(ctx context.Context, order *MasteringOrder) (string, error)
}

// MasteringOrder is the order payload for the managed mastering service.
type MasteringOrder struct {
	ArtistName   string `json:"artist_name"`
	SongTitle    string `json:"song_title"`
	Genre        string `json:"genre,omitempty"`
	AudioURL     string `json:"audio_url"`
	ReferenceURL string `json:"reference_url,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	ServiceTier  string `json:"service_tier,omitempty"`
	CallbackURL  string `json:"callback_url,omitempty"`
}

// MixmeaClient implements MasteringOrderAPI for the MIXMEA order API.
type MixmeaClient struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	callbackURL string
}

func NewMixmeaClient(cfg *config.MixmeaConfig) *MixmeaClient {
	return &MixmeaClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		callbackURL: cfg.CallbackURL,
	}
}

type mixmeaOrderResponse struct {
	OrderID string `json:"order_id"`
	Message string `json:"message,omitempty"`
}

func (c *MixmeaClient) CreateOrder(ctx context.Context, order *MasteringOrder) (string, error) {
	if order.CallbackURL == "" {
		order.CallbackURL = c.callbackURL
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return "", fmt.Errorf("failed to marshal order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/orders/create", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result mixmeaOrderResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := result.Message
		if msg == "" {
			msg = string(respBody)
		}
		return "", fmt.Errorf("order API error (status %d): %s", resp.StatusCode, msg)
	}

	return result.OrderID, nil
}
