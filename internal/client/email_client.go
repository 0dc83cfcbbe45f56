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

// Notifier sends outbound mail. Every call site treats delivery as
// fire-and-forget: failures are logged by the caller, never propagated to
// the operation that triggered the mail.
type Notifier interface {
	Send(ctx context.Context, to, subject, body, fromName string) error
}

// EmailClient implements Notifier against an HTTP mail relay.
type EmailClient struct {
	httpClient *http.Client
	relayURL   string
	apiKey     string
	fromName   string
}

func NewEmailClient(cfg *config.EmailConfig) *EmailClient {
	return &EmailClient{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		relayURL: cfg.RelayURL,
		apiKey:   cfg.APIKey,
		fromName: cfg.FromName,
	}
}

type sendMailRequest struct {
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Body     string `json:"body"`
	FromName string `json:"fromName,omitempty"`
}

func (c *EmailClient) Send(ctx context.Context, to, subject, body, fromName string) error {
	if fromName == "" {
		fromName = c.fromName
	}

	payload, err := json.Marshal(sendMailRequest{
		To:       to,
		Subject:  subject,
		Body:     body,
		FromName: fromName,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal mail request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.relayURL+"/v1/send", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mail relay error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}
