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
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/model"
)

// MasteringProvider is the external async mastering job contract: submit a
// job, poll its status, and fetch the finished artifact. The provider never
// receives a cancellation signal; a caller that stops polling simply
// abandons local tracking.
type MasteringProvider interface {
	Submit(ctx context.Context, audioFileURL string, preset model.MasteringPreset) (string, error)
	Status(ctx context.Context, externalJobID string) (*JobStatus, error)
	FetchArtifact(ctx context.Context, outputRef string) ([]byte, error)
}

// JobStatus is one poll result from the provider.
type JobStatus struct {
	Status      model.MasteringStatus `json:"status"`
	OutputRef   string                `json:"output,omitempty"`
	ErrorDetail string                `json:"error,omitempty"`
}

// DolbyClient implements MasteringProvider against the Dolby.io Media API.
type DolbyClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewDolbyClient(cfg *config.MasteringConfig) *DolbyClient {
	return &DolbyClient{
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// levelerAmount maps a preset to the provider's leveler intensity.
func levelerAmount(preset model.MasteringPreset) int {
	switch preset {
	case model.PresetLight:
		return 50
	case model.PresetMedium:
		return 75
	default:
		return 100
	}
}

type dolbySubmitRequest struct {
	Input   string `json:"input"`
	Output  string `json:"output"`
	Content struct {
		Type string `json:"type"`
	} `json:"content"`
	Audio struct {
		Master struct {
			DynamicEQ struct {
				Enabled bool `json:"enabled"`
			} `json:"dynamic_eq"`
			Leveler struct {
				Enabled bool `json:"enabled"`
				Amount  int  `json:"amount"`
			} `json:"leveler"`
		} `json:"master"`
	} `json:"audio"`
}

type dolbySubmitResponse struct {
	JobID string `json:"job_id"`
}

// Submit starts a mastering job and returns the provider's job ID.
func (c *DolbyClient) Submit(ctx context.Context, audioFileURL string, preset model.MasteringPreset) (string, error) {
	body := dolbySubmitRequest{
		Input:  audioFileURL,
		Output: "dlb://out/mastered.mp3",
	}
	body.Content.Type = "music"
	body.Audio.Master.DynamicEQ.Enabled = true
	body.Audio.Master.Leveler.Enabled = true
	body.Audio.Master.Leveler.Amount = levelerAmount(preset)

	var result dolbySubmitResponse
	if err := c.post(ctx, "/media/master", body, &result); err != nil {
		return "", err
	}
	return result.JobID, nil
}

// Status polls the provider for the current job state.
func (c *DolbyClient) Status(ctx context.Context, externalJobID string) (*JobStatus, error) {
	endpoint := fmt.Sprintf("/media/master?job_id=%s", externalJobID)
	var result JobStatus
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FetchArtifact downloads the mastered file from the location the provider
// reported on success.
func (c *DolbyClient) FetchArtifact(ctx context.Context, outputRef string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, outputRef, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create download request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download artifact: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("artifact download failed (status %d)", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func (c *DolbyClient) post(ctx context.Context, endpoint string, body interface{}, result interface{}) error {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *DolbyClient) get(ctx context.Context, endpoint string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	return c.doRequest(req, result)
}

func (c *DolbyClient) doRequest(req *http.Request, result interface{}) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

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
		logger.WithField("status", resp.StatusCode).Warn("mastering API error response")
		return fmt.Errorf("mastering API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, result); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}
