package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/config"
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/websocket"
)

// MasteringService drives external mastering jobs: submit, poll to a
// terminal state or a local attempt budget, then store the finished
// artifact. The poll loop blocks the calling request for up to
// maxAttempts * pollInterval.
type MasteringService struct {
	provider     client.MasteringProvider
	store        client.ArtifactStore
	orders       client.MasteringOrderAPI
	notifier     client.Notifier
	redis        *redis.Client
	hub          *websocket.Hub
	pollInterval time.Duration
	maxAttempts  int
}

func NewMasteringService(provider client.MasteringProvider, store client.ArtifactStore, orders client.MasteringOrderAPI, notifier client.Notifier, redisClient *redis.Client, hub *websocket.Hub, cfg *config.MasteringConfig) *MasteringService {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 30
	}
	return &MasteringService{
		provider:     provider,
		store:        store,
		orders:       orders,
		notifier:     notifier,
		redis:        redisClient,
		hub:          hub,
		pollInterval: cfg.PollInterval,
		maxAttempts:  maxAttempts,
	}
}

// MasterAudio submits the track and polls until the provider reaches a
// terminal state or the attempt budget runs out. A timeout abandons only
// local tracking: the remote job keeps running and its ID is surfaced so
// the outcome can be reconciled out-of-band. Callers must not resubmit
// after a timeout.
func (s *MasteringService) MasterAudio(ctx context.Context, req *model.MasterAudioRequest) (*model.MasterAudioResponse, error) {
	externalID, err := s.provider.Submit(ctx, req.AudioFileURL, req.Preset)
	if err != nil {
		return nil, &apperr.ExternalServiceError{Service: "mastering", Detail: err.Error()}
	}

	job := &model.MasteringJob{
		ID:            uuid.New().String(),
		ExternalJobID: externalID,
		Status:        model.MasteringPending,
		Preset:        req.Preset,
		AudioFileURL:  req.AudioFileURL,
		CreatedAt:     time.Now().UTC(),
	}
	s.saveJob(ctx, job)

	status := &client.JobStatus{Status: model.MasteringPending}
	for !status.Status.Terminal() {
		if job.Attempts >= s.maxAttempts {
			s.broadcastError(job, "JOB_TIMEOUT", "mastering job timed out")
			return nil, &apperr.JobTimeoutError{JobID: externalID, Attempts: job.Attempts}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.pollInterval):
		}

		status, err = s.provider.Status(ctx, externalID)
		if err != nil {
			s.failJob(ctx, job, err.Error())
			return nil, &apperr.ExternalServiceError{Service: "mastering", Detail: err.Error()}
		}

		job.Attempts++
		job.Status = status.Status
		s.saveJob(ctx, job)
		if s.hub != nil {
			s.hub.BroadcastProgress(job.ID, job.Status, job.Attempts)
		}
	}

	if status.Status == model.MasteringFailed {
		s.failJob(ctx, job, status.ErrorDetail)
		return nil, &apperr.ExternalServiceError{Service: "mastering", Detail: status.ErrorDetail}
	}

	masteredURL, err := s.storeArtifact(ctx, job, status.OutputRef)
	if err != nil {
		s.failJob(ctx, job, err.Error())
		return nil, err
	}

	now := time.Now().UTC()
	job.OutputRef = masteredURL
	job.CompletedAt = &now
	s.saveJob(ctx, job)

	result := &model.MasterAudioResponse{
		JobID:           job.ID,
		MasteredFileURL: masteredURL,
	}
	if s.hub != nil {
		s.hub.BroadcastComplete(job.ID, result)
	}

	return result, nil
}

// GetJob returns the tracked state of a mastering job.
func (s *MasteringService) GetJob(ctx context.Context, jobID string) (*model.MasteringJob, error) {
	if s.redis == nil {
		return nil, &apperr.NotFoundError{Entity: "mastering job", ID: jobID}
	}
	data, err := s.redis.Get(ctx, masteringJobKey(jobID)).Bytes()
	if err != nil {
		return nil, &apperr.NotFoundError{Entity: "mastering job", ID: jobID}
	}

	var job model.MasteringJob
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

// SubmitOrder places a managed mastering order and confirms it by mail.
func (s *MasteringService) SubmitOrder(ctx context.Context, userEmail string, req *model.MasteringOrderRequest) (*model.MasteringOrderResponse, error) {
	if s.orders == nil {
		return nil, &apperr.ExternalServiceError{Service: "mastering orders", Detail: "order service not configured"}
	}

	orderID, err := s.orders.CreateOrder(ctx, &client.MasteringOrder{
		ArtistName:   req.ArtistName,
		SongTitle:    req.SongTitle,
		Genre:        req.Genre,
		AudioURL:     req.AudioURL,
		ReferenceURL: req.ReferenceURL,
		Instructions: req.SpecialInstructions,
		ServiceTier:  req.ServiceTier,
	})
	if err != nil {
		return nil, &apperr.ExternalServiceError{Service: "mastering orders", Detail: err.Error()}
	}

	if s.notifier != nil && userEmail != "" {
		body := fmt.Sprintf(
			"Your mastering order has been submitted!\n\nOrder ID: %s\nArtist: %s\nSong: %s\nGenre: %s\nService Tier: %s\n\nYou can track your order status on the dashboard.",
			orderID, req.ArtistName, req.SongTitle, req.Genre, req.ServiceTier,
		)
		subject := fmt.Sprintf("Mastering Order Submitted - %s", orderID)
		if err := s.notifier.Send(ctx, userEmail, subject, body, ""); err != nil {
			logger.WithField("orderId", orderID).Warnf("failed to send order confirmation: %v", err)
		}
	}

	return &model.MasteringOrderResponse{
		OrderID:    orderID,
		ArtistName: req.ArtistName,
		SongTitle:  req.SongTitle,
		Message:    "Your track has been submitted for mastering",
	}, nil
}

func (s *MasteringService) storeArtifact(ctx context.Context, job *model.MasteringJob, outputRef string) (string, error) {
	blob, err := s.provider.FetchArtifact(ctx, outputRef)
	if err != nil {
		return "", &apperr.ExternalServiceError{Service: "mastering", Detail: err.Error()}
	}

	if s.store == nil {
		// Storage not configured; hand back the provider's location.
		return outputRef, nil
	}

	url, err := s.store.Store(ctx, client.ArtifactKey(job.ID), blob, "audio/mpeg")
	if err != nil {
		return "", &apperr.ExternalServiceError{Service: "storage", Detail: err.Error()}
	}
	return url, nil
}

func (s *MasteringService) failJob(ctx context.Context, job *model.MasteringJob, detail string) {
	now := time.Now().UTC()
	job.Status = model.MasteringFailed
	job.Error = &detail
	job.CompletedAt = &now
	s.saveJob(ctx, job)
	s.broadcastError(job, "MASTERING_FAILED", detail)
}

func (s *MasteringService) broadcastError(job *model.MasteringJob, code, message string) {
	if s.hub != nil {
		s.hub.BroadcastError(job.ID, code, message)
	}
}

func (s *MasteringService) saveJob(ctx context.Context, job *model.MasteringJob) {
	if s.redis == nil {
		return
	}
	data, err := json.Marshal(job)
	if err != nil {
		logger.WithField("jobId", job.ID).Warnf("failed to marshal job: %v", err)
		return
	}
	if err := s.redis.Set(ctx, masteringJobKey(job.ID), data, 24*time.Hour).Err(); err != nil {
		logger.WithField("jobId", job.ID).Warnf("failed to save job: %v", err)
	}
}

func masteringJobKey(jobID string) string {
	return fmt.Sprintf("masterjob:%s", jobID)
}
