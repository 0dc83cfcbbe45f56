package service

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/repository"
)

const defaultPayoutRate = 0.004

// StatsService pulls distributor-reported numbers into release records and
// answers per-platform delivery status queries. With no delivery gateway
// configured it falls back to simulated growth so the rest of the pipeline
// stays exercisable in development.
type StatsService struct {
	releases repository.ReleaseStore
	delivery client.DeliveryGateway

	// rngMu serializes draws; rand.Rand is not safe for concurrent use and
	// one StatsService serves every request.
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewStatsService(releases repository.ReleaseStore, delivery client.DeliveryGateway) *StatsService {
	return &StatsService{
		releases: releases,
		delivery: delivery,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SyncStats refreshes stream counts and earnings for every live release the
// caller owns. Per-release failures are logged and skipped; the batch
// always reports everything that did update.
func (s *StatsService) SyncStats(ctx context.Context, owner string) (*model.SyncStatsResponse, error) {
	releases, err := s.releases.FilterLiveByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}

	updates := make([]model.StatsUpdate, 0, len(releases))
	for i := range releases {
		rel := &releases[i]

		stats, err := s.fetchStats(ctx, rel.ID)
		if err != nil {
			logger.WithField("releaseId", rel.ID).Warnf("failed to fetch stats: %v", err)
			continue
		}

		newTotal := rel.TotalStreams + stats.NewStreams
		rate := stats.PayoutRate
		if rate <= 0 {
			rate = defaultPayoutRate
		}
		earnings := float64(newTotal) * rate

		if err := s.releases.ApplyStats(ctx, rel.ID, rel.Version, stats.NewStreams, earnings); err != nil {
			logger.WithField("releaseId", rel.ID).Warnf("failed to apply stats: %v", err)
			continue
		}

		updates = append(updates, model.StatsUpdate{
			DistributionID: rel.ID,
			ReleaseTitle:   rel.ReleaseTitle,
			TotalStreams:   newTotal,
			Earnings:       earnings,
		})
	}

	return &model.SyncStatsResponse{
		Updated:  len(updates),
		Releases: updates,
	}, nil
}

// DeliveryStatus reports the per-platform delivery state for one release.
// When the gateway is unreachable it degrades to the stored overall status
// instead of failing the request.
func (s *StatsService) DeliveryStatus(ctx context.Context, release *model.Release) *model.DeliveryStatusResponse {
	resp := &model.DeliveryStatusResponse{
		DistributionID: release.ID,
		OverallStatus:  release.Status,
	}

	if s.delivery == nil {
		resp.Message = "Unable to fetch live status"
		return resp
	}

	deliveries, err := s.delivery.Deliveries(ctx, release.ID)
	if err != nil {
		logger.WithField("releaseId", release.ID).Warnf("failed to fetch deliveries: %v", err)
		resp.Message = "Unable to fetch live status"
		return resp
	}

	resp.Platforms = make(map[string]model.PlatformDelivery, len(deliveries))
	for _, d := range deliveries {
		resp.Platforms[d.Platform] = model.PlatformDelivery{
			Status:      d.Status,
			URL:         d.URL,
			DeliveredAt: d.DeliveredAt,
		}
	}
	return resp
}

func (s *StatsService) fetchStats(ctx context.Context, releaseID string) (*client.ReleaseStats, error) {
	if s.delivery == nil {
		s.rngMu.Lock()
		streams := int64(s.rng.Intn(500))
		s.rngMu.Unlock()
		return &client.ReleaseStats{
			NewStreams: streams,
			PayoutRate: defaultPayoutRate,
		}, nil
	}
	return s.delivery.Stats(ctx, releaseID)
}
