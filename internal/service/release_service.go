package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/config"
	"github.com/slaptrapper/distribution-api/internal/ids"
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/repository"
)

// ReleaseService owns the release lifecycle. Pipeline stages only ever move
// forward; a transition attempted from the wrong stage fails with
// InvalidStateError and leaves the record untouched.
type ReleaseService struct {
	releases repository.ReleaseStore
	pitcher  *PitchService
	notifier client.Notifier
	enqueuer TaskEnqueuer
	idgen    *ids.Generator
	pipeline config.PipelineConfig
	now      func() time.Time
}

func NewReleaseService(releases repository.ReleaseStore, pitcher *PitchService, notifier client.Notifier, enqueuer TaskEnqueuer, idgen *ids.Generator, pipeline config.PipelineConfig) *ReleaseService {
	return &ReleaseService{
		releases: releases,
		pitcher:  pitcher,
		notifier: notifier,
		enqueuer: enqueuer,
		idgen:    idgen,
		pipeline: pipeline,
		now:      time.Now,
	}
}

// Submit validates and creates a new distribution. Creating the record is
// the unit of success: the platform fan-out trigger and the confirmation
// email are best-effort and their failures are only logged.
func (s *ReleaseService) Submit(ctx context.Context, owner string, req *model.SubmitReleaseRequest) (*model.SubmitReleaseResponse, error) {
	isrc := req.ISRC
	if isrc == "" {
		isrc = s.idgen.ISRC()
	}
	upc := req.UPC
	if upc == "" {
		upc = s.idgen.UPC()
	}
	platforms := req.Platforms
	if len(platforms) == 0 {
		platforms = model.DefaultPlatforms
	}

	release := &model.Release{
		ID:               uuid.New().String(),
		CreatedBy:        owner,
		ArtistName:       req.ArtistName,
		ReleaseTitle:     req.ReleaseTitle,
		Genre:            req.Genre,
		Genres:           req.Genres,
		ReleaseDate:      req.ReleaseDate,
		AudioFileURL:     req.AudioFileURL,
		CoverArtURL:      req.CoverArtURL,
		ISRC:             isrc,
		UPC:              upc,
		Platforms:        platforms,
		Status:           model.ReleaseStatusProcessing,
		ProcessingStatus: model.ProcessingDraft,
		ProcessingSpeed:  model.SpeedStandard,
	}

	if err := s.releases.Create(ctx, release); err != nil {
		return nil, fmt.Errorf("failed to create release: %w", err)
	}

	if task, err := newDistributeTask(release.ID); err != nil {
		logger.WithField("releaseId", release.ID).Warnf("failed to build fan-out task: %v", err)
	} else if _, err := s.enqueuer.Enqueue(task, asynq.Queue(QueueDistribution), asynq.MaxRetry(3)); err != nil {
		logger.WithField("releaseId", release.ID).Warnf("failed to enqueue fan-out: %v", err)
	}

	s.sendMail(ctx, owner,
		fmt.Sprintf("Your release %q is being distributed!", req.ReleaseTitle),
		fmt.Sprintf("Your release is being distributed to 40+ platforms globally!\n\nISRC: %s\nUPC: %s\n\nTrack progress in your dashboard.", isrc, upc),
	)

	return &model.SubmitReleaseResponse{
		DistributionID: release.ID,
		ISRC:           isrc,
		UPC:            upc,
		Status:         release.Status,
		Message:        "Release submitted. Distributing to 40+ platforms...",
	}, nil
}

// ExpressProcess moves a draft release into processing and schedules the
// advance-to-ready transition after the configured delay. The original flow
// fired the transition immediately behind an "after 24 hours" comment; here
// the delay is real and owned by the task queue.
func (s *ReleaseService) ExpressProcess(ctx context.Context, owner, releaseID string) (*model.ExpressProcessResponse, error) {
	release, err := s.getOwned(ctx, owner, releaseID)
	if err != nil {
		return nil, err
	}

	if release.ProcessingStatus != model.ProcessingDraft {
		return nil, &apperr.InvalidStateError{
			Entity:    "release",
			ID:        releaseID,
			From:      string(release.ProcessingStatus),
			Operation: "express process",
		}
	}

	liveDate := s.now().UTC().AddDate(0, 0, s.pipeline.EstimatedLiveDays)
	fields := map[string]interface{}{
		"processing_status":   model.ProcessingInProgress,
		"processing_speed":    model.SpeedExpress,
		"estimated_live_date": liveDate,
	}
	if err := s.releases.UpdateFields(ctx, releaseID, release.Version, fields); err != nil {
		return nil, err
	}

	task, err := newAdvanceTask(releaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to build advance task: %w", err)
	}
	advanceAt := s.now().UTC().Add(s.pipeline.ExpressAdvanceDelay)
	if _, err := s.enqueuer.Enqueue(task,
		asynq.Queue(QueueDistribution),
		asynq.ProcessIn(s.pipeline.ExpressAdvanceDelay),
		asynq.MaxRetry(3),
	); err != nil {
		return nil, fmt.Errorf("failed to schedule advance: %w", err)
	}

	return &model.ExpressProcessResponse{
		DistributionID:    releaseID,
		ProcessingStatus:  model.ProcessingInProgress,
		EstimatedLiveDate: &liveDate,
		AdvanceAt:         advanceAt,
	}, nil
}

// AdvanceToReady moves a processing release to ready_for_spotify, flags the
// artist as hot, and synchronously runs the pitching stage. A release with
// no matching playlists still advances; it just accrues zero pitches.
func (s *ReleaseService) AdvanceToReady(ctx context.Context, releaseID string) (*model.AdvanceResponse, error) {
	release, err := s.releases.GetByID(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	if release.ProcessingStatus != model.ProcessingInProgress {
		return nil, &apperr.InvalidStateError{
			Entity:    "release",
			ID:        releaseID,
			From:      string(release.ProcessingStatus),
			Operation: "advance to ready",
		}
	}

	fields := map[string]interface{}{
		"processing_status": model.ProcessingReadyForSpotify,
		"is_hot_new_artist": true,
	}
	if err := s.releases.UpdateFields(ctx, releaseID, release.Version, fields); err != nil {
		return nil, err
	}
	release.ProcessingStatus = model.ProcessingReadyForSpotify
	release.IsHotNewArtist = true
	release.Version++

	results, err := s.pitcher.PitchRelease(ctx, release)
	if err != nil {
		var noMatch *apperr.NoMatchError
		if errors.As(err, &noMatch) {
			logger.WithField("releaseId", releaseID).Info("no matching playlists; advanced without pitches")
			return &model.AdvanceResponse{
				DistributionID:   releaseID,
				ProcessingStatus: release.ProcessingStatus,
				IsHotNewArtist:   true,
				PitchResults:     []model.PitchResult{},
			}, nil
		}
		return nil, err
	}

	pitched := 0
	for _, r := range results {
		if r.Status == model.TargetPitched {
			pitched++
		}
	}

	return &model.AdvanceResponse{
		DistributionID:   releaseID,
		ProcessingStatus: release.ProcessingStatus,
		IsHotNewArtist:   true,
		TotalPitched:     pitched,
		PitchResults:     results,
	}, nil
}

// Promote marks a release live and features it as a hot new release.
// Admin only; promoting an already-live release is rejected.
func (s *ReleaseService) Promote(ctx context.Context, actorRole, releaseID string) (*model.PromoteResponse, error) {
	if actorRole != model.RoleAdmin {
		return nil, &apperr.AuthError{Message: "admin access required"}
	}

	release, err := s.releases.GetByID(ctx, releaseID)
	if err != nil {
		return nil, err
	}

	if release.ProcessingStatus == model.ProcessingLive {
		return nil, &apperr.InvalidStateError{
			Entity:    "release",
			ID:        releaseID,
			From:      string(release.ProcessingStatus),
			Operation: "promote",
		}
	}

	fields := map[string]interface{}{
		"is_hot_new_artist": true,
		"processing_status": model.ProcessingLive,
		"status":            model.ReleaseStatusLive,
	}
	if err := s.releases.UpdateFields(ctx, releaseID, release.Version, fields); err != nil {
		return nil, err
	}

	s.sendMail(ctx, release.CreatedBy,
		fmt.Sprintf("Your Release %q is Now Live!", release.ReleaseTitle),
		fmt.Sprintf(
			"Congratulations! Your release %q is now live on Spotify and other major streaming platforms.\n\nYour track has been featured as a \"Hot New Release\" and has been pitched to %d playlist curators.\n\nArtist: %s\nTitle: %s\nGenre: %s\n\nKeep an eye on your analytics dashboard to track streams and earnings!",
			release.ReleaseTitle, release.PlaylistPitchCount,
			release.ArtistName, release.ReleaseTitle, release.Genre,
		),
	)

	return &model.PromoteResponse{
		DistributionID:   releaseID,
		ProcessingStatus: model.ProcessingLive,
		IsHotNewArtist:   true,
		Message:          "Release marked as hot new artist and featured",
	}, nil
}

// GetOwned fetches a release and enforces ownership. Non-owners get the
// same NotFoundError as a missing record.
func (s *ReleaseService) GetOwned(ctx context.Context, owner, releaseID string) (*model.Release, error) {
	return s.getOwned(ctx, owner, releaseID)
}

func (s *ReleaseService) getOwned(ctx context.Context, owner, releaseID string) (*model.Release, error) {
	release, err := s.releases.GetByID(ctx, releaseID)
	if err != nil {
		return nil, err
	}
	if release.CreatedBy != owner {
		return nil, &apperr.NotFoundError{Entity: "release", ID: releaseID}
	}
	return release, nil
}

func (s *ReleaseService) sendMail(ctx context.Context, to, subject, body string) {
	if s.notifier == nil || to == "" {
		return
	}
	if err := s.notifier.Send(ctx, to, subject, body, ""); err != nil {
		logger.WithFields(logrus.Fields{"to": to, "subject": subject}).Warnf("failed to send mail: %v", err)
	}
}
