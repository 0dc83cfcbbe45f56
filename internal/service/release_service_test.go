package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/config"
	"github.com/slaptrapper/distribution-api/internal/ids"
	"github.com/slaptrapper/distribution-api/internal/model"
)

func testPipeline() config.PipelineConfig {
	return config.PipelineConfig{
		ExpressAdvanceDelay: 24 * time.Hour,
		PitchTargetLimit:    50,
		EstimatedLiveDays:   2,
	}
}

func newTestReleaseService(store *fakeReleaseStore, catalog *fakeCatalog, enqueuer *fakeEnqueuer) *ReleaseService {
	if catalog == nil {
		catalog = &fakeCatalog{}
	}
	pitcher := NewPitchService(store, newFakeCampaignStore(), catalog, nil, 50)
	idgen := ids.NewGenerator(rand.New(rand.NewSource(1)), time.Now)
	return NewReleaseService(store, pitcher, nil, enqueuer, idgen, testPipeline())
}

func TestSubmit_GeneratesCodesAndDefaults(t *testing.T) {
	store := newFakeReleaseStore()
	enqueuer := &fakeEnqueuer{}
	svc := newTestReleaseService(store, nil, enqueuer)

	resp, err := svc.Submit(context.Background(), "kay@example.com", &model.SubmitReleaseRequest{
		ArtistName:   "Kay",
		ReleaseTitle: "Night Drive",
		Genre:        "hip hop",
		AudioFileURL: "https://cdn.example.com/track.wav",
		CoverArtURL:  "https://cdn.example.com/cover.jpg",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if resp.ISRC == "" || resp.UPC == "" {
		t.Error("missing ISRC/UPC must be generated")
	}
	if resp.Status != model.ReleaseStatusProcessing {
		t.Errorf("new release should be processing, got %q", resp.Status)
	}

	rel := store.get(resp.DistributionID)
	if rel == nil {
		t.Fatal("release was not persisted")
	}
	if rel.ProcessingStatus != model.ProcessingDraft {
		t.Errorf("new release should start in draft, got %q", rel.ProcessingStatus)
	}
	if len(rel.Platforms) != len(model.DefaultPlatforms) {
		t.Errorf("expected default platform fan-out, got %d platforms", len(rel.Platforms))
	}

	types := enqueuer.taskTypes()
	if len(types) != 1 || types[0] != TaskTypeDistribute {
		t.Errorf("expected one fan-out task, got %v", types)
	}
}

func TestSubmit_KeepsCallerCodes(t *testing.T) {
	store := newFakeReleaseStore()
	svc := newTestReleaseService(store, nil, &fakeEnqueuer{})

	resp, err := svc.Submit(context.Background(), "kay@example.com", &model.SubmitReleaseRequest{
		ArtistName:   "Kay",
		ReleaseTitle: "Night Drive",
		AudioFileURL: "https://cdn.example.com/track.wav",
		CoverArtURL:  "https://cdn.example.com/cover.jpg",
		ISRC:         "USAB12345678",
		UPC:          "123456789012",
		Platforms:    []string{"spotify"},
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if resp.ISRC != "USAB12345678" || resp.UPC != "123456789012" {
		t.Errorf("caller-supplied codes must pass through, got %s / %s", resp.ISRC, resp.UPC)
	}
	if rel := store.get(resp.DistributionID); len(rel.Platforms) != 1 {
		t.Errorf("caller-supplied platform list must not be replaced, got %v", rel.Platforms)
	}
}

func TestSubmit_QueueFailureDoesNotFailSubmit(t *testing.T) {
	store := newFakeReleaseStore()
	svc := newTestReleaseService(store, nil, &fakeEnqueuer{fail: true})

	resp, err := svc.Submit(context.Background(), "kay@example.com", &model.SubmitReleaseRequest{
		ArtistName:   "Kay",
		ReleaseTitle: "Night Drive",
		AudioFileURL: "https://cdn.example.com/track.wav",
		CoverArtURL:  "https://cdn.example.com/cover.jpg",
	})
	if err != nil {
		t.Fatalf("submit must succeed even when the queue is down: %v", err)
	}
	if store.get(resp.DistributionID) == nil {
		t.Fatal("release must be persisted regardless of queue state")
	}
}

func TestExpressProcess_SchedulesDelayedAdvance(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ProcessingStatus: model.ProcessingDraft,
		Version:          1,
	}
	store := newFakeReleaseStore(release)
	enqueuer := &fakeEnqueuer{}
	svc := newTestReleaseService(store, nil, enqueuer)

	resp, err := svc.ExpressProcess(context.Background(), "kay@example.com", "rel-1")
	if err != nil {
		t.Fatalf("ExpressProcess failed: %v", err)
	}

	if resp.ProcessingStatus != model.ProcessingInProgress {
		t.Errorf("express should move the release to processing, got %q", resp.ProcessingStatus)
	}
	if resp.EstimatedLiveDate == nil {
		t.Error("express should set an estimated live date")
	}

	rel := store.get("rel-1")
	if rel.ProcessingStatus != model.ProcessingInProgress {
		t.Errorf("stored stage should be processing, got %q", rel.ProcessingStatus)
	}
	if rel.ProcessingSpeed != model.SpeedExpress {
		t.Errorf("stored speed should be express, got %q", rel.ProcessingSpeed)
	}

	types := enqueuer.taskTypes()
	if len(types) != 1 || types[0] != TaskTypeAdvance {
		t.Errorf("expected one scheduled advance task, got %v", types)
	}
}

func TestPipelineTasks_LandInWorkerQueue(t *testing.T) {
	// The worker server only consumes QueueDistribution; a task enqueued
	// anywhere else (asynq's default queue included) would sit forever.
	store := newFakeReleaseStore()
	enqueuer := &fakeEnqueuer{}
	svc := newTestReleaseService(store, nil, enqueuer)

	resp, err := svc.Submit(context.Background(), "kay@example.com", &model.SubmitReleaseRequest{
		ArtistName:   "Kay",
		ReleaseTitle: "Night Drive",
		AudioFileURL: "https://cdn.example.com/track.wav",
		CoverArtURL:  "https://cdn.example.com/cover.jpg",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := svc.ExpressProcess(context.Background(), "kay@example.com", resp.DistributionID); err != nil {
		t.Fatalf("ExpressProcess failed: %v", err)
	}

	types := enqueuer.taskTypes()
	if len(types) != 2 {
		t.Fatalf("expected fan-out and advance tasks, got %v", types)
	}
	for i, typ := range types {
		if q := enqueuer.queueOf(i); q != QueueDistribution {
			t.Errorf("%s enqueued into %q, want %q", typ, q, QueueDistribution)
		}
	}
}

func TestExpressProcess_RejectsNonDraft(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ProcessingStatus: model.ProcessingInProgress,
		Version:          1,
	}
	store := newFakeReleaseStore(release)
	svc := newTestReleaseService(store, nil, &fakeEnqueuer{})

	_, err := svc.ExpressProcess(context.Background(), "kay@example.com", "rel-1")

	var invalid *apperr.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}
	if store.get("rel-1").Version != 1 {
		t.Error("rejected transition must leave the record untouched")
	}
}

func TestExpressProcess_NonOwnerGetsNotFound(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "owner@example.com",
		ProcessingStatus: model.ProcessingDraft,
		Version:          1,
	}
	svc := newTestReleaseService(newFakeReleaseStore(release), nil, &fakeEnqueuer{})

	_, err := svc.ExpressProcess(context.Background(), "intruder@example.com", "rel-1")

	var notFound *apperr.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("non-owner must get NotFoundError, got %v", err)
	}
}

func TestAdvanceToReady_FromProcessing(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ArtistName:       "Kay",
		ReleaseTitle:     "Night Drive",
		Genre:            "hip hop",
		ProcessingStatus: model.ProcessingInProgress,
		Version:          1,
	}
	store := newFakeReleaseStore(release)
	catalog := &fakeCatalog{playlists: []model.Playlist{
		testPlaylist(1, []string{"hip hop"}, 1000),
		testPlaylist(2, []string{"hip hop", "trap"}, 2000),
	}}
	svc := newTestReleaseService(store, catalog, &fakeEnqueuer{})

	resp, err := svc.AdvanceToReady(context.Background(), "rel-1")
	if err != nil {
		t.Fatalf("AdvanceToReady failed: %v", err)
	}

	if !resp.IsHotNewArtist {
		t.Error("advancing should flag the artist as hot")
	}
	if resp.TotalPitched != 2 {
		t.Errorf("expected 2 pitched targets, got %d", resp.TotalPitched)
	}
	if len(resp.PitchResults) != 2 {
		t.Errorf("expected one result per target, got %d", len(resp.PitchResults))
	}

	// The pitch pass runs after the transition, so the stored record ends up
	// in the pitching stage.
	rel := store.get("rel-1")
	if rel.ProcessingStatus != model.ProcessingSpotifyPitching {
		t.Errorf("expected spotify_pitching after pitch pass, got %q", rel.ProcessingStatus)
	}
	if !rel.IsHotNewArtist {
		t.Error("stored record should be flagged hot")
	}
	if rel.PlaylistPitchCount != 2 {
		t.Errorf("stored pitch count should be 2, got %d", rel.PlaylistPitchCount)
	}
}

func TestAdvanceToReady_FromDraftFails(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ProcessingStatus: model.ProcessingDraft,
		Version:          1,
	}
	store := newFakeReleaseStore(release)
	svc := newTestReleaseService(store, nil, &fakeEnqueuer{})

	_, err := svc.AdvanceToReady(context.Background(), "rel-1")

	var invalid *apperr.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateError, got %v", err)
	}

	rel := store.get("rel-1")
	if rel.ProcessingStatus != model.ProcessingDraft || rel.IsHotNewArtist || rel.Version != 1 {
		t.Error("failed transition must not leave partial writes")
	}
}

func TestAdvanceToReady_NoMatchesStillAdvances(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		Genre:            "polka",
		ProcessingStatus: model.ProcessingInProgress,
		Version:          1,
	}
	store := newFakeReleaseStore(release)
	svc := newTestReleaseService(store, &fakeCatalog{}, &fakeEnqueuer{})

	resp, err := svc.AdvanceToReady(context.Background(), "rel-1")
	if err != nil {
		t.Fatalf("advance with zero playlist matches must still succeed: %v", err)
	}
	if resp.TotalPitched != 0 || len(resp.PitchResults) != 0 {
		t.Errorf("expected zero pitches, got %d", resp.TotalPitched)
	}
	if store.get("rel-1").ProcessingStatus != model.ProcessingReadyForSpotify {
		t.Errorf("release should sit at ready_for_spotify, got %q", store.get("rel-1").ProcessingStatus)
	}
}

func TestPromote_RequiresAdmin(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ProcessingStatus: model.ProcessingSpotifyPitching,
		Version:          1,
	}
	store := newFakeReleaseStore(release)
	svc := newTestReleaseService(store, nil, &fakeEnqueuer{})

	_, err := svc.Promote(context.Background(), model.RoleUser, "rel-1")

	var auth *apperr.AuthError
	if !errors.As(err, &auth) {
		t.Fatalf("expected AuthError for non-admin, got %v", err)
	}
	if store.get("rel-1").Version != 1 {
		t.Error("rejected promote must not touch the record")
	}
}

func TestPromote_MarksLive(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ReleaseTitle:     "Night Drive",
		ProcessingStatus: model.ProcessingSpotifyPitching,
		Status:           model.ReleaseStatusProcessing,
		Version:          1,
	}
	store := newFakeReleaseStore(release)
	svc := newTestReleaseService(store, nil, &fakeEnqueuer{})

	resp, err := svc.Promote(context.Background(), model.RoleAdmin, "rel-1")
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	if resp.ProcessingStatus != model.ProcessingLive || !resp.IsHotNewArtist {
		t.Errorf("unexpected promote response: %+v", resp)
	}

	rel := store.get("rel-1")
	if rel.ProcessingStatus != model.ProcessingLive {
		t.Errorf("stage should be live, got %q", rel.ProcessingStatus)
	}
	if rel.Status != model.ReleaseStatusLive {
		t.Errorf("coarse status should be live, got %q", rel.Status)
	}
	if !rel.IsHotNewArtist {
		t.Error("promoted release should be flagged hot")
	}
}

// staleReadStore hands out a release snapshot one version behind the store,
// standing in for a concurrent writer landing between read and update.
type staleReadStore struct {
	*fakeReleaseStore
}

func (s *staleReadStore) GetByID(ctx context.Context, id string) (*model.Release, error) {
	rel, err := s.fakeReleaseStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rel.Version--
	return rel, nil
}

func TestExpressProcess_ConcurrentWriteSurfacesConflict(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ProcessingStatus: model.ProcessingDraft,
		Version:          2,
	}
	store := &staleReadStore{newFakeReleaseStore(release)}
	pitcher := NewPitchService(store, newFakeCampaignStore(), &fakeCatalog{}, nil, 50)
	idgen := ids.NewGenerator(rand.New(rand.NewSource(1)), time.Now)
	svc := NewReleaseService(store, pitcher, nil, &fakeEnqueuer{}, idgen, testPipeline())

	_, err := svc.ExpressProcess(context.Background(), "kay@example.com", "rel-1")

	var conflict *apperr.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("stale version must surface ConflictError, got %v", err)
	}
}

func TestPromote_AlreadyLiveRejected(t *testing.T) {
	release := &model.Release{
		ID:               "rel-1",
		CreatedBy:        "kay@example.com",
		ProcessingStatus: model.ProcessingLive,
		Status:           model.ReleaseStatusLive,
		Version:          1,
	}
	svc := newTestReleaseService(newFakeReleaseStore(release), nil, &fakeEnqueuer{})

	_, err := svc.Promote(context.Background(), model.RoleAdmin, "rel-1")

	var invalid *apperr.InvalidStateError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidStateError for already-live release, got %v", err)
	}
}
