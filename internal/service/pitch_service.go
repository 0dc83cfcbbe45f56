package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/repository"
)

// MatchScore computes a genre-overlap score in [0,100] between a playlist's
// genre tags and a release's genre tags. A playlist genre counts as a match
// when it contains, or is contained in, any release genre
// (case-insensitive). Swapping the arguments keeps the match count but can
// change the denominator, so the score is NOT symmetric: callers must pass
// playlist genres first. This is a known characteristic, kept deliberately.
func MatchScore(playlistGenres, releaseGenres []string) float64 {
	if len(playlistGenres) == 0 || len(releaseGenres) == 0 {
		return 0
	}

	matches := 0
	for _, pg := range playlistGenres {
		if genreMatches(pg, releaseGenres) {
			matches++
		}
	}

	denom := len(playlistGenres)
	if len(releaseGenres) > denom {
		denom = len(releaseGenres)
	}

	score := float64(matches) / float64(denom) * 100
	if score > 100 {
		score = 100
	}
	return score
}

// genreMatches reports whether genre bidirectionally contains any of the
// given tokens. Substring containment tolerates loosely-tagged vocabularies
// ("indie rock" matches "rock").
func genreMatches(genre string, tokens []string) bool {
	g := strings.ToLower(genre)
	for _, token := range tokens {
		t := strings.ToLower(token)
		if t == "" || g == "" {
			continue
		}
		if strings.Contains(g, t) || strings.Contains(t, g) {
			return true
		}
	}
	return false
}

const defaultPitchTemplate = `Hi %s,

I'm reaching out about a new track that I think would be a great fit for your playlist "%s".

Artist: %s
Track: %s
Genre: %s

Your playlist is known for curating quality %s content, and I believe this track aligns perfectly with your audience.

Would love to get it added!

Best,
%s
`

// PitchService selects playlist targets for a release, persists pitch
// campaigns, and runs the outbound pitch pass.
type PitchService struct {
	releases    repository.ReleaseStore
	campaigns   repository.CampaignStore
	catalog     repository.PlaylistCatalog
	notifier    client.Notifier
	targetLimit int
	now         func() time.Time
}

func NewPitchService(releases repository.ReleaseStore, campaigns repository.CampaignStore, catalog repository.PlaylistCatalog, notifier client.Notifier, targetLimit int) *PitchService {
	if targetLimit <= 0 {
		targetLimit = 50
	}
	return &PitchService{
		releases:    releases,
		campaigns:   campaigns,
		catalog:     catalog,
		notifier:    notifier,
		targetLimit: targetLimit,
		now:         time.Now,
	}
}

// BuildCampaign selects targets for the caller's release and persists a
// draft campaign. Zero matches is an error, not an empty campaign: nothing
// is persisted in that case.
func (s *PitchService) BuildCampaign(ctx context.Context, owner string, req *model.BuildCampaignRequest) (*model.BuildCampaignResponse, error) {
	release, err := s.releases.GetByID(ctx, req.DistributionID)
	if err != nil {
		return nil, err
	}
	if release.CreatedBy != owner {
		return nil, &apperr.NotFoundError{Entity: "release", ID: req.DistributionID}
	}

	campaign, err := s.assembleCampaign(ctx, release, req.Genres)
	if err != nil {
		return nil, err
	}

	if err := s.campaigns.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	return &model.BuildCampaignResponse{
		CampaignID:     campaign.ID,
		PlaylistsFound: campaign.TotalPlaylists,
		PotentialReach: campaign.PotentialReach,
		PitchMessage:   campaign.PitchMessage,
		Status:         campaign.Status,
	}, nil
}

// PitchRelease builds a campaign for the release and immediately runs the
// outbound pitch pass against every target. One target failing never aborts
// its siblings; the returned slice accounts for every target exactly once.
// On success the release is stamped with the pitch count and moved to the
// pitching stage.
func (s *PitchService) PitchRelease(ctx context.Context, release *model.Release) ([]model.PitchResult, error) {
	campaign, err := s.assembleCampaign(ctx, release, release.GenreTokens())
	if err != nil {
		return nil, err
	}

	if err := s.campaigns.CreateCampaign(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	results := s.dispatch(ctx, release, campaign)

	if err := s.campaigns.SetCampaignStatus(ctx, campaign.ID, model.CampaignActive); err != nil {
		logger.WithField("campaignId", campaign.ID).Warnf("failed to activate campaign: %v", err)
	}

	fields := map[string]interface{}{
		"processing_status":    model.ProcessingSpotifyPitching,
		"playlist_pitch_count": len(results),
	}
	if err := s.releases.UpdateFields(ctx, release.ID, release.Version, fields); err != nil {
		return results, err
	}
	release.ProcessingStatus = model.ProcessingSpotifyPitching
	release.PlaylistPitchCount = len(results)
	release.Version++

	return results, nil
}

// assembleCampaign filters the catalog, truncates to the target limit in
// catalog order (deliberately not ranked by score), and builds the campaign
// record without persisting it.
func (s *PitchService) assembleCampaign(ctx context.Context, release *model.Release, genres []string) (*model.PitchCampaign, error) {
	candidates, err := s.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	var selected []model.Playlist
	for _, playlist := range candidates {
		// Only active playlists whose curator opted into automated
		// pitching are candidates.
		if !playlist.IsActive || !playlist.AutoPitch {
			continue
		}
		if overlaps(playlist.Genres, genres) {
			selected = append(selected, playlist)
			if len(selected) == s.targetLimit {
				break
			}
		}
	}

	if len(selected) == 0 {
		return nil, &apperr.NoMatchError{Genres: genres}
	}

	campaign := &model.PitchCampaign{
		ID:           uuid.New().String(),
		ReleaseID:    release.ID,
		ArtistName:   release.ArtistName,
		ReleaseTitle: release.ReleaseTitle,
		Genre:        release.Genre,
		Status:       model.CampaignDraft,
	}

	var reach int64
	for i, playlist := range selected {
		reach += playlist.FollowerCount
		campaign.Targets = append(campaign.Targets, model.PlaylistTarget{
			ID:           uuid.New().String(),
			CampaignID:   campaign.ID,
			PlaylistID:   playlist.ID,
			PlaylistName: playlist.PlaylistName,
			Platform:     playlist.Platform,
			CuratorName:  playlist.CuratorName,
			CuratorEmail: playlist.CuratorEmail,
			Followers:    playlist.FollowerCount,
			MatchScore:   MatchScore(playlist.Genres, genres),
			Status:       model.TargetPending,
			Position:     i,
		})
	}

	campaign.TotalPlaylists = len(campaign.Targets)
	campaign.PotentialReach = reach
	campaign.PitchMessage = s.pitchMessage(release, selected[0])

	return campaign, nil
}

// dispatch runs the outbound pitch attempt for every campaign target.
func (s *PitchService) dispatch(ctx context.Context, release *model.Release, campaign *model.PitchCampaign) []model.PitchResult {
	results := make([]model.PitchResult, 0, len(campaign.Targets))

	for i := range campaign.Targets {
		target := &campaign.Targets[i]
		result := model.PitchResult{
			PlaylistID:   target.PlaylistID,
			PlaylistName: target.PlaylistName,
		}

		err := s.pitchTarget(ctx, release, target)
		now := s.now().UTC()
		if err != nil {
			result.Status = model.TargetFailed
			result.Error = err.Error()
			logger.WithFields(logrus.Fields{
				"releaseId":  release.ID,
				"playlistId": target.PlaylistID,
			}).Warnf("pitch failed: %v", err)
			if uerr := s.campaigns.UpdateTargetStatus(ctx, target.ID, model.TargetFailed, err.Error(), now); uerr != nil {
				logger.WithField("targetId", target.ID).Warnf("failed to record pitch failure: %v", uerr)
			}
		} else {
			result.Status = model.TargetPitched
			if uerr := s.campaigns.UpdateTargetStatus(ctx, target.ID, model.TargetPitched, "", now); uerr != nil {
				logger.WithField("targetId", target.ID).Warnf("failed to record pitch: %v", uerr)
			}
			if terr := s.catalog.TouchPitched(ctx, target.PlaylistID, now); terr != nil {
				logger.WithField("playlistId", target.PlaylistID).Warnf("failed to stamp playlist: %v", terr)
			}
		}

		results = append(results, result)
	}

	return results
}

func (s *PitchService) pitchTarget(ctx context.Context, release *model.Release, target *model.PlaylistTarget) error {
	if s.notifier == nil || target.CuratorEmail == "" {
		// Nothing to send; the target still counts as pitched, matching
		// the campaign's reach accounting.
		return nil
	}

	subject := fmt.Sprintf("New Track Submission: %s by %s", release.ReleaseTitle, release.ArtistName)
	body := fmt.Sprintf(defaultPitchTemplate,
		target.CuratorName, target.PlaylistName,
		release.ArtistName, release.ReleaseTitle, release.Genre, release.Genre,
		release.ArtistName,
	)

	if err := s.notifier.Send(ctx, target.CuratorEmail, subject, body, ""); err != nil {
		return &apperr.ExternalServiceError{Service: "notifier", Detail: err.Error()}
	}
	return nil
}

func (s *PitchService) pitchMessage(release *model.Release, first model.Playlist) string {
	if first.PitchTemplate != "" {
		return first.PitchTemplate
	}
	return fmt.Sprintf(
		"%q by %s is a fresh %s release that fits right into playlists like %q. Would love for you to give it a listen.",
		release.ReleaseTitle, release.ArtistName, release.Genre, first.PlaylistName,
	)
}

// overlaps reports whether any playlist genre matches any release token
// under the same containment rule the scorer uses.
func overlaps(playlistGenres, releaseGenres []string) bool {
	for _, pg := range playlistGenres {
		if genreMatches(pg, releaseGenres) {
			return true
		}
	}
	return false
}
