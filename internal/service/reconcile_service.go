package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/logger"
	"github.com/slaptrapper/distribution-api/internal/model"
	"github.com/slaptrapper/distribution-api/internal/repository"
)

// ReconcileService merges externally reported earnings into the caller's
// release records. The whole batch is best-effort: every input row yields
// exactly one result, matched or unmatched, and no row ever aborts its
// siblings.
type ReconcileService struct {
	releases repository.ReleaseStore
	notifier client.Notifier
	now      func() time.Time
}

func NewReconcileService(releases repository.ReleaseStore, notifier client.Notifier) *ReconcileService {
	return &ReconcileService{
		releases: releases,
		notifier: notifier,
		now:      time.Now,
	}
}

// Reconcile matches each earnings row against the caller's releases by
// case-insensitive exact (title, artist) and applies the merge: earnings
// overwrite (last report wins), streams add. Note the additive streams make
// re-running an overlapping batch double-count; idempotence would need the
// rows keyed by (platform, reporting period), which the upstream reports do
// not carry today.
func (s *ReconcileService) Reconcile(ctx context.Context, owner string, earnings []model.EarningsRecord) (*model.ReconcileResponse, error) {
	releases, err := s.releases.FilterByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load releases: %w", err)
	}

	results := make([]model.ReconciliationResult, 0, len(earnings))
	reconciledCount := 0
	var totalUpdated float64

	for _, record := range earnings {
		matches := findReleases(releases, record)
		if len(matches) == 0 {
			results = append(results, model.ReconciliationResult{
				Matched:      false,
				ReleaseTitle: record.ReleaseTitle,
				ArtistName:   record.ArtistName,
				Platform:     record.Platform,
				Earnings:     record.TotalEarnings,
				Reason:       "no release with matching title and artist",
			})
			continue
		}
		if len(matches) > 1 {
			// Ambiguous rows are never silently applied to the first hit;
			// they need an external ID to disambiguate.
			results = append(results, model.ReconciliationResult{
				Matched:      false,
				ReleaseTitle: record.ReleaseTitle,
				ArtistName:   record.ArtistName,
				Platform:     record.Platform,
				Earnings:     record.TotalEarnings,
				Reason:       fmt.Sprintf("%d releases share this title and artist", len(matches)),
			})
			continue
		}
		match := matches[0]

		now := s.now().UTC()
		previous := match.EstimatedEarnings
		if err := s.releases.ApplyEarnings(ctx, match.ID, match.Version, record.TotalEarnings, record.Streams, now); err != nil {
			logger.WithField("releaseId", match.ID).Warnf("failed to apply earnings: %v", err)
			results = append(results, model.ReconciliationResult{
				Matched:      false,
				ReleaseTitle: record.ReleaseTitle,
				ArtistName:   record.ArtistName,
				Platform:     record.Platform,
				Earnings:     record.TotalEarnings,
				Reason:       fmt.Sprintf("update failed: %v", err),
			})
			continue
		}

		// Keep the in-memory copy current so duplicate rows in the same
		// batch see the right version and before-values.
		match.EstimatedEarnings = record.TotalEarnings
		match.TotalStreams += record.Streams
		match.ReconciliationStatus = model.ReconciliationReconciled
		match.LastReconciliationDate = &now
		match.Version++

		reconciledCount++
		totalUpdated += record.TotalEarnings
		results = append(results, model.ReconciliationResult{
			Matched:          true,
			ReleaseID:        match.ID,
			ReleaseTitle:     match.ReleaseTitle,
			ArtistName:       match.ArtistName,
			Platform:         record.Platform,
			PreviousEarnings: previous,
			NewEarnings:      record.TotalEarnings,
			StreamsAdded:     record.Streams,
			ReconciledAt:     &now,
		})
	}

	s.sendSummary(ctx, owner, results, reconciledCount)

	return &model.ReconcileResponse{
		ReconciledCount:      reconciledCount,
		UnmatchedCount:       len(results) - reconciledCount,
		TotalEarningsUpdated: totalUpdated,
		Results:              results,
	}, nil
}

// findReleases returns every release matching the record's title and artist
// case-insensitively. More than one hit means the pair is ambiguous.
func findReleases(releases []model.Release, record model.EarningsRecord) []*model.Release {
	var out []*model.Release
	for i := range releases {
		if strings.EqualFold(releases[i].ReleaseTitle, record.ReleaseTitle) &&
			strings.EqualFold(releases[i].ArtistName, record.ArtistName) {
			out = append(out, &releases[i])
		}
	}
	return out
}

func (s *ReconcileService) sendSummary(ctx context.Context, owner string, results []model.ReconciliationResult, reconciled int) {
	if s.notifier == nil || owner == "" {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Earnings Reconciliation Report\n==============================\n\n")
	fmt.Fprintf(&b, "Reconciled Releases: %d\nUnmatched Records: %d\n", reconciled, len(results)-reconciled)

	for _, r := range results {
		if r.Matched {
			fmt.Fprintf(&b, "\n- %s: $%.2f -> $%.2f (+%d streams from %s)",
				r.ReleaseTitle, r.PreviousEarnings, r.NewEarnings, r.StreamsAdded, r.Platform)
		}
	}
	for _, r := range results {
		if !r.Matched {
			fmt.Fprintf(&b, "\n- UNMATCHED %s by %s (%s): $%.2f",
				r.ReleaseTitle, r.ArtistName, r.Platform, r.Earnings)
		}
	}
	b.WriteString("\n\nCheck your Analytics dashboard for detailed breakdowns.\n")

	subject := fmt.Sprintf("Earnings Reconciliation - %d releases updated", reconciled)
	if err := s.notifier.Send(ctx, owner, subject, b.String(), ""); err != nil {
		logger.WithField("to", owner).Warnf("failed to send reconciliation summary: %v", err)
	}
}
