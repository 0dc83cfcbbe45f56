package model

import "time"

// EarningsRecord is one externally reported earnings row. It is caller
// input only and is never stored verbatim.
type EarningsRecord struct {
	ReleaseTitle  string  `json:"releaseTitle" validate:"required"`
	ArtistName    string  `json:"artistName" validate:"required"`
	Platform      string  `json:"platform"`
	Streams       int64   `json:"streams" validate:"min=0"`
	TotalEarnings float64 `json:"totalEarnings"`
}

// ReconciliationResult covers exactly one input row: either a match with
// before/after values, or the raw input echoed back for manual follow-up.
type ReconciliationResult struct {
	Matched      bool   `json:"matched"`
	ReleaseTitle string `json:"releaseTitle"`
	ArtistName   string `json:"artistName"`
	Platform     string `json:"platform,omitempty"`

	// Matched rows only
	ReleaseID        string     `json:"releaseId,omitempty"`
	PreviousEarnings float64    `json:"previousEarnings,omitempty"`
	NewEarnings      float64    `json:"newEarnings,omitempty"`
	StreamsAdded     int64      `json:"streamsAdded,omitempty"`
	ReconciledAt     *time.Time `json:"reconciledAt,omitempty"`

	// Unmatched rows only
	Reason   string  `json:"reason,omitempty"`
	Earnings float64 `json:"earnings,omitempty"`
}

type ReconcileRequest struct {
	Earnings []EarningsRecord `json:"earningsData" validate:"required,min=1,dive"`
}

type ReconcileResponse struct {
	ReconciledCount      int                    `json:"reconciledCount"`
	UnmatchedCount       int                    `json:"unmatchedCount"`
	TotalEarningsUpdated float64                `json:"totalEarningsUpdated"`
	Results              []ReconciliationResult `json:"results"`
}
