package model

import (
	"time"

	"gorm.io/datatypes"
)

// Release is the long-lived distribution record the pipeline owns. All
// writes after creation are targeted field merges guarded by Version so
// independent pipeline stages cannot clobber each other.
type Release struct {
	ID        string `gorm:"primaryKey" json:"id"`
	CreatedBy string `gorm:"index" json:"createdBy"`

	ArtistName   string                      `json:"artistName"`
	ReleaseTitle string                      `json:"releaseTitle"`
	Genre        string                      `json:"genre"`
	Genres       datatypes.JSONSlice[string] `json:"genres,omitempty"`
	ReleaseDate  string                      `json:"releaseDate,omitempty"`

	AudioFileURL string `json:"audioFileUrl"`
	CoverArtURL  string `json:"coverArtUrl"`

	ISRC      string                      `json:"isrc"`
	UPC       string                      `json:"upc"`
	Platforms datatypes.JSONSlice[string] `json:"platforms"`

	Status            ReleaseStatus    `gorm:"index" json:"status"`
	ProcessingStatus  ProcessingStatus `gorm:"index" json:"processingStatus"`
	ProcessingSpeed   ProcessingSpeed  `json:"processingSpeed,omitempty"`
	EstimatedLiveDate *time.Time       `json:"estimatedLiveDate,omitempty"`

	IsHotNewArtist     bool    `json:"isHotNewArtist"`
	TotalStreams       int64   `json:"totalStreams"`
	EstimatedEarnings  float64 `json:"estimatedEarnings"`
	PlaylistPitchCount int     `json:"playlistPitchCount"`

	ReconciliationStatus   ReconciliationStatus `json:"reconciliationStatus,omitempty"`
	LastReconciliationDate *time.Time           `json:"lastReconciliationDate,omitempty"`

	// Version backs optimistic concurrency on partial updates.
	Version int64 `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GenreTokens returns the genre vocabulary used for playlist matching:
// the explicit token list when present, otherwise the single genre field.
func (r *Release) GenreTokens() []string {
	if len(r.Genres) > 0 {
		return r.Genres
	}
	if r.Genre != "" {
		return []string{r.Genre}
	}
	return nil
}

// SubmitReleaseRequest is the distribution submission payload.
type SubmitReleaseRequest struct {
	ArtistName   string   `json:"artistName" validate:"required"`
	ReleaseTitle string   `json:"releaseTitle" validate:"required"`
	Genre        string   `json:"genre"`
	Genres       []string `json:"genres,omitempty"`
	ReleaseDate  string   `json:"releaseDate,omitempty"`
	AudioFileURL string   `json:"audioFileUrl" validate:"required,url"`
	CoverArtURL  string   `json:"coverArtUrl" validate:"required,url"`
	ISRC         string   `json:"isrc,omitempty"`
	UPC          string   `json:"upc,omitempty"`
	Platforms    []string `json:"platforms,omitempty"`
}

type SubmitReleaseResponse struct {
	DistributionID string        `json:"distributionId"`
	ISRC           string        `json:"isrc"`
	UPC            string        `json:"upc"`
	Status         ReleaseStatus `json:"status"`
	Message        string        `json:"message"`
}

type ExpressProcessResponse struct {
	DistributionID    string           `json:"distributionId"`
	ProcessingStatus  ProcessingStatus `json:"processingStatus"`
	EstimatedLiveDate *time.Time       `json:"estimatedLiveDate,omitempty"`
	AdvanceAt         time.Time        `json:"advanceAt"`
}

type AdvanceResponse struct {
	DistributionID   string           `json:"distributionId"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	IsHotNewArtist   bool             `json:"isHotNewArtist"`
	TotalPitched     int              `json:"totalPitched"`
	PitchResults     []PitchResult    `json:"pitchResults"`
}

type PromoteResponse struct {
	DistributionID   string           `json:"distributionId"`
	ProcessingStatus ProcessingStatus `json:"processingStatus"`
	IsHotNewArtist   bool             `json:"isHotNewArtist"`
	Message          string           `json:"message"`
}

// PlatformDelivery is one platform's delivery state from the distributor.
type PlatformDelivery struct {
	Status      string `json:"status"`
	URL         string `json:"url,omitempty"`
	DeliveredAt string `json:"deliveredAt,omitempty"`
}

type DeliveryStatusResponse struct {
	DistributionID string                      `json:"distributionId"`
	OverallStatus  ReleaseStatus               `json:"overallStatus"`
	Platforms      map[string]PlatformDelivery `json:"platforms,omitempty"`
	Message        string                      `json:"message,omitempty"`
}

// StatsUpdate reports one release touched by a stats sync run.
type StatsUpdate struct {
	DistributionID string  `json:"distributionId"`
	ReleaseTitle   string  `json:"releaseTitle"`
	TotalStreams   int64   `json:"totalStreams"`
	Earnings       float64 `json:"earnings"`
}

type SyncStatsResponse struct {
	Updated  int           `json:"updated"`
	Releases []StatsUpdate `json:"releases"`
}
