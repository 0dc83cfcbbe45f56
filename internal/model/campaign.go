package model

import (
	"time"

	"gorm.io/datatypes"
)

// Playlist is one catalog row from the approved playlist directory.
type Playlist struct {
	ID            string                      `gorm:"primaryKey" json:"id"`
	PlaylistName  string                      `json:"playlistName"`
	Platform      string                      `json:"platform"`
	CuratorName   string                      `json:"curatorName,omitempty"`
	CuratorEmail  string                      `json:"curatorEmail,omitempty"`
	Genres        datatypes.JSONSlice[string] `json:"genres"`
	FollowerCount int64                       `json:"followerCount"`
	IsActive      bool                        `gorm:"index" json:"isActive"`
	AutoPitch     bool                        `json:"autoPitch"`
	PitchTemplate string                      `json:"pitchTemplate,omitempty"`
	LastPitched   *time.Time                  `json:"lastPitched,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	UpdatedAt     time.Time                   `json:"updatedAt"`
}

// PitchCampaign groups the playlist targets selected for one release.
// Target order is selection order; a campaign is only persisted when at
// least one target matched.
type PitchCampaign struct {
	ID             string           `gorm:"primaryKey" json:"id"`
	ReleaseID      string           `gorm:"index" json:"releaseId"`
	ArtistName     string           `json:"artistName"`
	ReleaseTitle   string           `json:"releaseTitle"`
	Genre          string           `json:"genre"`
	PitchMessage   string           `json:"pitchMessage,omitempty"`
	Status         CampaignStatus   `json:"status"`
	TotalPlaylists int              `json:"totalPlaylists"`
	PotentialReach int64            `json:"potentialReach"`
	Targets        []PlaylistTarget `gorm:"foreignKey:CampaignID" json:"targets,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// PlaylistTarget is one candidate playlist within a campaign. Targets move
// pending → pitched or pending → failed independently of their siblings.
type PlaylistTarget struct {
	ID           string       `gorm:"primaryKey" json:"id"`
	CampaignID   string       `gorm:"index" json:"campaignId"`
	PlaylistID   string       `json:"playlistId"`
	PlaylistName string       `json:"playlistName"`
	Platform     string       `json:"platform"`
	CuratorName  string       `json:"curatorName,omitempty"`
	CuratorEmail string       `json:"curatorEmail,omitempty"`
	Followers    int64        `json:"followers"`
	MatchScore   float64      `json:"matchScore"`
	Status       TargetStatus `json:"status"`
	Position     int          `json:"position"`
	PitchedAt    *time.Time   `json:"pitchedAt,omitempty"`
	LastError    string       `json:"lastError,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

// PitchResult is the per-target outcome of an outbound pitch pass. The
// whole slice is always returned; one target failing never aborts siblings.
type PitchResult struct {
	PlaylistID   string       `json:"playlistId"`
	PlaylistName string       `json:"playlistName"`
	Status       TargetStatus `json:"status"`
	Error        string       `json:"error,omitempty"`
}

type BuildCampaignRequest struct {
	DistributionID string   `json:"distributionId" validate:"required"`
	Genres         []string `json:"genres" validate:"required,min=1"`
}

type BuildCampaignResponse struct {
	CampaignID     string         `json:"campaignId"`
	PlaylistsFound int            `json:"playlistsFound"`
	PotentialReach int64          `json:"potentialReach"`
	PitchMessage   string         `json:"pitchMessage,omitempty"`
	Status         CampaignStatus `json:"status"`
}
