package model

// Coarse external-facing release status
type ReleaseStatus string

const (
	ReleaseStatusProcessing ReleaseStatus = "processing"
	ReleaseStatusLive       ReleaseStatus = "live"
)

// Pipeline stage. Transitions are forward-only; there are no back-edges.
type ProcessingStatus string

const (
	ProcessingDraft           ProcessingStatus = "draft"
	ProcessingInProgress      ProcessingStatus = "processing"
	ProcessingReadyForSpotify ProcessingStatus = "ready_for_spotify"
	ProcessingSpotifyPitching ProcessingStatus = "spotify_pitching"
	ProcessingLive            ProcessingStatus = "live"
)

var processingOrder = map[ProcessingStatus]int{
	ProcessingDraft:           0,
	ProcessingInProgress:      1,
	ProcessingReadyForSpotify: 2,
	ProcessingSpotifyPitching: 3,
	ProcessingLive:            4,
}

// Before reports whether s comes strictly earlier than other in the pipeline.
func (s ProcessingStatus) Before(other ProcessingStatus) bool {
	return processingOrder[s] < processingOrder[other]
}

// Processing speed variants
type ProcessingSpeed string

const (
	SpeedStandard ProcessingSpeed = "standard"
	SpeedExpress  ProcessingSpeed = "express"
)

// Mastering job status as reported by the external provider
type MasteringStatus string

const (
	MasteringPending MasteringStatus = "pending"
	MasteringRunning MasteringStatus = "running"
	MasteringSuccess MasteringStatus = "success"
	MasteringFailed  MasteringStatus = "failed"
)

// Terminal reports whether the provider will make no further progress.
func (s MasteringStatus) Terminal() bool {
	return s == MasteringSuccess || s == MasteringFailed
}

// Mastering presets
type MasteringPreset string

const (
	PresetLight      MasteringPreset = "light"
	PresetMedium     MasteringPreset = "medium"
	PresetAggressive MasteringPreset = "aggressive"
)

// Campaign status
type CampaignStatus string

const (
	CampaignDraft  CampaignStatus = "draft"
	CampaignActive CampaignStatus = "active"
)

// Per-playlist pitch status within a campaign
type TargetStatus string

const (
	TargetPending TargetStatus = "pending"
	TargetPitched TargetStatus = "pitched"
	TargetFailed  TargetStatus = "failed"
)

// Reconciliation status on a release
type ReconciliationStatus string

const (
	ReconciliationReconciled ReconciliationStatus = "reconciled"
)

// User roles
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// DefaultPlatforms is the fan-out list applied when a submission does not
// name its own platforms.
var DefaultPlatforms = []string{
	"spotify", "apple_music", "amazon_music", "youtube_music", "tidal",
	"deezer", "bandcamp", "soundcloud", "shazam", "pandora", "iheartradio",
	"instagram", "facebook", "tiktok",
}
