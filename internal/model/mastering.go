package model

import "time"

// MasteringJob tracks one external mastering run for its polling lifetime.
// It lives in Redis with a TTL, never in Postgres: once the poll loop ends
// the record only serves progress queries and out-of-band reconciliation
// after a timeout.
type MasteringJob struct {
	ID            string          `json:"id"`
	ExternalJobID string          `json:"externalJobId"`
	Status        MasteringStatus `json:"status"`
	Attempts      int             `json:"attempts"`
	Preset        MasteringPreset `json:"preset"`
	AudioFileURL  string          `json:"audioFileUrl"`
	OutputRef     string          `json:"outputRef,omitempty"`
	Error         *string         `json:"error,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
}

type MasterAudioRequest struct {
	AudioFileURL string          `json:"audioFileUrl" validate:"required,url"`
	Preset       MasteringPreset `json:"preset" validate:"required,oneof=light medium aggressive"`
}

type MasterAudioResponse struct {
	JobID           string `json:"jobId"`
	MasteredFileURL string `json:"masteredFileUrl"`
}

// MasteringOrderRequest submits a track to the managed mastering service.
type MasteringOrderRequest struct {
	ArtistName          string `json:"artistName" validate:"required"`
	SongTitle           string `json:"songTitle" validate:"required"`
	Genre               string `json:"genre,omitempty"`
	AudioURL            string `json:"audioUrl" validate:"required,url"`
	ReferenceURL        string `json:"referenceUrl,omitempty"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
	ServiceTier         string `json:"serviceTier,omitempty"`
}

type MasteringOrderResponse struct {
	OrderID    string `json:"orderId"`
	ArtistName string `json:"artistName"`
	SongTitle  string `json:"songTitle"`
	Message    string `json:"message"`
}

// WebSocket messages

type WSMessageType string

const (
	WSMessageTypeProgress WSMessageType = "progress"
	WSMessageTypeComplete WSMessageType = "complete"
	WSMessageTypeError    WSMessageType = "error"
	WSMessageTypePing     WSMessageType = "ping"
	WSMessageTypePong     WSMessageType = "pong"
)

// WSMessage is the minimal envelope used for client control frames.
type WSMessage struct {
	Type WSMessageType `json:"type"`
}

type WSProgressMessage struct {
	Type     WSMessageType   `json:"type"`
	JobID    string          `json:"jobId"`
	Status   MasteringStatus `json:"status"`
	Attempts int             `json:"attempts"`
}

type WSCompleteMessage struct {
	Type   WSMessageType `json:"type"`
	JobID  string        `json:"jobId"`
	Result interface{}   `json:"result"`
}

type WSErrorMessage struct {
	Type    WSMessageType `json:"type"`
	JobID   string        `json:"jobId"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
}
