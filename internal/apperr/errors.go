// Package apperr defines the error taxonomy shared by services and handlers.
// Handlers translate these into HTTP responses with errors.As; services
// never inspect error strings.
package apperr

import "fmt"

// AuthError indicates missing or insufficient identity.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// ValidationError indicates missing or malformed required fields.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates an entity is absent or not owned by the caller.
// Ownership failures deliberately look identical to absence so callers
// cannot probe for other users' records.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidStateError indicates a lifecycle transition attempted from a state
// it is not allowed from. The entity is left untouched.
type InvalidStateError struct {
	Entity    string
	ID        string
	From      string
	Operation string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s %s: cannot %s from state %q", e.Entity, e.ID, e.Operation, e.From)
}

// ExternalServiceError carries a provider's failure message verbatim.
type ExternalServiceError struct {
	Service string
	Detail  string
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %s", e.Service, e.Detail)
}

// JobTimeoutError means local polling exhausted its attempts. The remote
// job was NOT cancelled; its outcome is unknown, so callers must not
// resubmit automatically. JobID is surfaced for out-of-band reconciliation.
type JobTimeoutError struct {
	JobID    string
	Attempts int
}

func (e *JobTimeoutError) Error() string {
	return fmt.Sprintf("job %s timed out after %d polls (remote outcome unknown)", e.JobID, e.Attempts)
}

// NoMatchError means a campaign had zero candidate playlists. Distinct from
// an empty campaign: no campaign record is created in this case.
type NoMatchError struct {
	Genres []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no matching playlists found for genres %v", e.Genres)
}

// ConflictError indicates an optimistic-concurrency update lost the race.
type ConflictError struct {
	Entity string
	ID     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}
