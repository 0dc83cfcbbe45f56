package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/slaptrapper/distribution-api/internal/apperr"
	"github.com/slaptrapper/distribution-api/internal/client"
	"github.com/slaptrapper/distribution-api/internal/model"
)

// fakeReleaseStore is an in-memory ReleaseStore with the same versioned
// partial-update contract as the Postgres repository.
type fakeReleaseStore struct {
	mu       sync.Mutex
	releases map[string]*model.Release
}

func newFakeReleaseStore(releases ...*model.Release) *fakeReleaseStore {
	s := &fakeReleaseStore{releases: make(map[string]*model.Release)}
	for _, rel := range releases {
		if rel.Version == 0 {
			rel.Version = 1
		}
		s.releases[rel.ID] = rel
	}
	return s
}

func (s *fakeReleaseStore) Create(ctx context.Context, rel *model.Release) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel.Version = 1
	rel.CreatedAt = time.Now().UTC()
	rel.UpdatedAt = rel.CreatedAt
	s.releases[rel.ID] = rel
	return nil
}

func (s *fakeReleaseStore) GetByID(ctx context.Context, id string) (*model.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.releases[id]
	if !ok {
		return nil, &apperr.NotFoundError{Entity: "release", ID: id}
	}
	cp := *rel
	return &cp, nil
}

func (s *fakeReleaseStore) FilterByOwner(ctx context.Context, owner string) ([]model.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Release
	for _, rel := range s.releases {
		if rel.CreatedBy == owner {
			out = append(out, *rel)
		}
	}
	return out, nil
}

func (s *fakeReleaseStore) FilterLiveByOwner(ctx context.Context, owner string) ([]model.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Release
	for _, rel := range s.releases {
		if rel.CreatedBy == owner && rel.Status == model.ReleaseStatusLive {
			out = append(out, *rel)
		}
	}
	return out, nil
}

func (s *fakeReleaseStore) FilterAll(ctx context.Context) ([]model.Release, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Release
	for _, rel := range s.releases {
		out = append(out, *rel)
	}
	return out, nil
}

func (s *fakeReleaseStore) UpdateFields(ctx context.Context, id string, version int64, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.releases[id]
	if !ok {
		return &apperr.NotFoundError{Entity: "release", ID: id}
	}
	if rel.Version != version {
		return &apperr.ConflictError{Entity: "release", ID: id}
	}
	for k, v := range fields {
		switch k {
		case "processing_status":
			rel.ProcessingStatus = v.(model.ProcessingStatus)
		case "processing_speed":
			rel.ProcessingSpeed = v.(model.ProcessingSpeed)
		case "estimated_live_date":
			t := v.(time.Time)
			rel.EstimatedLiveDate = &t
		case "is_hot_new_artist":
			rel.IsHotNewArtist = v.(bool)
		case "status":
			rel.Status = v.(model.ReleaseStatus)
		case "playlist_pitch_count":
			rel.PlaylistPitchCount = v.(int)
		default:
			return fmt.Errorf("fakeReleaseStore: unsupported field %q", k)
		}
	}
	rel.Version++
	rel.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *fakeReleaseStore) ApplyEarnings(ctx context.Context, id string, version int64, earnings float64, streamsDelta int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.releases[id]
	if !ok {
		return &apperr.NotFoundError{Entity: "release", ID: id}
	}
	if rel.Version != version {
		return &apperr.ConflictError{Entity: "release", ID: id}
	}
	rel.EstimatedEarnings = earnings
	rel.TotalStreams += streamsDelta
	rel.ReconciliationStatus = model.ReconciliationReconciled
	rel.LastReconciliationDate = &at
	rel.Version++
	return nil
}

func (s *fakeReleaseStore) ApplyStats(ctx context.Context, id string, version int64, streamsDelta int64, earnings float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rel, ok := s.releases[id]
	if !ok {
		return &apperr.NotFoundError{Entity: "release", ID: id}
	}
	if rel.Version != version {
		return &apperr.ConflictError{Entity: "release", ID: id}
	}
	rel.TotalStreams += streamsDelta
	rel.EstimatedEarnings = earnings
	rel.Version++
	return nil
}

// get returns the stored record directly for assertions.
func (s *fakeReleaseStore) get(id string) *model.Release {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releases[id]
}

type fakeCampaignStore struct {
	mu            sync.Mutex
	created       []*model.PitchCampaign
	statuses      map[string]model.CampaignStatus
	targetUpdates []string
}

func newFakeCampaignStore() *fakeCampaignStore {
	return &fakeCampaignStore{statuses: make(map[string]model.CampaignStatus)}
}

func (s *fakeCampaignStore) CreateCampaign(ctx context.Context, campaign *model.PitchCampaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.created = append(s.created, campaign)
	return nil
}

func (s *fakeCampaignStore) GetCampaign(ctx context.Context, id string) (*model.PitchCampaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.created {
		if c.ID == id {
			return c, nil
		}
	}
	return nil, &apperr.NotFoundError{Entity: "campaign", ID: id}
}

func (s *fakeCampaignStore) SetCampaignStatus(ctx context.Context, id string, status model.CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses[id] = status
	return nil
}

func (s *fakeCampaignStore) UpdateTargetStatus(ctx context.Context, targetID string, status model.TargetStatus, errMsg string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targetUpdates = append(s.targetUpdates, targetID)
	return nil
}

type fakeCatalog struct {
	playlists []model.Playlist
	touched   []string
}

func (c *fakeCatalog) ListActive(ctx context.Context) ([]model.Playlist, error) {
	var out []model.Playlist
	for _, p := range c.playlists {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) TouchPitched(ctx context.Context, playlistID string, at time.Time) error {
	c.touched = append(c.touched, playlistID)
	return nil
}

type sentMail struct {
	To      string
	Subject string
}

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []sentMail
	failTo map[string]bool
}

func (n *fakeNotifier) Send(ctx context.Context, to, subject, body, fromName string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.failTo[to] {
		return fmt.Errorf("relay rejected %s", to)
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject})
	return nil
}

type fakeEnqueuer struct {
	mu    sync.Mutex
	tasks []*asynq.Task
	opts  [][]asynq.Option
	fail  bool
}

func (e *fakeEnqueuer) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.fail {
		return nil, fmt.Errorf("queue unavailable")
	}
	e.tasks = append(e.tasks, task)
	e.opts = append(e.opts, opts)
	return &asynq.TaskInfo{}, nil
}

// queueOf returns the queue name the i-th enqueue call asked for, or ""
// when the call would land in asynq's default queue.
func (e *fakeEnqueuer) queueOf(i int) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, opt := range e.opts[i] {
		if opt.Type() == asynq.QueueOpt {
			return opt.Value().(string)
		}
	}
	return ""
}

func (e *fakeEnqueuer) taskTypes() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, task := range e.tasks {
		out = append(out, task.Type())
	}
	return out
}

// fakeMasteringProvider replays a scripted status sequence; the last entry
// repeats once the script runs out.
type fakeMasteringProvider struct {
	submitErr   error
	externalID  string
	script      []client.JobStatus
	statusCalls int
	fetched     []string
}

func (p *fakeMasteringProvider) Submit(ctx context.Context, audioFileURL string, preset model.MasteringPreset) (string, error) {
	if p.submitErr != nil {
		return "", p.submitErr
	}
	if p.externalID == "" {
		p.externalID = "ext-job-1"
	}
	return p.externalID, nil
}

func (p *fakeMasteringProvider) Status(ctx context.Context, externalJobID string) (*client.JobStatus, error) {
	idx := p.statusCalls
	p.statusCalls++
	if idx >= len(p.script) {
		idx = len(p.script) - 1
	}
	st := p.script[idx]
	return &st, nil
}

func (p *fakeMasteringProvider) FetchArtifact(ctx context.Context, outputRef string) ([]byte, error) {
	p.fetched = append(p.fetched, outputRef)
	return []byte("mastered-audio"), nil
}
