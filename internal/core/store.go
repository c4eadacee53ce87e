package core

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"mamarr/internal/models"
)

// JobStore holds all download jobs in memory. Jobs only live for the
// lifetime of the process; restarts start clean, matching the tracker's
// expectation that orphaned torrents keep seeding in the client.
type JobStore struct {
	mu        sync.RWMutex
	jobs      map[string]models.DownloadJob
	listeners []func(models.DownloadJob)
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]models.DownloadJob)}
}

// AddListener registers a callback fired after every job mutation. Used by
// the websocket event hub.
func (s *JobStore) AddListener(fn func(models.DownloadJob)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *JobStore) notify(job models.DownloadJob) {
	for _, fn := range s.listeners {
		fn(job)
	}
}

// Enqueue creates a new queued job and returns it.
func (s *JobStore) Enqueue(guid string, release models.Release, source map[string]interface{}) models.DownloadJob {
	now := time.Now().UTC()
	job := models.DownloadJob{
		ID:        uuid.NewString(),
		GUID:      guid,
		Status:    models.JobQueued,
		Source:    source,
		Release:   release,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(job)
	}
	return job
}

func (s *JobStore) Get(id string) (models.DownloadJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return job, ok
}

// ListAll returns a snapshot of every job, newest first.
func (s *JobStore) ListAll() []models.DownloadJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]models.DownloadJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	for i := 0; i < len(jobs); i++ {
		for j := i + 1; j < len(jobs); j++ {
			if jobs[j].CreatedAt.After(jobs[i].CreatedAt) {
				jobs[i], jobs[j] = jobs[j], jobs[i]
			}
		}
	}
	return jobs
}

// ListByStatus returns jobs currently in the given status.
func (s *JobStore) ListByStatus(status models.JobStatus) []models.DownloadJob {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var jobs []models.DownloadJob
	for _, job := range s.jobs {
		if job.Status == status {
			jobs = append(jobs, job)
		}
	}
	return jobs
}

// JobUpdate is a partial job mutation. Nil fields are left untouched.
type JobUpdate struct {
	Status           *models.JobStatus
	Message          *string
	TorrentID        *string
	TransmissionID   *int64
	TransmissionHash *string
	Provider         *string
	SeedSeconds      *int
	LastSeedTick     *time.Time
	CompletedAt      *time.Time
	DestinationPath  *string
}

// UpdateFields applies a partial update and returns the resulting job. The
// UpdatedAt stamp always advances, even for empty updates. Returns nil if
// the job does not exist.
func (s *JobStore) UpdateFields(id string, update JobUpdate) *models.DownloadJob {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}

	if update.Status != nil {
		job.Status = *update.Status
	}
	if update.Message != nil {
		job.Message = *update.Message
	}
	if update.TorrentID != nil {
		job.TorrentID = *update.TorrentID
	}
	if update.TransmissionID != nil {
		job.TransmissionID = *update.TransmissionID
	}
	if update.TransmissionHash != nil {
		job.TransmissionHash = *update.TransmissionHash
	}
	if update.Provider != nil {
		job.Provider = *update.Provider
	}
	if update.SeedSeconds != nil {
		job.SeedSeconds = *update.SeedSeconds
	}
	if update.LastSeedTick != nil {
		job.LastSeedTick = update.LastSeedTick
	}
	if update.CompletedAt != nil {
		job.CompletedAt = update.CompletedAt
	}
	if update.DestinationPath != nil {
		job.DestinationPath = *update.DestinationPath
	}
	job.UpdatedAt = time.Now().UTC()

	s.jobs[id] = job
	listeners := s.listeners
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(job)
	}
	return &job
}

// UpdateStatus is sugar for the common status-plus-message transition.
func (s *JobStore) UpdateStatus(id string, status models.JobStatus, message string) *models.DownloadJob {
	return s.UpdateFields(id, JobUpdate{Status: &status, Message: &message})
}

func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

// SearchResultStore caches raw search results so a later download request
// can look a release up by its guid. Entries expire after the tracker
// config's search TTL.
type SearchResultStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	results map[string]models.CachedResult
}

func NewSearchResultStore(ttl time.Duration) *SearchResultStore {
	return &SearchResultStore{
		ttl:     ttl,
		results: make(map[string]models.CachedResult),
	}
}

func (s *SearchResultStore) Save(release models.Release, raw map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[release.GUID] = models.CachedResult{
		GUID:     release.GUID,
		Release:  release,
		Raw:      raw,
		StoredAt: time.Now().UTC(),
	}
}

// Get returns the cached result for a guid, expiring stale entries on read.
func (s *SearchResultStore) Get(guid string) (models.CachedResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, ok := s.results[guid]
	if !ok {
		return models.CachedResult{}, false
	}
	if time.Since(result.StoredAt) > s.ttl {
		delete(s.results, guid)
		return models.CachedResult{}, false
	}
	return result, true
}
