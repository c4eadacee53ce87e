package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mamarr/internal/clients/notifications"
	"mamarr/internal/clients/torrent"
	"mamarr/internal/clients/tracker"
	"mamarr/internal/config"
	"mamarr/internal/models"
	"mamarr/internal/utils"
)

// Manager owns the download lifecycle: it turns cached search results into
// jobs, hands them to the torrent client, tracks seeding until the policy
// is satisfied and then post-processes into the library.
type Manager struct {
	config        *config.Config
	logger        *utils.Logger
	jobs          *JobStore
	results       *SearchResultStore
	trackerClient *tracker.Client
	torrentClient torrent.Client
	postProcessor *PostProcessor
	notifiers     []notifications.Notifier
	scheduler     *cron.Cron

	downloadQueue chan string
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

func NewManager(cfg *config.Config, logger *utils.Logger) (*Manager, error) {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		config:        cfg,
		logger:        logger,
		jobs:          NewJobStore(),
		results:       NewSearchResultStore(time.Duration(cfg.Tracker.SearchTTLSeconds) * time.Second),
		trackerClient: tracker.NewClient(cfg.Tracker, cfg.UseMockData, logger),
		postProcessor: NewPostProcessor(cfg.PostProcess.OutputDir, cfg.PostProcess.TmpDir, cfg.PostProcess.EnableMerge, logger),
		scheduler:     cron.New(),
		downloadQueue: make(chan string, cfg.Automation.QueueSize),
		ctx:           ctx,
		cancel:        cancel,
	}

	client, err := buildTorrentClient(cfg, logger)
	if err != nil {
		cancel()
		return nil, err
	}
	m.torrentClient = client

	if cfg.Notifications.PushbulletAPIKey != "" {
		m.notifiers = append(m.notifiers, notifications.NewPushbulletClient(cfg.Notifications.PushbulletAPIKey, logger))
	}

	return m, nil
}

func buildTorrentClient(cfg *config.Config, logger *utils.Logger) (torrent.Client, error) {
	provider := cfg.TorrentClient.Provider
	if cfg.UseMockData {
		provider = "mock"
	}

	switch provider {
	case "mock":
		return torrent.NewMockClient(cfg.PostProcess.TmpDir), nil
	case "transmission":
		return torrent.NewTransmissionClient(
			cfg.TorrentClient.TransmissionURL,
			cfg.TorrentClient.TransmissionUsername,
			cfg.TorrentClient.TransmissionPassword,
			logger,
		), nil
	case "qbittorrent":
		// the client-side limits are a safety net, the poller enforces the
		// real per-release policy
		defaults := ComputeSeedPolicy(models.Release{}, cfg.Seeding)
		paused := cfg.TorrentClient.StartPaused
		opts := torrent.AddOptions{
			Category:         cfg.TorrentClient.Category,
			StartPaused:      &paused,
			RatioLimit:       defaults.RatioLimit,
			SeedingTimeLimit: defaults.SeedingTimeLimit,
		}
		return torrent.NewQBittorrentClient(
			cfg.TorrentClient.QbitURL,
			cfg.TorrentClient.QbitUsername,
			cfg.TorrentClient.QbitPassword,
			opts,
			logger,
		)
	default:
		return nil, fmt.Errorf("unsupported torrent client provider: %s", provider)
	}
}

// AddJobListener registers a callback for every job mutation.
func (m *Manager) AddJobListener(fn func(models.DownloadJob)) {
	m.jobs.AddListener(fn)
}

// Start launches the download workers and the seeding poll loop.
func (m *Manager) Start() {
	for i := 0; i < m.config.Automation.WorkerCount; i++ {
		m.wg.Add(1)
		go m.downloadWorker(i + 1)
	}

	interval := m.config.Seeding.CheckIntervalSeconds
	if interval < 30 {
		interval = 30
	}
	m.scheduler.AddFunc(fmt.Sprintf("@every %ds", interval), m.pollTorrents)
	m.scheduler.Start()
	m.logger.Info("Manager: started,", m.config.Automation.WorkerCount, "workers, poll interval", interval, "s")
}

func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.cancel()
		if m.scheduler != nil {
			m.scheduler.Stop()
		}
		close(m.downloadQueue)
		m.wg.Wait()
	})
}

// ClientName reports which torrent backend is active.
func (m *Manager) ClientName() string {
	return m.torrentClient.Name()
}

// Search queries the tracker, normalizes every record and caches it so a
// later download request can resolve the guid. An empty language filter
// falls back to the configured one.
func (m *Manager) Search(ctx context.Context, query string, limit, offset int, categories, languages []int) ([]models.Release, error) {
	if limit <= 0 {
		limit = 100
	}
	if len(languages) == 0 {
		languages = m.config.Tracker.Languages
	}
	raws, err := m.trackerClient.Search(ctx, query, limit, offset, categories, languages)
	if err != nil {
		return nil, err
	}

	releases := make([]models.Release, 0, len(raws))
	for _, raw := range raws {
		release := tracker.MapRelease(raw, m.config.Tracker, query)
		m.results.Save(release, raw)
		releases = append(releases, release)
	}
	m.logger.Info(fmt.Sprintf("Manager: search %q returned %d results", query, len(releases)))
	return releases, nil
}

// SubmitDownload resolves a previously searched guid into a queued job.
func (m *Manager) SubmitDownload(guid string, indexerID int) (models.DownloadJob, error) {
	if indexerID != 0 && indexerID != m.config.Tracker.IndexerID {
		return models.DownloadJob{}, fmt.Errorf("unknown indexer id %d", indexerID)
	}

	cached, ok := m.results.Get(guid)
	if !ok {
		return models.DownloadJob{}, fmt.Errorf("unknown or expired guid %s, search again first", guid)
	}

	job := m.jobs.Enqueue(guid, cached.Release, cached.Raw)
	if id, ok := tracker.TorrentID(cached.Raw); ok {
		m.jobs.UpdateFields(job.ID, JobUpdate{TorrentID: &id})
	}

	select {
	case m.downloadQueue <- job.ID:
	default:
		m.jobs.UpdateStatus(job.ID, models.JobFailed, "download queue is full")
		return models.DownloadJob{}, fmt.Errorf("download queue is full")
	}

	m.logger.Info("Manager: queued download for", cached.Release.Title, ", job", job.ID)
	current, _ := m.jobs.Get(job.ID)
	return current, nil
}

func (m *Manager) GetJob(id string) (models.DownloadJob, bool) {
	return m.jobs.Get(id)
}

func (m *Manager) ListJobs() []models.DownloadJob {
	return m.jobs.ListAll()
}

// DeleteJob removes a job record and best-effort removes its torrent from
// the client.
func (m *Manager) DeleteJob(id string) bool {
	job, ok := m.jobs.Get(id)
	if !ok {
		return false
	}
	if job.TransmissionHash != "" {
		ctx, cancelRemove := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.torrentClient.RemoveTorrent(ctx, job.TransmissionHash, true); err != nil {
			m.logger.Warn("Manager: could not remove torrent for deleted job", id, ":", err)
		}
		cancelRemove()
	}
	return m.jobs.Delete(id)
}

// TestConnection checks the torrent client is reachable and authenticated.
func (m *Manager) TestConnection(ctx context.Context) error {
	return m.torrentClient.TestConnection(ctx)
}

func (m *Manager) downloadWorker(id int) {
	defer m.wg.Done()
	m.logger.Info("Manager: download worker", id, "started")
	for jobID := range m.downloadQueue {
		if m.ctx.Err() != nil {
			return
		}
		m.processJob(jobID)
	}
}

// processJob fetches the .torrent from the tracker and hands it to the
// torrent client. Any failure moves the job to failed with a message.
func (m *Manager) processJob(jobID string) {
	job, ok := m.jobs.Get(jobID)
	if !ok || job.Status != models.JobQueued {
		return
	}

	m.jobs.UpdateStatus(jobID, models.JobDownloading, "fetching torrent file")

	if job.TorrentID == "" {
		m.failJob(jobID, "tracker result has no torrent id")
		return
	}

	ctx, cancelFetch := context.WithTimeout(m.ctx, 2*time.Minute)
	defer cancelFetch()

	torrentBytes, err := m.trackerClient.FetchTorrent(ctx, job.TorrentID)
	if err != nil {
		m.failJob(jobID, fmt.Sprintf("failed to fetch torrent file: %v", err))
		return
	}

	result, err := m.torrentClient.AddTorrent(ctx, torrentBytes)
	if err != nil {
		m.failJob(jobID, fmt.Sprintf("failed to add torrent to %s: %v", m.torrentClient.Name(), err))
		return
	}

	provider := m.torrentClient.Name()
	message := "sent to " + provider
	m.jobs.UpdateFields(jobID, JobUpdate{
		Message:          &message,
		TransmissionID:   &result.ID,
		TransmissionHash: &result.Hash,
		Provider:         &provider,
	})
	m.logger.Info("Manager: torrent added for job", jobID, ", hash", result.Hash)
}

func (m *Manager) failJob(jobID, message string) {
	m.logger.Error("Manager: job", jobID, "failed:", message)
	if job := m.jobs.UpdateStatus(jobID, models.JobFailed, message); job != nil {
		for _, notifier := range m.notifiers {
			notifier.NotifyJobFailed(*job)
		}
	}
}

// pollTorrents advances every active job one tick: detects completed
// downloads, accrues seed time and kicks off post-processing once the
// seeding requirement is met.
func (m *Manager) pollTorrents() {
	candidates := append(m.jobs.ListByStatus(models.JobDownloading), m.jobs.ListByStatus(models.JobSeeding)...)

	// a job whose worker has not yet recorded the hash is picked up next tick
	active := candidates[:0]
	hashes := make([]string, 0, len(candidates))
	for _, job := range candidates {
		if job.TransmissionHash == "" {
			continue
		}
		active = append(active, job)
		hashes = append(hashes, job.TransmissionHash)
	}
	if len(hashes) == 0 {
		return
	}

	ctx, cancelPoll := context.WithTimeout(m.ctx, time.Minute)
	defer cancelPoll()

	snapshots, err := m.torrentClient.ListTorrents(ctx, hashes)
	if err != nil {
		m.logger.Error("Manager: torrent poll failed:", err)
		return
	}

	for _, job := range active {
		snapshot, ok := snapshots[strings.ToUpper(job.TransmissionHash)]
		if !ok {
			m.logger.Warn("Manager: torrent missing from client for job", job.ID)
			continue
		}
		m.advanceJob(job, snapshot)
	}
}

func (m *Manager) advanceJob(job models.DownloadJob, snapshot torrent.Snapshot) {
	if job.Status == models.JobDownloading && snapshot.BytesRemaining == 0 {
		now := time.Now().UTC()
		status := models.JobSeeding
		message := "download complete, seeding"
		updated := m.jobs.UpdateFields(job.ID, JobUpdate{
			Status:      &status,
			Message:     &message,
			CompletedAt: &now,
		})
		if updated != nil {
			job = *updated
		}
		m.logger.Info("Manager: download complete for job", job.ID)
	}

	if job.Status != models.JobSeeding {
		return
	}

	job = m.accrueSeedTime(job, snapshot)

	policy := ComputeSeedPolicy(job.Release, m.config.Seeding)
	if job.SeedSeconds >= policy.RequiredSeedSeconds {
		status := models.JobProcessing
		message := "seeding requirement met, post-processing"
		m.jobs.UpdateFields(job.ID, JobUpdate{Status: &status, Message: &message})
		m.logger.Info("Manager: seeding done for job", job.ID, "(", job.SeedSeconds, "s ), post-processing")

		jobCopy := job
		go m.finalizeJob(jobCopy.ID, snapshot)
	}
}

// accrueSeedTime adds the wall-clock delta since the previous tick to the
// job's seed counter. The tick marker always advances; time only counts
// while the client reports the torrent as seeding, so time spent paused or
// stalled in other states is not credited.
func (m *Manager) accrueSeedTime(job models.DownloadJob, snapshot torrent.Snapshot) models.DownloadJob {
	now := time.Now().UTC()
	update := JobUpdate{LastSeedTick: &now}

	if job.LastSeedTick != nil && snapshot.Status == torrent.StatusSeeding {
		seconds := job.SeedSeconds + int(now.Sub(*job.LastSeedTick).Seconds())
		update.SeedSeconds = &seconds
	}

	if updated := m.jobs.UpdateFields(job.ID, update); updated != nil {
		return *updated
	}
	return job
}

// finalizeJob runs post-processing for one job. It runs detached from the
// poll loop so a long ffmpeg merge never blocks other jobs.
func (m *Manager) finalizeJob(jobID string, snapshot torrent.Snapshot) {
	job, ok := m.jobs.Get(jobID)
	if !ok {
		return
	}

	dest, err := m.postProcessor.Process(job, snapshot)
	if err != nil {
		m.failJob(jobID, fmt.Sprintf("post-processing failed: %v", err))
		return
	}

	status := models.JobCompleted
	message := "completed"
	updated := m.jobs.UpdateFields(jobID, JobUpdate{
		Status:          &status,
		Message:         &message,
		DestinationPath: &dest,
	})

	if m.config.Seeding.RemoveAfterProcessing && job.TransmissionHash != "" {
		ctx, cancelRemove := context.WithTimeout(context.Background(), 30*time.Second)
		if err := m.torrentClient.RemoveTorrent(ctx, job.TransmissionHash, true); err != nil {
			// the library copy is already safe, leave the job completed
			m.logger.Warn("Manager: could not remove finished torrent for job", jobID, ":", err)
		}
		cancelRemove()
	}

	if updated != nil {
		m.logger.Info("Manager: job", jobID, "completed, output at", dest)
		for _, notifier := range m.notifiers {
			notifier.NotifyJobComplete(*updated)
		}
	}
}

// PollOnce runs a single poll tick synchronously. Exposed for the API's
// manual refresh endpoint.
func (m *Manager) PollOnce() {
	m.pollTorrents()
}
