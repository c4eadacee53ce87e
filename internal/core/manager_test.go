package core

import (
	"context"
	"testing"
	"time"

	"mamarr/internal/clients/torrent"
	"mamarr/internal/clients/tracker"
	"mamarr/internal/config"
	"mamarr/internal/models"
	"mamarr/internal/utils"
)

func mockConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.UseMockData = true
	cfg.Tracker.IndexerID = 801001
	cfg.Tracker.IndexerName = "MyAnonamouse"
	cfg.Tracker.BaseURL = "https://www.myanonamouse.net"
	cfg.Tracker.CategoryID = 13
	cfg.Tracker.SearchTTLSeconds = 60
	cfg.TorrentClient.Provider = "mock"
	cfg.Seeding.TargetHours = 0
	cfg.Seeding.CheckIntervalSeconds = 300
	cfg.Seeding.RemoveAfterProcessing = true
	cfg.PostProcess.OutputDir = t.TempDir()
	cfg.PostProcess.TmpDir = t.TempDir()
	cfg.Automation.WorkerCount = 1
	cfg.Automation.QueueSize = 10
	return cfg
}

func waitForStatus(t *testing.T, m *Manager, jobID string, want models.JobStatus) models.DownloadJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if job, ok := m.GetJob(jobID); ok && job.Status == want {
			return job
		}
		if job, ok := m.GetJob(jobID); ok && job.Status == models.JobFailed && want != models.JobFailed {
			t.Fatalf("job failed: %s", job.Message)
		}
		time.Sleep(10 * time.Millisecond)
	}
	job, _ := m.GetJob(jobID)
	t.Fatalf("job never reached %s, stuck at %s (%s)", want, job.Status, job.Message)
	return job
}

func TestMockLifecycleEndToEnd(t *testing.T) {
	cfg := mockConfig(t)
	m, err := NewManager(cfg, utils.NewLogger(false))
	if err != nil {
		t.Fatalf("manager construction failed: %v", err)
	}
	m.Start()
	defer m.Stop()

	releases, err := m.Search(context.Background(), "mock", 50, 0, nil, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(releases) == 0 {
		t.Fatal("expected mock search results")
	}

	job, err := m.SubmitDownload(releases[0].GUID, cfg.Tracker.IndexerID)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if job.Status != models.JobQueued && job.Status != models.JobDownloading {
		t.Errorf("unexpected initial status: %s", job.Status)
	}

	// worker adds the torrent to the mock client
	downloading := waitForStatus(t, m, job.ID, models.JobDownloading)
	if downloading.TransmissionHash == "" {
		// hash arrives with the same update that confirms the add, give it
		// a moment
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if current, _ := m.GetJob(job.ID); current.TransmissionHash != "" {
				downloading = current
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
	if downloading.TransmissionHash == "" {
		t.Fatal("expected torrent hash after add")
	}
	if downloading.Provider != "mock" {
		t.Errorf("provider: got %q", downloading.Provider)
	}

	// one poll tick completes the mock download and, with a zero seeding
	// target, hands it straight to post-processing
	m.PollOnce()
	completed := waitForStatus(t, m, job.ID, models.JobCompleted)

	if completed.DestinationPath == "" {
		t.Error("expected destination path on completion")
	}
	if completed.CompletedAt == nil {
		t.Error("expected completion timestamp")
	}
}

func TestSubmitDownloadUnknownGUID(t *testing.T) {
	m, err := NewManager(mockConfig(t), utils.NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if _, err := m.SubmitDownload("mam-never-seen", 801001); err == nil {
		t.Fatal("expected error for unknown guid")
	}
}

func TestSubmitDownloadWrongIndexer(t *testing.T) {
	m, err := NewManager(mockConfig(t), utils.NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	releases, err := m.Search(context.Background(), "mock", 50, 0, nil, nil)
	if err != nil || len(releases) == 0 {
		t.Fatalf("search failed: %v", err)
	}
	if _, err := m.SubmitDownload(releases[0].GUID, 12345); err == nil {
		t.Fatal("expected error for wrong indexer id")
	}
}

func TestPollSkipsJobsWithoutHash(t *testing.T) {
	cfg := mockConfig(t)
	cfg.Seeding.TargetHours = 1
	m, err := NewManager(cfg, utils.NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	added, err := m.torrentClient.AddTorrent(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	downloading := models.JobDownloading
	hashed := m.jobs.Enqueue("mam-hashed", models.Release{Title: "Hashed"}, nil)
	m.jobs.UpdateFields(hashed.ID, JobUpdate{Status: &downloading, TransmissionHash: &added.Hash})

	// the worker has not recorded this one's hash yet
	bare := m.jobs.Enqueue("mam-bare", models.Release{Title: "Bare"}, nil)
	m.jobs.UpdateFields(bare.ID, JobUpdate{Status: &downloading})
	before, _ := m.jobs.Get(bare.ID)

	m.PollOnce()

	if job, _ := m.jobs.Get(hashed.ID); job.Status != models.JobSeeding {
		t.Errorf("hashed job should advance to seeding, got %s", job.Status)
	}
	job, _ := m.jobs.Get(bare.ID)
	if job.Status != models.JobDownloading {
		t.Errorf("hashless job must wait for its hash, got %s", job.Status)
	}
	if !job.UpdatedAt.Equal(before.UpdatedAt) {
		t.Error("hashless job should be untouched by the poll tick")
	}
}

func TestAccrueSeedTimeOnlyWhileSeeding(t *testing.T) {
	m, err := NewManager(mockConfig(t), utils.NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	job := m.jobs.Enqueue("mam-x", models.Release{Title: "Book"}, nil)
	status := models.JobSeeding
	past := time.Now().UTC().Add(-90 * time.Second)
	m.jobs.UpdateFields(job.ID, JobUpdate{Status: &status, LastSeedTick: &past})

	current, _ := m.jobs.Get(job.ID)
	updated := m.accrueSeedTime(current, torrent.Snapshot{Status: torrent.StatusSeeding})
	if updated.SeedSeconds < 89 || updated.SeedSeconds > 95 {
		t.Errorf("expected roughly 90s accrued, got %d", updated.SeedSeconds)
	}

	// while the client reports downloading, the tick advances but nothing
	// is credited
	past = time.Now().UTC().Add(-60 * time.Second)
	m.jobs.UpdateFields(job.ID, JobUpdate{LastSeedTick: &past})
	current, _ = m.jobs.Get(job.ID)
	before := current.SeedSeconds

	updated = m.accrueSeedTime(current, torrent.Snapshot{Status: torrent.StatusDownloading})
	if updated.SeedSeconds != before {
		t.Errorf("no accrual expected while downloading, got %d vs %d", updated.SeedSeconds, before)
	}
	if updated.LastSeedTick == nil || !updated.LastSeedTick.After(past) {
		t.Error("tick marker should always advance")
	}
}

func TestFirstSeedTickOnlySetsMarker(t *testing.T) {
	m, err := NewManager(mockConfig(t), utils.NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	job := m.jobs.Enqueue("mam-y", models.Release{}, nil)
	status := models.JobSeeding
	m.jobs.UpdateFields(job.ID, JobUpdate{Status: &status})

	current, _ := m.jobs.Get(job.ID)
	updated := m.accrueSeedTime(current, torrent.Snapshot{Status: torrent.StatusSeeding})
	if updated.SeedSeconds != 0 {
		t.Errorf("first tick should not accrue, got %d", updated.SeedSeconds)
	}
	if updated.LastSeedTick == nil {
		t.Error("first tick should set the marker")
	}
}

func TestSearchCachesResultsForDownload(t *testing.T) {
	m, err := NewManager(mockConfig(t), utils.NewLogger(false))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	releases, err := m.Search(context.Background(), "mock", 50, 0, nil, nil)
	if err != nil || len(releases) == 0 {
		t.Fatalf("search failed: %v", err)
	}

	cached, ok := m.results.Get(releases[0].GUID)
	if !ok {
		t.Fatal("search result not cached")
	}
	if _, ok := tracker.TorrentID(cached.Raw); !ok {
		t.Error("cached raw record lost its torrent id")
	}
}
