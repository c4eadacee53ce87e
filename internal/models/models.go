package models

import (
	"time"
)

// Release is the Prowlarr-compatible view of a single tracker result. Raw
// tracker payloads are normalized into this shape at the ingestion boundary
// and never leak past it.
type Release struct {
	Protocol             string   `json:"protocol"`
	GUID                 string   `json:"guid"`
	IndexerID            int      `json:"indexerId"`
	Indexer              string   `json:"indexer"`
	Title                string   `json:"title"`
	Seeders              int      `json:"seeders"`
	Leechers             int      `json:"leechers"`
	Size                 int64    `json:"size"`
	InfoURL              string   `json:"infoUrl,omitempty"`
	IndexerFlags         []string `json:"indexerFlags"`
	DownloadURL          string   `json:"downloadUrl,omitempty"`
	MagnetURL            string   `json:"magnetUrl,omitempty"`
	PublishDate          string   `json:"publishDate"`
	Peers                int      `json:"peers"`
	DownloadVolumeFactor float64  `json:"downloadVolumeFactor"`
	MinimumSeedTime      int      `json:"minimumSeedTime"`
}

// CachedResult bridges a search response to a later download request. It
// keeps the raw tracker payload alongside the normalized release so the
// download step can recover tracker-specific fields (torrent id, author
// info) that the Prowlarr shape drops.
type CachedResult struct {
	GUID     string                 `json:"guid"`
	Release  Release                `json:"release"`
	Raw      map[string]interface{} `json:"raw"`
	StoredAt time.Time              `json:"stored_at"`
}

// IndexerInfo describes the synthetic indexer exposed to download clients.
type IndexerInfo struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Enable  bool   `json:"enable"`
	Privacy string `json:"privacy"`
}

type JobStatus string

const (
	JobQueued      JobStatus = "queued"
	JobDownloading JobStatus = "downloading"
	JobSeeding     JobStatus = "seeding"
	JobProcessing  JobStatus = "processing"
	JobCompleted   JobStatus = "completed"
	JobFailed      JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed from s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// DownloadJob is one tracked download/seed/process lifecycle instance.
// Records are mutated only through the job store; callers treat returned
// values as immutable snapshots.
type DownloadJob struct {
	ID               string                 `json:"id"`
	GUID             string                 `json:"guid"`
	Status           JobStatus              `json:"status"`
	Message          string                 `json:"message,omitempty"`
	Source           map[string]interface{} `json:"source"`
	Release          Release                `json:"release"`
	TorrentID        string                 `json:"torrent_id,omitempty"`
	TransmissionID   int64                  `json:"transmission_id,omitempty"`
	TransmissionHash string                 `json:"transmission_hash,omitempty"`
	Provider         string                 `json:"provider"`
	SeedSeconds      int                    `json:"seed_seconds"`
	LastSeedTick     *time.Time             `json:"last_seed_timestamp,omitempty"`
	CompletedAt      *time.Time             `json:"completed_at,omitempty"`
	DestinationPath  string                 `json:"destination_path,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}
