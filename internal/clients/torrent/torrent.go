package torrent

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
)

// Status collapses every backend's status space into the three classes the
// download lifecycle cares about.
type Status int

const (
	StatusQueued Status = iota
	StatusDownloading
	StatusSeeding
)

func (s Status) String() string {
	switch s {
	case StatusQueued:
		return "queued"
	case StatusDownloading:
		return "downloading"
	case StatusSeeding:
		return "seeding"
	}
	return "unknown"
}

// File is one entry of a torrent's declared file list.
type File struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// Snapshot is a point-in-time normalized view of a torrent's live state.
// It is consumed within a single poll tick and never persisted.
type Snapshot struct {
	Hash           string `json:"hash"`
	Name           string `json:"name"`
	Status         Status `json:"status"`
	BytesRemaining int64  `json:"bytes_remaining"`
	DownloadDir    string `json:"download_dir"`
	Files          []File `json:"files"`
}

// AddResult carries the identifiers the client assigned to a new torrent.
type AddResult struct {
	ID   int64  `json:"id"`
	Hash string `json:"hash"`
}

// Client abstracts the two supported torrent-client backends. The download
// manager is written exclusively against this interface.
type Client interface {
	Name() string
	AddTorrent(ctx context.Context, torrentBytes []byte) (AddResult, error)
	ListTorrents(ctx context.Context, hashes []string) (map[string]Snapshot, error)
	RemoveTorrent(ctx context.Context, hash string, deleteData bool) error
	TestConnection(ctx context.Context) error
}

var (
	// ErrAuthentication is returned when the client rejects our credentials
	// or session even after one re-authentication attempt.
	ErrAuthentication = errors.New("torrent client authentication failed")

	// ErrQueueingDisabled is returned when qBittorrent refuses an add
	// because torrent queueing is disabled.
	ErrQueueingDisabled = errors.New("torrent queueing is disabled")

	// ErrCertValidation is returned when TLS validation fails. It is kept
	// distinct from generic connectivity errors so the UI can point users
	// at their certificate setup.
	ErrCertValidation = errors.New("TLS validation failed")

	// ErrCapabilityProbe is returned when the qBittorrent Web API version
	// cannot be determined at client construction.
	ErrCapabilityProbe = errors.New("unable to determine torrent client capabilities")
)

// StatusError reports an unexpected HTTP status from a backend API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("torrent client API error %d: %s", e.Code, e.Body)
}

// classifyTransportError separates TLS trust failures from ordinary
// connectivity errors so callers can surface them differently.
func classifyTransportError(err error) error {
	var certErr *tls.CertificateVerificationError
	var unknownAuthority x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuthority) || errors.As(err, &hostnameErr) {
		return fmt.Errorf("%w: %v", ErrCertValidation, err)
	}
	return err
}
