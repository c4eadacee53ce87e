package torrent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// MockClient is an in-memory backend for offline testing. Every torrent it
// "downloads" completes on the first poll after being added, which lets the
// full lifecycle run without a network.
type MockClient struct {
	mu          sync.Mutex
	counter     int64
	torrents    map[string]*Snapshot
	stagingRoot string
}

func NewMockClient(tmpDir string) *MockClient {
	root := filepath.Join(tmpDir, "mock_client")
	os.MkdirAll(root, 0o755)
	return &MockClient{
		torrents:    make(map[string]*Snapshot),
		stagingRoot: root,
	}
}

func (m *MockClient) Name() string {
	return "mock"
}

func (m *MockClient) AddTorrent(ctx context.Context, torrentBytes []byte) (AddResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.counter++
	id := m.counter
	hash := strings.ToUpper(fmt.Sprintf("MOCKHASH%d", id))
	name := fmt.Sprintf("mock_book_%d", id)
	downloadDir := filepath.Join(m.stagingRoot, fmt.Sprintf("torrent_%d", id))

	bookDir := filepath.Join(downloadDir, name)
	if err := os.MkdirAll(bookDir, 0o755); err != nil {
		return AddResult{}, err
	}
	audioFile := filepath.Join(bookDir, "track1.mp3")
	if err := os.WriteFile(audioFile, []byte("fake audio data"), 0o644); err != nil {
		return AddResult{}, err
	}

	m.torrents[hash] = &Snapshot{
		Hash:           hash,
		Name:           name,
		Status:         StatusDownloading,
		BytesRemaining: 1,
		DownloadDir:    downloadDir,
		Files: []File{
			{Name: filepath.Join(name, "track1.mp3"), Size: 15},
		},
	}
	return AddResult{ID: id, Hash: hash}, nil
}

// ListTorrents flips any still-downloading torrent to a completed seeding
// state, simulating one-tick completion.
func (m *MockClient) ListTorrents(ctx context.Context, hashes []string) (map[string]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make(map[string]Snapshot)
	for _, hash := range hashes {
		snapshot, ok := m.torrents[strings.ToUpper(hash)]
		if !ok {
			continue
		}
		if snapshot.BytesRemaining > 0 {
			snapshot.BytesRemaining = 0
			snapshot.Status = StatusSeeding
		}
		result[snapshot.Hash] = *snapshot
	}
	return result, nil
}

func (m *MockClient) RemoveTorrent(ctx context.Context, hash string, deleteData bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.torrents, strings.ToUpper(hash))
	return nil
}

func (m *MockClient) TestConnection(ctx context.Context) error {
	return nil
}
