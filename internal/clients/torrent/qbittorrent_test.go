package torrent

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"mamarr/internal/utils"
)

// qbitTestServer answers the capability probe and the login endpoint, and
// routes everything else to handler.
func qbitTestServer(handler http.HandlerFunc) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/app/webapiVersion":
			w.Write([]byte("2.9.3"))
		case "/api/v2/auth/login":
			w.Write([]byte("Ok."))
		default:
			handler(w, r)
		}
	}))
}

func newQbitTestClient(t *testing.T, server *httptest.Server) *QBittorrentClient {
	t.Helper()
	client, err := NewQBittorrentClient(server.URL, "admin", "adminadmin", AddOptions{}, utils.NewLogger(false))
	if err != nil {
		t.Fatalf("client construction failed: %v", err)
	}
	return client
}

func TestQbitProbeFailureIsConstructionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewQBittorrentClient(server.URL, "a", "b", AddOptions{}, utils.NewLogger(false))
	if !errors.Is(err, ErrCapabilityProbe) {
		t.Fatalf("expected ErrCapabilityProbe, got %v", err)
	}
}

func TestQbitForbiddenTriggersOneRelogin(t *testing.T) {
	var versionCalls, loginCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v2/app/webapiVersion":
			w.Write([]byte("2.9.3"))
		case "/api/v2/auth/login":
			atomic.AddInt32(&loginCalls, 1)
			w.Write([]byte("Ok."))
		case "/api/v2/app/version":
			// first call is rejected, the retry after re-login succeeds
			if atomic.AddInt32(&versionCalls, 1) == 1 {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			w.Write([]byte("v4.6.0"))
		}
	}))
	defer server.Close()

	client := newQbitTestClient(t, server)
	if err := client.TestConnection(context.Background()); err != nil {
		t.Fatalf("expected retry to succeed: %v", err)
	}
	if atomic.LoadInt32(&versionCalls) != 2 {
		t.Errorf("expected exactly one retry, got %d calls", versionCalls)
	}
}

func TestQbitPersistentForbiddenIsAuthError(t *testing.T) {
	var versionCalls int32
	server := qbitTestServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/app/version" {
			atomic.AddInt32(&versionCalls, 1)
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	client := newQbitTestClient(t, server)
	err := client.TestConnection(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if atomic.LoadInt32(&versionCalls) != 2 {
		t.Errorf("expected no third attempt, got %d calls", versionCalls)
	}
}

func TestQbitQueueingDisabled(t *testing.T) {
	server := qbitTestServer(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte("Torrent queueing is not enabled"))
	})
	defer server.Close()

	client := newQbitTestClient(t, server)
	err := client.TestConnection(context.Background())
	if !errors.Is(err, ErrQueueingDisabled) {
		t.Fatalf("expected ErrQueueingDisabled, got %v", err)
	}
}

func TestQbitAddTorrentDerivesHashLocally(t *testing.T) {
	// minimal single-file metainfo, enough for hash derivation
	torrentBytes := []byte("d4:infod6:lengthi5e4:name4:test12:piece lengthi16384e6:pieces20:aaaaaaaaaaaaaaaaaaaaee")

	var uploaded bool
	server := qbitTestServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v2/torrents/add" {
			uploaded = true
			w.Write([]byte("Ok."))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer server.Close()

	client := newQbitTestClient(t, server)
	result, err := client.AddTorrent(context.Background(), torrentBytes)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !uploaded {
		t.Error("torrent was never uploaded")
	}
	if len(result.Hash) != 40 {
		t.Errorf("expected 40-char info hash, got %q", result.Hash)
	}
}

func TestQbitStateCollapse(t *testing.T) {
	for _, state := range []string{"uploading", "stalledUP", "queuedUP", "forcedUP", "pausedUP", "stoppedUP"} {
		if mapQbitState(state) != StatusSeeding {
			t.Errorf("state %q should collapse to seeding", state)
		}
	}
	for _, state := range []string{"downloading", "stalledDL", "metaDL", "checkingDL", "error"} {
		if mapQbitState(state) != StatusDownloading {
			t.Errorf("state %q should collapse to downloading", state)
		}
	}
}
