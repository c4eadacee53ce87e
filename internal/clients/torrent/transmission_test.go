package torrent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mamarr/internal/utils"
)

func transmissionRPCServer(t *testing.T, handler func(method string, args map[string]interface{}) (string, map[string]interface{})) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var request struct {
			Method    string                 `json:"method"`
			Arguments map[string]interface{} `json:"arguments"`
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			t.Errorf("bad rpc payload: %v", err)
		}
		result, args := handler(request.Method, request.Arguments)
		json.NewEncoder(w).Encode(map[string]interface{}{"result": result, "arguments": args})
	}))
}

func TestTransmissionSessionHandshake(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("X-Transmission-Session-Id") != "fresh-session" {
			w.Header().Set("X-Transmission-Session-Id", "fresh-session")
			w.WriteHeader(http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"result": "success", "arguments": map[string]interface{}{}})
	}))
	defer server.Close()

	client := NewTransmissionClient(server.URL, "", "", utils.NewLogger(false))
	if err := client.TestConnection(context.Background()); err != nil {
		t.Fatalf("handshake failed: %v", err)
	}
	if requests != 2 {
		t.Errorf("expected exactly one retry, got %d requests", requests)
	}

	// session id is remembered for the next call
	if err := client.TestConnection(context.Background()); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if requests != 3 {
		t.Errorf("expected no second handshake, got %d requests", requests)
	}
}

func TestTransmissionRepeatedConflictFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Transmission-Session-Id", "never-accepted")
		w.WriteHeader(http.StatusConflict)
	}))
	defer server.Close()

	client := NewTransmissionClient(server.URL, "", "", utils.NewLogger(false))
	if err := client.TestConnection(context.Background()); err == nil {
		t.Fatal("expected error after second 409")
	}
}

func TestTransmissionAddTorrentDuplicateIsSuccess(t *testing.T) {
	server := transmissionRPCServer(t, func(method string, args map[string]interface{}) (string, map[string]interface{}) {
		if method != "torrent-add" {
			t.Errorf("unexpected method %q", method)
		}
		return "success", map[string]interface{}{
			"torrent-duplicate": map[string]interface{}{
				"id":         float64(7),
				"hashString": "abcdef0123456789",
			},
		}
	})
	defer server.Close()

	client := NewTransmissionClient(server.URL, "", "", utils.NewLogger(false))
	result, err := client.AddTorrent(context.Background(), []byte("torrent"))
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if result.ID != 7 || result.Hash != "ABCDEF0123456789" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestTransmissionAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewTransmissionClient(server.URL, "user", "bad", utils.NewLogger(false))
	err := client.TestConnection(context.Background())
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestTransmissionListTorrentsStatusMapping(t *testing.T) {
	server := transmissionRPCServer(t, func(method string, args map[string]interface{}) (string, map[string]interface{}) {
		return "success", map[string]interface{}{
			"torrents": []interface{}{
				map[string]interface{}{
					"hashString":    "aaa111",
					"name":          "seeding book",
					"status":        float64(6),
					"leftUntilDone": float64(0),
					"downloadDir":   "/downloads",
					"files": []interface{}{
						map[string]interface{}{"name": "seeding book/track.mp3", "length": float64(100)},
					},
				},
				map[string]interface{}{
					"hashString":    "bbb222",
					"name":          "downloading book",
					"status":        float64(4),
					"leftUntilDone": float64(5000),
					"downloadDir":   "/downloads",
				},
			},
		}
	})
	defer server.Close()

	client := NewTransmissionClient(server.URL, "", "", utils.NewLogger(false))
	snapshots, err := client.ListTorrents(context.Background(), []string{"AAA111", "BBB222"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}

	seeding := snapshots["AAA111"]
	if seeding.Status != StatusSeeding || seeding.BytesRemaining != 0 {
		t.Errorf("seeding snapshot: %+v", seeding)
	}
	if len(seeding.Files) != 1 || seeding.Files[0].Size != 100 {
		t.Errorf("files: %+v", seeding.Files)
	}

	downloading := snapshots["BBB222"]
	if downloading.Status != StatusDownloading || downloading.BytesRemaining != 5000 {
		t.Errorf("downloading snapshot: %+v", downloading)
	}
}

func TestMapTransmissionStatus(t *testing.T) {
	if mapTransmissionStatus(5) != StatusSeeding || mapTransmissionStatus(6) != StatusSeeding {
		t.Error("5 and 6 should map to seeding")
	}
	if mapTransmissionStatus(3) != StatusDownloading || mapTransmissionStatus(4) != StatusDownloading {
		t.Error("3 and 4 should map to downloading")
	}
	if mapTransmissionStatus(0) != StatusQueued {
		t.Error("unknown statuses should map to queued")
	}
}
