package tracker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mamarr/internal/config"
	"mamarr/internal/utils"
)

func testConfig(baseURL string) config.TrackerConfig {
	return config.TrackerConfig{
		BaseURL:          baseURL,
		SessionID:        "session-cookie",
		IndexerID:        801001,
		IndexerName:      "MyAnonamouse",
		CategoryID:       13,
		DownloadEndpoint: "/torrents.php?action=download&id=%s",
	}
}

func TestSearchSendsSessionCookie(t *testing.T) {
	var gotCookie string
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if cookie, err := r.Cookie("mam_id"); err == nil {
			gotCookie = cookie.Value
		}
		gotQuery = r.URL.Query().Get("tor[text]")
		w.Write([]byte(`{"data":[{"id":42,"title":"The Stars My Destination","seeders":"7"}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), false, utils.NewLogger(false))
	results, err := client.Search(context.Background(), "bester", 50, 0, nil, nil)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if gotCookie != "session-cookie" {
		t.Errorf("expected mam_id cookie, got %q", gotCookie)
	}
	if gotQuery != "bester" {
		t.Errorf("expected query text, got %q", gotQuery)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSearchForbiddenIsAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), false, utils.NewLogger(false))
	_, err := client.Search(context.Background(), "anything", 50, 0, nil, nil)
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestSearchTrackerErrorPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Nothing returned, out of 0"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), false, utils.NewLogger(false))
	_, err := client.Search(context.Background(), "nope", 50, 0, nil, nil)
	if !errors.Is(err, ErrSearch) {
		t.Fatalf("expected ErrSearch, got %v", err)
	}
}

func TestSearchMockMode(t *testing.T) {
	client := NewClient(testConfig("http://unused"), true, utils.NewLogger(false))
	results, err := client.Search(context.Background(), "anything", 50, 0, nil, nil)
	if err != nil {
		t.Fatalf("mock search failed: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected mock results")
	}
}

func TestFetchTorrent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/torrents.php" || r.URL.Query().Get("id") != "42" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte("torrent-bytes"))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), false, utils.NewLogger(false))
	data, err := client.FetchTorrent(context.Background(), "42")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if string(data) != "torrent-bytes" {
		t.Errorf("unexpected torrent payload: %q", data)
	}
}
