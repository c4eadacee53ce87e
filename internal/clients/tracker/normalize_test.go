package tracker

import (
	"strings"
	"testing"
)

func TestMapReleaseFallbackKeys(t *testing.T) {
	raw := map[string]interface{}{
		"tor_id":   float64(5150),
		"torname":  "Consider Phlebas",
		"filesize": "345678901",
		"seed":     "12",
		"leeches":  float64(3),
		"added":    "2024-05-01 10:30:00",
	}
	release := MapRelease(raw, testConfig("https://www.myanonamouse.net"), "fallback")

	if release.GUID != "mam-5150" {
		t.Errorf("guid: got %q", release.GUID)
	}
	if release.Title != "Consider Phlebas" {
		t.Errorf("title: got %q", release.Title)
	}
	if release.Size != 345678901 {
		t.Errorf("size: got %d", release.Size)
	}
	if release.Seeders != 12 || release.Leechers != 3 {
		t.Errorf("peers: got %d/%d", release.Seeders, release.Leechers)
	}
	if release.Peers != 15 {
		t.Errorf("peer sum: got %d", release.Peers)
	}
	if release.InfoURL != "https://www.myanonamouse.net/t/5150" {
		t.Errorf("info url: got %q", release.InfoURL)
	}
	if release.PublishDate != "2024-05-01T10:30:00Z" {
		t.Errorf("publish date: got %q", release.PublishDate)
	}
	if release.Protocol != "torrent" {
		t.Errorf("protocol: got %q", release.Protocol)
	}
}

func TestMapReleaseSynthesizesGUIDWithoutID(t *testing.T) {
	release := MapRelease(map[string]interface{}{"title": "No ID Here"}, testConfig("https://example"), "fallback")
	if !strings.HasPrefix(release.GUID, "mam-") || len(release.GUID) <= len("mam-") {
		t.Errorf("expected synthesized guid, got %q", release.GUID)
	}
	if release.InfoURL != "" {
		t.Errorf("expected no info url without id, got %q", release.InfoURL)
	}
}

func TestMapReleaseTitleFallsBack(t *testing.T) {
	release := MapRelease(map[string]interface{}{"id": float64(1), "title": "   "}, testConfig("https://example"), "query text")
	if release.Title != "query text" {
		t.Errorf("expected fallback title, got %q", release.Title)
	}
}

func TestFlagsFromResult(t *testing.T) {
	raw := map[string]interface{}{
		"id":                 float64(9),
		"personal_freeleech": float64(1),
		"vip":                "true",
	}
	release := MapRelease(raw, testConfig("https://example"), "x")
	want := []string{"freeleech", "personal_freeleech", "vip"}
	if len(release.IndexerFlags) != len(want) {
		t.Fatalf("flags: got %v", release.IndexerFlags)
	}
	for i, flag := range want {
		if release.IndexerFlags[i] != flag {
			t.Errorf("flag %d: got %q, want %q", i, release.IndexerFlags[i], flag)
		}
	}
}

func TestCoerceDatetimeEpoch(t *testing.T) {
	if got := coerceDatetime(float64(1704067200)); got != "2024-01-01T00:00:00Z" {
		t.Errorf("epoch coercion: got %q", got)
	}
	if got := coerceDatetime("1704067200"); got != "2024-01-01T00:00:00Z" {
		t.Errorf("string epoch coercion: got %q", got)
	}
}

func TestTorrentIDSkipsZero(t *testing.T) {
	if _, ok := TorrentID(map[string]interface{}{"id": float64(0)}); ok {
		t.Error("zero id should not resolve")
	}
	id, ok := TorrentID(map[string]interface{}{"id": float64(0), "tid": "77"})
	if !ok || id != "77" {
		t.Errorf("expected fallback to tid, got %q %v", id, ok)
	}
}
