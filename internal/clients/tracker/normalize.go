package tracker

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"mamarr/internal/config"
	"mamarr/internal/models"
)

// MyAnonamouse result records are not consistent about key names across
// endpoints and torrent ages, so every field is resolved through an
// explicit fallback-key list, once, here. Raw maps never travel past this
// boundary.

var (
	idKeys       = []string{"id", "tid", "tor_id", "torrent_id"}
	titleKeys    = []string{"title", "name", "torTitle", "torname", "rawName", "book_title", "torrent_name"}
	sizeKeys     = []string{"size", "size_bytes", "bytes", "filesize", "torrent_size"}
	seederKeys   = []string{"seeders", "seed", "seeders_total", "leech_seeders"}
	leecherKeys  = []string{"leechers", "leeches", "leech", "leechers_total"}
	seedTimeKeys = []string{"minimumSeedTime", "minimum_seed_time", "min_seed_time", "seedtime"}
)

// TorrentID extracts the tracker's torrent identifier from a raw result.
func TorrentID(raw map[string]interface{}) (string, bool) {
	for _, key := range idKeys {
		if value, ok := raw[key]; ok && value != nil {
			id := coerceString(value)
			if id != "" && id != "0" {
				return id, true
			}
		}
	}
	return "", false
}

// MapRelease normalizes one raw tracker record into the Prowlarr-compatible
// release shape.
func MapRelease(raw map[string]interface{}, cfg config.TrackerConfig, fallbackTitle string) models.Release {
	release := models.Release{
		Protocol:             "torrent",
		GUID:                 determineGUID(raw),
		IndexerID:            cfg.IndexerID,
		Indexer:              cfg.IndexerName,
		Title:                coerceTitle(raw, fallbackTitle),
		Seeders:              firstInt(raw, seederKeys),
		Leechers:             firstInt(raw, leecherKeys),
		Size:                 int64(firstInt(raw, sizeKeys)),
		IndexerFlags:         flagsFromResult(raw),
		PublishDate:          coerceDatetime(firstValue(raw, "added", "timestamp")),
		DownloadVolumeFactor: 1.0,
		MinimumSeedTime:      firstInt(raw, seedTimeKeys),
	}
	if id, ok := TorrentID(raw); ok {
		release.InfoURL = strings.TrimRight(cfg.BaseURL, "/") + "/t/" + id
	}
	release.Peers = release.Seeders + release.Leechers
	return release
}

func determineGUID(raw map[string]interface{}) string {
	if id, ok := TorrentID(raw); ok {
		return "mam-" + id
	}
	return "mam-" + uuid.NewString()
}

func coerceTitle(raw map[string]interface{}, fallback string) string {
	for _, key := range titleKeys {
		if value, ok := raw[key].(string); ok {
			if trimmed := strings.TrimSpace(value); trimmed != "" {
				return trimmed
			}
		}
	}
	return fallback
}

func coerceDatetime(value interface{}) string {
	switch v := value.(type) {
	case float64:
		return time.Unix(int64(v), 0).UTC().Format(time.RFC3339)
	case int64:
		return time.Unix(v, 0).UTC().Format(time.RFC3339)
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, v); err == nil {
				return parsed.UTC().Format(time.RFC3339)
			}
		}
		if epoch, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Unix(int64(epoch), 0).UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func flagsFromResult(raw map[string]interface{}) []string {
	flags := make(map[string]bool)
	if truthy(raw["personal_freeleech"]) {
		flags["personal_freeleech"] = true
		flags["freeleech"] = true
	}
	if truthy(raw["free"]) {
		flags["free"] = true
		flags["freeleech"] = true
	}
	if truthy(raw["fl_vip"]) {
		flags["fl_vip"] = true
		flags["freeleech"] = true
	}
	if truthy(raw["vip"]) {
		flags["vip"] = true
	}

	sorted := make([]string, 0, len(flags))
	for flag := range flags {
		sorted = append(sorted, flag)
	}
	// deterministic order for API responses and tests
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[j] < sorted[i] {
				sorted[i], sorted[j] = sorted[j], sorted[i]
			}
		}
	}
	return sorted
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case float64:
		return v == 1
	case int:
		return v == 1
	case string:
		return v == "1" || strings.EqualFold(v, "true")
	}
	return false
}

func firstValue(raw map[string]interface{}, keys ...string) interface{} {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return value
		}
	}
	return nil
}

func firstInt(raw map[string]interface{}, keys []string) int {
	for _, key := range keys {
		if value, ok := raw[key]; ok && value != nil {
			return coerceInt(value)
		}
	}
	return 0
}

func coerceInt(value interface{}) int {
	switch v := value.(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return parsed
		}
	}
	return 0
}

func coerceString(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return fmt.Sprintf("%v", value)
}
