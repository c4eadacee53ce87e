package torrent

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mamarr/internal/utils"
)

// Transmission torrent status codes that count as seeding.
var transmissionSeedingStatuses = map[int]bool{5: true, 6: true}

// TransmissionClient speaks the Transmission JSON-RPC protocol, including
// the 409 session-id handshake.
type TransmissionClient struct {
	rpcURL     string
	username   string
	password   string
	sessionID  string
	httpClient *http.Client
	logger     *utils.Logger
}

func NewTransmissionClient(rpcURL, username, password string, logger *utils.Logger) *TransmissionClient {
	return &TransmissionClient{
		rpcURL:     rpcURL,
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

func (t *TransmissionClient) Name() string {
	return "transmission"
}

type transmissionResponse struct {
	Result    string                 `json:"result"`
	Arguments map[string]interface{} `json:"arguments"`
}

// rpc performs one RPC call. A 409 answer carries a fresh session id that is
// echoed on a single retry; a second 409 is a hard error.
func (t *TransmissionClient) rpc(ctx context.Context, method string, arguments map[string]interface{}) (map[string]interface{}, error) {
	payload, err := json.Marshal(map[string]interface{}{
		"method":    method,
		"arguments": arguments,
	})
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.rpcURL, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if t.username != "" {
			req.SetBasicAuth(t.username, t.password)
		}
		if t.sessionID != "" {
			req.Header.Set("X-Transmission-Session-Id", t.sessionID)
		}

		resp, err := t.httpClient.Do(req)
		if err != nil {
			return nil, classifyTransportError(err)
		}

		if resp.StatusCode == http.StatusConflict {
			t.sessionID = resp.Header.Get("X-Transmission-Session-Id")
			resp.Body.Close()
			continue
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			return nil, fmt.Errorf("%w: RPC %s rejected with status %d", ErrAuthentication, method, resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		var decoded transmissionResponse
		err = json.NewDecoder(resp.Body).Decode(&decoded)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode Transmission response: %w", err)
		}
		if decoded.Result != "success" {
			return nil, fmt.Errorf("transmission RPC %s failed: %s", method, decoded.Result)
		}
		return decoded.Arguments, nil
	}
	return nil, fmt.Errorf("unable to negotiate Transmission session id")
}

// AddTorrent registers raw .torrent bytes. A "torrent-duplicate" answer is
// treated the same as "torrent-added".
func (t *TransmissionClient) AddTorrent(ctx context.Context, torrentBytes []byte) (AddResult, error) {
	args, err := t.rpc(ctx, "torrent-add", map[string]interface{}{
		"metainfo": base64.StdEncoding.EncodeToString(torrentBytes),
	})
	if err != nil {
		return AddResult{}, err
	}

	added, ok := args["torrent-added"].(map[string]interface{})
	if !ok {
		added, ok = args["torrent-duplicate"].(map[string]interface{})
	}
	if !ok {
		return AddResult{}, fmt.Errorf("transmission returned no torrent data for add")
	}

	result := AddResult{
		ID:   int64(getFloat(added, "id")),
		Hash: strings.ToUpper(getString(added, "hashString")),
	}
	t.logger.Info("Transmission: torrent registered, id:", result.ID, "hash:", result.Hash)
	return result, nil
}

func (t *TransmissionClient) ListTorrents(ctx context.Context, hashes []string) (map[string]Snapshot, error) {
	if len(hashes) == 0 {
		return map[string]Snapshot{}, nil
	}
	lower := make([]string, len(hashes))
	for i, h := range hashes {
		lower[i] = strings.ToLower(h)
	}

	args, err := t.rpc(ctx, "torrent-get", map[string]interface{}{
		"fields": []string{
			"id", "name", "hashString", "status", "percentDone",
			"downloadDir", "leftUntilDone", "isFinished", "files",
		},
		"ids": lower,
	})
	if err != nil {
		return nil, err
	}

	snapshots := make(map[string]Snapshot)
	torrents, _ := args["torrents"].([]interface{})
	for _, raw := range torrents {
		entry, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		snapshot := Snapshot{
			Hash:           strings.ToUpper(getString(entry, "hashString")),
			Name:           getString(entry, "name"),
			Status:         mapTransmissionStatus(int(getFloat(entry, "status"))),
			BytesRemaining: int64(getFloat(entry, "leftUntilDone")),
			DownloadDir:    getString(entry, "downloadDir"),
		}
		if files, ok := entry["files"].([]interface{}); ok {
			for _, f := range files {
				fileMap, ok := f.(map[string]interface{})
				if !ok {
					continue
				}
				snapshot.Files = append(snapshot.Files, File{
					Name: getString(fileMap, "name"),
					Size: int64(getFloat(fileMap, "length")),
				})
			}
		}
		snapshots[snapshot.Hash] = snapshot
	}
	return snapshots, nil
}

func (t *TransmissionClient) RemoveTorrent(ctx context.Context, hash string, deleteData bool) error {
	_, err := t.rpc(ctx, "torrent-remove", map[string]interface{}{
		"ids":               []string{strings.ToLower(hash)},
		"delete-local-data": deleteData,
	})
	if err != nil {
		return err
	}
	t.logger.Info("Transmission: torrent removed, hash:", hash)
	return nil
}

func (t *TransmissionClient) TestConnection(ctx context.Context) error {
	_, err := t.rpc(ctx, "session-get", map[string]interface{}{})
	return err
}

func mapTransmissionStatus(status int) Status {
	switch {
	case transmissionSeedingStatuses[status]:
		return StatusSeeding
	case status == 3 || status == 4:
		return StatusDownloading
	default:
		return StatusQueued
	}
}

func getFloat(data map[string]interface{}, key string) float64 {
	if val, ok := data[key]; ok {
		if f, ok := val.(float64); ok {
			return f
		}
		if i, ok := val.(int64); ok {
			return float64(i)
		}
		if i, ok := val.(int); ok {
			return float64(i)
		}
	}
	return 0.0
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key].(string); ok {
		return val
	}
	return ""
}
