package torrent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"mamarr/internal/utils"
)

// qBittorrent states that count as the seeding family. Everything else in
// the client's status space is treated as still-downloading.
var qbitSeedingStates = map[string]bool{
	"uploading": true,
	"stalledUP": true,
	"queuedUP":  true,
	"forcedUP":  true,
	"pausedUP":  true,
	"stoppedUP": true,
}

// Session cookies are cached per base URL so rebuilding a client against
// the same host skips re-authentication.
var qbitCookieCache = struct {
	sync.Mutex
	jars map[string]http.CookieJar
}{jars: make(map[string]http.CookieJar)}

func cachedCookieJar(baseURL string) (http.CookieJar, bool) {
	qbitCookieCache.Lock()
	defer qbitCookieCache.Unlock()
	if jar, ok := qbitCookieCache.jars[baseURL]; ok {
		return jar, true
	}
	jar, _ := cookiejar.New(nil)
	qbitCookieCache.jars[baseURL] = jar
	return jar, false
}

// QBittorrentClient wraps the qBittorrent WebUI API, covering both the
// legacy v1 and the modern v2 surfaces via capability probing.
type QBittorrentClient struct {
	baseURL       string
	username      string
	password      string
	capabilities  Capabilities
	addOptions    AddOptions
	httpClient    *http.Client
	logger        *utils.Logger
	mu            sync.Mutex
	authenticated bool
}

// NewQBittorrentClient probes the host's Web API surface and returns a
// ready client. A failed probe is an unrecoverable construction error.
func NewQBittorrentClient(baseURL, username, password string, addOptions AddOptions, logger *utils.Logger) (*QBittorrentClient, error) {
	base := strings.TrimRight(baseURL, "/")
	jar, cached := cachedCookieJar(base)
	httpClient := &http.Client{Timeout: 30 * time.Second, Jar: jar}

	caps, err := ProbeCapabilities(httpClient, base)
	if err != nil {
		return nil, err
	}
	logger.Info("qBittorrent: detected Web API major version", caps.APIMajor)

	return &QBittorrentClient{
		baseURL:       base,
		username:      username,
		password:      password,
		capabilities:  caps,
		addOptions:    addOptions,
		httpClient:    httpClient,
		logger:        logger,
		authenticated: cached,
	}, nil
}

func (q *QBittorrentClient) Name() string {
	return "qbittorrent"
}

// Capabilities exposes the probe result, mostly for connection tests.
func (q *QBittorrentClient) Capabilities() Capabilities {
	return q.capabilities
}

func (q *QBittorrentClient) login(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", q.username)
	form.Set("password", q.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.baseURL+"/api/v2/auth/login", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(body)) != "Ok." {
		return fmt.Errorf("%w: login rejected", ErrAuthentication)
	}

	q.mu.Lock()
	q.authenticated = true
	q.mu.Unlock()
	q.logger.Info("qBittorrent: authenticated against", q.baseURL)
	return nil
}

func (q *QBittorrentClient) ensureAuth(ctx context.Context) error {
	q.mu.Lock()
	authenticated := q.authenticated
	q.mu.Unlock()
	if authenticated {
		return nil
	}
	return q.login(ctx)
}

// request performs one API call. A 403 clears the authenticated flag and
// retries the login-then-request sequence exactly once; a second 403 is an
// authentication failure.
func (q *QBittorrentClient) request(ctx context.Context, method, path string, body func() (io.Reader, string)) ([]byte, error) {
	if err := q.ensureAuth(ctx); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 2; attempt++ {
		var reader io.Reader
		var contentType string
		if body != nil {
			reader, contentType = body()
		}
		req, err := http.NewRequestWithContext(ctx, method, q.baseURL+"/"+strings.TrimLeft(path, "/"), reader)
		if err != nil {
			return nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := q.httpClient.Do(req)
		if err != nil {
			return nil, classifyTransportError(err)
		}

		if resp.StatusCode == http.StatusForbidden && attempt == 0 {
			resp.Body.Close()
			q.mu.Lock()
			q.authenticated = false
			q.mu.Unlock()
			if err := q.login(ctx); err != nil {
				return nil, err
			}
			continue
		}
		return decodeQbitResponse(resp)
	}
	return nil, fmt.Errorf("%w: request still rejected after re-login", ErrAuthentication)
}

func decodeQbitResponse(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: request rejected", ErrAuthentication)
	case resp.StatusCode == http.StatusConflict:
		if strings.Contains(strings.ToLower(string(payload)), "queue") {
			return nil, fmt.Errorf("%w: enable queueing or adjust slots", ErrQueueingDisabled)
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	case resp.StatusCode >= 400:
		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(payload))}
	}
	return payload, nil
}

// AddTorrent uploads raw .torrent bytes. qBittorrent's add endpoint returns
// no identifiers, so the info-hash is derived from the metainfo itself.
func (q *QBittorrentClient) AddTorrent(ctx context.Context, torrentBytes []byte) (AddResult, error) {
	meta, err := utils.ParseTorrent(torrentBytes)
	if err != nil {
		return AddResult{}, err
	}

	addReq := BuildAddRequest(q.capabilities, q.addOptions)
	body := func() (io.Reader, string) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, _ := writer.CreateFormFile("torrents", "download.torrent")
		part.Write(torrentBytes)
		for key, value := range addReq.FormFields {
			writer.WriteField(key, value)
		}
		writer.Close()
		return &buf, writer.FormDataContentType()
	}

	if _, err := q.request(ctx, http.MethodPost, addReq.Path, body); err != nil {
		return AddResult{}, err
	}
	q.logger.Info("qBittorrent: torrent added, hash:", meta.InfoHash)
	return AddResult{Hash: meta.InfoHash}, nil
}

type qbitTorrentInfo struct {
	Hash       string `json:"hash"`
	Name       string `json:"name"`
	State      string `json:"state"`
	AmountLeft int64  `json:"amount_left"`
	SavePath   string `json:"save_path"`
}

type qbitTorrentFile struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func (q *QBittorrentClient) ListTorrents(ctx context.Context, hashes []string) (map[string]Snapshot, error) {
	if len(hashes) == 0 {
		return map[string]Snapshot{}, nil
	}
	lower := make([]string, len(hashes))
	for i, h := range hashes {
		lower[i] = strings.ToLower(h)
	}

	path := "api/v2/torrents/info?hashes=" + url.QueryEscape(strings.Join(lower, "|"))
	payload, err := q.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var torrents []qbitTorrentInfo
	if err := json.Unmarshal(payload, &torrents); err != nil {
		return nil, fmt.Errorf("failed to decode qBittorrent torrent list: %w", err)
	}

	snapshots := make(map[string]Snapshot, len(torrents))
	for _, info := range torrents {
		snapshot := Snapshot{
			Hash:           strings.ToUpper(info.Hash),
			Name:           info.Name,
			Status:         mapQbitState(info.State),
			BytesRemaining: info.AmountLeft,
			DownloadDir:    info.SavePath,
		}
		files, err := q.listFiles(ctx, info.Hash)
		if err != nil {
			q.logger.Warn("qBittorrent: failed to list files for", info.Hash, ":", err)
		} else {
			snapshot.Files = files
		}
		snapshots[snapshot.Hash] = snapshot
	}
	return snapshots, nil
}

func (q *QBittorrentClient) listFiles(ctx context.Context, hash string) ([]File, error) {
	path := "api/v2/torrents/files?hash=" + url.QueryEscape(strings.ToLower(hash))
	payload, err := q.request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var entries []qbitTorrentFile
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode qBittorrent file list: %w", err)
	}
	files := make([]File, len(entries))
	for i, entry := range entries {
		files[i] = File{Name: entry.Name, Size: entry.Size}
	}
	return files, nil
}

func (q *QBittorrentClient) RemoveTorrent(ctx context.Context, hash string, deleteData bool) error {
	form := url.Values{}
	form.Set("hashes", strings.ToLower(hash))
	form.Set("deleteFiles", strconv.FormatBool(deleteData))

	body := func() (io.Reader, string) {
		return strings.NewReader(form.Encode()), "application/x-www-form-urlencoded"
	}
	if _, err := q.request(ctx, http.MethodPost, "api/v2/torrents/delete", body); err != nil {
		return err
	}
	q.logger.Info("qBittorrent: torrent removed, hash:", hash)
	return nil
}

func (q *QBittorrentClient) TestConnection(ctx context.Context) error {
	_, err := q.request(ctx, http.MethodGet, "api/v2/app/version", nil)
	return err
}

func mapQbitState(state string) Status {
	if qbitSeedingStates[state] {
		return StatusSeeding
	}
	return StatusDownloading
}
