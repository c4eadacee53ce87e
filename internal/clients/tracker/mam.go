package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mamarr/internal/config"
	"mamarr/internal/utils"
)

var (
	// ErrAuthentication is returned when MyAnonamouse rejects the session
	// cookie (HTTP 403).
	ErrAuthentication = errors.New("failed to authenticate with MyAnonamouse")

	// ErrSearch is returned when a tracker query fails or the tracker
	// answers with an error payload.
	ErrSearch = errors.New("MyAnonamouse search failed")
)

// mockResults lets the service run end-to-end without tracker access.
var mockResults = []map[string]interface{}{
	{
		"id":       float64(1001),
		"title":    "Mock Audiobook",
		"seeders":  float64(15),
		"leechers": float64(0),
		"size":     float64(123456789),
		"tor_id":   float64(1001),
		"added":    "2024-01-01T00:00:00Z",
	},
}

// Client wraps the MyAnonamouse JSON search endpoint and the authenticated
// torrent-file download endpoint.
type Client struct {
	cfg        config.TrackerConfig
	useMock    bool
	httpClient *http.Client
	logger     *utils.Logger
}

func NewClient(cfg config.TrackerConfig, useMock bool, logger *utils.Logger) *Client {
	return &Client{
		cfg:        cfg,
		useMock:    useMock,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Search queries the tracker and returns raw result records. Callers are
// expected to normalize them through MapRelease before anything else sees
// them.
func (c *Client) Search(ctx context.Context, query string, limit, offset int, categories, languages []int) ([]map[string]interface{}, error) {
	if c.useMock {
		return mockResults, nil
	}

	params := url.Values{}
	params.Set("tor[text]", query)
	if len(categories) == 0 {
		categories = []int{c.cfg.CategoryID}
	}
	for _, cat := range categories {
		params.Add("tor[main_cat][]", strconv.Itoa(cat))
	}
	for _, lang := range languages {
		params.Add("tor[browse_lang][]", strconv.Itoa(lang))
	}
	params.Set("tor[searchIn]", "torrents")
	params.Set("tor[srchIn][author]", "true")
	params.Set("tor[srchIn][title]", "true")
	params.Set("tor[searchType]", "active")
	params.Set("startNumber", strconv.Itoa(offset))
	params.Set("perpage", strconv.Itoa(limit))

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/tor/js/loadSearchJSONbasic.php?" + params.Encode()
	c.logger.Debug("Tracker: querying", endpoint)

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Error string                   `json:"error"`
		Data  []map[string]interface{} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: unexpected payload: %v", ErrSearch, err)
	}
	if payload.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrSearch, payload.Error)
	}
	return payload.Data, nil
}

// FetchTorrent downloads the raw .torrent bytes for a tracker torrent id.
func (c *Client) FetchTorrent(ctx context.Context, torrentID string) ([]byte, error) {
	if c.useMock {
		return []byte("mock-torrent-data"), nil
	}
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + fmt.Sprintf(c.cfg.DownloadEndpoint, url.QueryEscape(torrentID))
	c.logger.Info("Tracker: downloading torrent file, id:", torrentID)
	return c.get(ctx, endpoint)
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.AddCookie(&http.Cookie{Name: "mam_id", Value: c.cfg.SessionID})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%w: check the mam_id session cookie", ErrAuthentication)
	}
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrSearch, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return io.ReadAll(resp.Body)
}
