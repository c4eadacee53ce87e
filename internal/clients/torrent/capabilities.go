package torrent

import (
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// capabilityProbeEndpoints are checked in order; modern qBittorrent answers
// the first, pre-4.x builds only the last.
var capabilityProbeEndpoints = []string{
	"/api/v2/app/webapiVersion",
	"/api/v2/app/version",
	"/version/api",
}

var versionTokenRe = regexp.MustCompile(`(\d+)`)

// Capabilities records which qBittorrent Web API surface a host exposes.
// Probed once per client construction.
type Capabilities struct {
	APIMajor  int
	Endpoints map[string]bool
}

// ProbeCapabilities queries the fixed probe endpoints and parses the major
// API version from the first body that carries a numeric token. Finding no
// responsive endpoint, or no numeral in any body, is unrecoverable.
func ProbeCapabilities(client *http.Client, baseURL string) (Capabilities, error) {
	base := strings.TrimRight(baseURL, "/")
	caps := Capabilities{Endpoints: make(map[string]bool)}

	for _, path := range capabilityProbeEndpoints {
		resp, err := client.Get(base + path)
		if err != nil {
			continue
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}
		caps.Endpoints[path] = true
		if caps.APIMajor == 0 {
			if major, ok := parseMajorVersion(string(body)); ok {
				caps.APIMajor = major
			}
		}
	}

	if len(caps.Endpoints) == 0 {
		return Capabilities{}, fmt.Errorf("%w: no version endpoint responded", ErrCapabilityProbe)
	}
	if caps.APIMajor == 0 {
		return Capabilities{}, fmt.Errorf("%w: no version endpoint returned a parsable version", ErrCapabilityProbe)
	}
	return caps, nil
}

func parseMajorVersion(body string) (int, bool) {
	match := versionTokenRe.FindString(body)
	if match == "" {
		return 0, false
	}
	major, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return major, true
}

// Supports reports whether the probe saw the given endpoint respond.
func (c Capabilities) Supports(endpoint string) bool {
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return c.Endpoints[endpoint]
}

// PrefersV2 reports whether the modern /api/v2 surface is available.
func (c Capabilities) PrefersV2() bool {
	for path := range c.Endpoints {
		if strings.HasPrefix(path, "/api/v2") {
			return true
		}
	}
	return false
}
