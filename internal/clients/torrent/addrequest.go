package torrent

import (
	"strconv"
)

// ContentLayout mirrors qBittorrent's torrent content layout choices.
type ContentLayout string

const (
	ContentLayoutDefault   ContentLayout = ""
	ContentLayoutOriginal  ContentLayout = "original"
	ContentLayoutSubfolder ContentLayout = "subfolder"
)

// AddOptions are the configurable qBittorrent parameters for new torrents.
// Nil pointer fields mean "leave the client default alone".
type AddOptions struct {
	Category         string
	StartPaused      *bool
	ForceStart       *bool
	Sequential       bool
	ContentLayout    ContentLayout
	RatioLimit       *float64
	SeedingTimeLimit *int
}

// AddRequest is the endpoint plus form fields used to add a torrent.
type AddRequest struct {
	Path       string
	FormFields map[string]string
}

// BuildAddRequest translates AddOptions into the form the probed API
// version understands. The v1 and v2 APIs disagree on the pause and
// force-start field names.
func BuildAddRequest(caps Capabilities, opts AddOptions) AddRequest {
	useV2 := caps.PrefersV2()
	path := "command/upload"
	if useV2 {
		path = "api/v2/torrents/add"
	}

	fields := make(map[string]string)
	if opts.Category != "" {
		fields["category"] = opts.Category
	}
	if opts.StartPaused != nil {
		key := "paused"
		if useV2 {
			key = "stopped"
		}
		fields[key] = strconv.FormatBool(*opts.StartPaused)
	}
	if opts.ForceStart != nil {
		key := "forceStart"
		if useV2 {
			key = "forced"
		}
		fields[key] = strconv.FormatBool(*opts.ForceStart)
	}
	if opts.Sequential {
		fields["sequentialDownload"] = "true"
	}
	switch opts.ContentLayout {
	case ContentLayoutOriginal:
		fields["contentLayout"] = "Original"
	case ContentLayoutSubfolder:
		fields["contentLayout"] = "Subfolder"
	}
	if opts.RatioLimit != nil {
		fields["ratioLimit"] = strconv.FormatFloat(*opts.RatioLimit, 'f', -1, 64)
	}
	if opts.SeedingTimeLimit != nil {
		fields["seedingTimeLimit"] = strconv.Itoa(*opts.SeedingTimeLimit)
	}

	return AddRequest{Path: path, FormFields: fields}
}
