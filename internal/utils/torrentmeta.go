package utils

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/anacrolix/torrent/metainfo"
)

// TorrentMeta is the subset of .torrent metadata this service cares about.
type TorrentMeta struct {
	// InfoHash is the canonical uppercase hex info-hash.
	InfoHash string
	Name     string
}

// ParseTorrent decodes raw .torrent bytes. The info-hash derived here is the
// sole key used to correlate jobs with the torrent client's live state, so
// it must match what the client computes for the same payload.
func ParseTorrent(data []byte) (TorrentMeta, error) {
	mi, err := metainfo.Load(bytes.NewReader(data))
	if err != nil {
		return TorrentMeta{}, fmt.Errorf("failed to decode torrent metainfo: %w", err)
	}
	info, err := mi.UnmarshalInfo()
	if err != nil {
		return TorrentMeta{}, fmt.Errorf("failed to decode torrent info dictionary: %w", err)
	}
	return TorrentMeta{
		InfoHash: strings.ToUpper(mi.HashInfoBytes().HexString()),
		Name:     info.Name,
	}, nil
}
