package utils

import (
	"strings"
	"testing"
)

func TestParseTorrent(t *testing.T) {
	data := []byte("d4:infod6:lengthi5e4:name4:test12:piece lengthi16384e6:pieces20:aaaaaaaaaaaaaaaaaaaaee")

	meta, err := ParseTorrent(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if meta.Name != "test" {
		t.Errorf("name: got %q", meta.Name)
	}
	if len(meta.InfoHash) != 40 {
		t.Errorf("expected 40-char hex hash, got %q", meta.InfoHash)
	}
	if meta.InfoHash != strings.ToUpper(meta.InfoHash) {
		t.Errorf("hash should be uppercase: %q", meta.InfoHash)
	}
}

func TestParseTorrentGarbage(t *testing.T) {
	if _, err := ParseTorrent([]byte("not a torrent")); err == nil {
		t.Fatal("expected error for garbage input")
	}
}
