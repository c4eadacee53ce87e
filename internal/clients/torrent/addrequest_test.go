package torrent

import (
	"testing"
)

func v2Caps() Capabilities {
	return Capabilities{APIMajor: 2, Endpoints: map[string]bool{"/api/v2/app/webapiVersion": true}}
}

func v1Caps() Capabilities {
	return Capabilities{APIMajor: 1, Endpoints: map[string]bool{"/version/api": true}}
}

func TestBuildAddRequestV2FieldNames(t *testing.T) {
	paused := true
	forced := true
	req := BuildAddRequest(v2Caps(), AddOptions{
		Category:    "audiobooks",
		StartPaused: &paused,
		ForceStart:  &forced,
	})

	if req.Path != "api/v2/torrents/add" {
		t.Errorf("path: got %q", req.Path)
	}
	if req.FormFields["stopped"] != "true" {
		t.Errorf("expected v2 stopped field, got %v", req.FormFields)
	}
	if req.FormFields["forced"] != "true" {
		t.Errorf("expected v2 forced field, got %v", req.FormFields)
	}
	if _, ok := req.FormFields["paused"]; ok {
		t.Error("v1 paused field should not appear on v2")
	}
	if req.FormFields["category"] != "audiobooks" {
		t.Errorf("category: got %v", req.FormFields)
	}
}

func TestBuildAddRequestV1FieldNames(t *testing.T) {
	paused := false
	forced := true
	req := BuildAddRequest(v1Caps(), AddOptions{
		StartPaused: &paused,
		ForceStart:  &forced,
	})

	if req.Path != "command/upload" {
		t.Errorf("path: got %q", req.Path)
	}
	if req.FormFields["paused"] != "false" {
		t.Errorf("expected v1 paused field, got %v", req.FormFields)
	}
	if req.FormFields["forceStart"] != "true" {
		t.Errorf("expected v1 forceStart field, got %v", req.FormFields)
	}
}

func TestBuildAddRequestNilPointersLeaveDefaults(t *testing.T) {
	req := BuildAddRequest(v2Caps(), AddOptions{})
	for _, key := range []string{"stopped", "paused", "forced", "forceStart"} {
		if _, ok := req.FormFields[key]; ok {
			t.Errorf("unset option leaked field %q", key)
		}
	}
}

func TestBuildAddRequestSeedLimits(t *testing.T) {
	ratio := 2.0
	minutes := 4320
	req := BuildAddRequest(v2Caps(), AddOptions{RatioLimit: &ratio, SeedingTimeLimit: &minutes})
	if req.FormFields["ratioLimit"] != "2" {
		t.Errorf("ratio: got %v", req.FormFields)
	}
	if req.FormFields["seedingTimeLimit"] != "4320" {
		t.Errorf("minutes: got %v", req.FormFields)
	}
}
