package remote

import (
	"encoding/json"
	"testing"
)

func TestConfig_MarshalLocal(t *testing.T) {
	cfg := Config{
		Name:                "clu-local",
		UpdatePeriodSeconds: 86400,
		Kind:                KindLocal,
		LocalPath:           "/tmp/clu.tar.gz",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["package-repository-type"] != "local" {
		t.Errorf("expected flat package-repository-type key, got %v", raw["package-repository-type"])
	}
	if raw["path"] != "/tmp/clu.tar.gz" {
		t.Errorf("expected flat path key, got %v", raw["path"])
	}
	if _, hasURL := raw["url"]; hasURL {
		t.Error("local config should not carry a url key")
	}

	var roundTrip Config
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
	if roundTrip != cfg {
		t.Errorf("round trip mismatch: got %+v, want %+v", roundTrip, cfg)
	}
}

func TestConfig_MarshalS3Script(t *testing.T) {
	cfg := Config{
		Name:                "clu-s3",
		UpdatePeriodSeconds: 86400,
		Kind:                KindS3,
		S3URL:               "https://example.s3.amazonaws.com/clu.tar.gz",
		AuthStrategy:        AuthScript,
		AuthScriptPath:      "/usr/local/bin/auth.sh",
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw["package-repository-type"] != "s3" {
		t.Errorf("expected package-repository-type s3, got %v", raw["package-repository-type"])
	}
	if raw["auth-strategy"] != "script" {
		t.Errorf("expected auth-strategy script, got %v", raw["auth-strategy"])
	}
	if raw["script-path"] != "/usr/local/bin/auth.sh" {
		t.Errorf("expected script-path to be flattened, got %v", raw["script-path"])
	}

	var roundTrip Config
	if err := json.Unmarshal(data, &roundTrip); err != nil {
		t.Fatalf("round-trip unmarshal: %v", err)
	}
	if roundTrip != cfg {
		t.Errorf("round trip mismatch: got %+v, want %+v", roundTrip, cfg)
	}
}

func TestConfig_UnknownKindFails(t *testing.T) {
	var cfg Config
	err := json.Unmarshal([]byte(`{"name":"x","package-repository-type":"ftp"}`), &cfg)
	if err == nil {
		t.Fatal("expected an error for an unknown repository kind")
	}
}
