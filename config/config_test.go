package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreRoot != "raw" || cfg.Timezone != "Asia/Kolkata" {
		t.Errorf("defaults: got %+v", cfg)
	}
	if cfg.Pacing.MinBatchSize != 5 || cfg.Pacing.MaxBatchSize != 20 {
		t.Errorf("pacing defaults: got %+v", cfg.Pacing)
	}
	if cfg.Fetch.MaxConcurrent != 10 {
		t.Errorf("max_concurrent default: got %d", cfg.Fetch.MaxConcurrent)
	}
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
store_root: /data/raw
pacing:
  min_batch_size: 2
  max_batch_size: 4
  min_delay_seconds: 0.1
  max_delay_seconds: 0.5
fetch:
  max_concurrent: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreRoot != "/data/raw" {
		t.Errorf("store_root: got %q", cfg.StoreRoot)
	}
	if cfg.Fetch.MaxConcurrent != 3 {
		t.Errorf("max_concurrent: got %d", cfg.Fetch.MaxConcurrent)
	}
	// Unset keys keep their defaults.
	if cfg.Timezone != "Asia/Kolkata" {
		t.Errorf("timezone: got %q", cfg.Timezone)
	}

	jc := cfg.JitterConfig()
	if jc.MinBatch != 2 || jc.MaxBatch != 4 {
		t.Errorf("jitter batches: got %+v", jc)
	}
	if jc.MinDelay != 100*time.Millisecond || jc.MaxDelay != 500*time.Millisecond {
		t.Errorf("jitter delays: got %v, %v", jc.MinDelay, jc.MaxDelay)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	// WHAT: Environment beats file beats defaults.
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("store_root: /from/yaml\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ECOCAT_STORE_ROOT", "/from/env")
	t.Setenv("ECOCAT_MAX_CONCURRENT", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StoreRoot != "/from/env" {
		t.Errorf("store_root: got %q", cfg.StoreRoot)
	}
	if cfg.Fetch.MaxConcurrent != 7 {
		t.Errorf("max_concurrent: got %d", cfg.Fetch.MaxConcurrent)
	}
}

func TestLoadRejectsBadRanges(t *testing.T) {
	cases := []string{
		"pacing:\n  min_batch_size: 10\n  max_batch_size: 2\n",
		"pacing:\n  min_delay_seconds: 5\n  max_delay_seconds: 1\n",
		"fetch:\n  max_concurrent: 0\n",
		"store_root: \"\"\n",
	}
	for _, yaml := range cases {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Errorf("config %q should be rejected", yaml)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing config file should be an error")
	}
}
