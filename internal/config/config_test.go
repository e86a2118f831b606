package config

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleConfig = `
dry_run: true
engine:
  starting_equity: "100000"
  feature_history_len: 1000
  proposal_interval: 1s
  latency_buffer_len: 2000
risk:
  session_snapshot_interval: 1h
ingestion:
  queue_size: 256
  stale_after: 10s
execution:
  base_url: "https://execution.invalid"
  submission_timeout: 5s
attestation:
  signing_seed_hex: ""
logging:
  level: info
  format: json
health:
  enabled: true
  port: 8090
`

func writeSampleConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write sample config: %v", err)
	}
	return path
}

func TestLoadParsesAllSections(t *testing.T) {
	t.Parallel()
	path := writeSampleConfig(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.DryRun {
		t.Error("DryRun = false, want true")
	}
	if cfg.Engine.StartingEquity != "100000" {
		t.Errorf("StartingEquity = %q, want 100000", cfg.Engine.StartingEquity)
	}
	if cfg.Ingestion.StaleAfter.Seconds() != 10 {
		t.Errorf("StaleAfter = %v, want 10s", cfg.Ingestion.StaleAfter)
	}
	if cfg.Health.Port != 8090 {
		t.Errorf("Health.Port = %d, want 8090", cfg.Health.Port)
	}
}

func TestLoadEnvOverridesSigningSeedAndDryRun(t *testing.T) {
	path := writeSampleConfig(t)
	t.Setenv("AXIOM_SIGNING_SEED", "deadbeef")
	t.Setenv("AXIOM_DRY_RUN", "false") // not one of the accepted truthy strings

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Attestation.SigningSeedHex != "deadbeef" {
		t.Errorf("SigningSeedHex = %q, want deadbeef (env override)", cfg.Attestation.SigningSeedHex)
	}
}

func TestValidateRequiresStartingEquity(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		Engine:    EngineConfig{FeatureHistoryLen: 1},
		Execution: ExecutionConfig{SubmissionTimeout: 0},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing starting equity")
	}
}

func TestValidateRequiresBaseURLUnlessDryRun(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		DryRun: false,
		Engine: EngineConfig{StartingEquity: "1000", FeatureHistoryLen: 1},
		Execution: ExecutionConfig{
			SubmissionTimeout: 1,
			BaseURL:           "",
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected an error for a missing base url when dry_run is false")
	}

	cfg.DryRun = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() with dry_run=true and no base url: %v", err)
	}
}
