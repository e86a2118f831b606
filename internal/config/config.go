// Package config defines all configuration for the trading engine. Config
// is loaded from a YAML file with sensitive fields overridable via AXIOM_*
// environment variables, in the teacher's internal/config/config.go style.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration.
type Config struct {
	DryRun      bool              `mapstructure:"dry_run"`
	Engine      EngineConfig      `mapstructure:"engine"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Ingestion   IngestionConfig   `mapstructure:"ingestion"`
	Execution   ExecutionConfig   `mapstructure:"execution"`
	Attestation AttestationConfig `mapstructure:"attestation"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Health      HealthConfig      `mapstructure:"health"`
}

// EngineConfig tunes the core control loop.
type EngineConfig struct {
	StartingEquity   string        `mapstructure:"starting_equity"`
	FeatureHistoryLen int          `mapstructure:"feature_history_len"`
	ProposalInterval time.Duration `mapstructure:"proposal_interval"`
	LatencyBufferLen int           `mapstructure:"latency_buffer_len"`
}

// RiskConfig holds deployment-tunable extensions to the compiled-in
// authoritative constants (§6) — the constants themselves never vary.
type RiskConfig struct {
	SessionSnapshotInterval time.Duration `mapstructure:"session_snapshot_interval"`
}

// IngestionConfig configures the reference WebSocket ingestion adapter.
type IngestionConfig struct {
	QueueSize  int           `mapstructure:"queue_size"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// ExecutionConfig configures the reference go-resty execution adapter.
type ExecutionConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	SubmissionTimeout time.Duration `mapstructure:"submission_timeout"`
}

// AttestationConfig holds the Ed25519 signing key material. SigningSeed is
// sensitive and is overridden from AXIOM_SIGNING_SEED, never logged.
type AttestationConfig struct {
	SigningSeedHex string `mapstructure:"signing_seed_hex"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// HealthConfig controls the read-only health/metrics HTTP surface.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("AXIOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if seed := os.Getenv("AXIOM_SIGNING_SEED"); seed != "" {
		cfg.Attestation.SigningSeedHex = seed
	}
	if os.Getenv("AXIOM_DRY_RUN") == "true" || os.Getenv("AXIOM_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// Validate checks all required fields and value ranges.
func (c *Config) Validate() error {
	if c.Engine.StartingEquity == "" {
		return fmt.Errorf("engine.starting_equity is required")
	}
	if c.Engine.FeatureHistoryLen <= 0 {
		return fmt.Errorf("engine.feature_history_len must be > 0")
	}
	if c.Execution.SubmissionTimeout <= 0 {
		return fmt.Errorf("execution.submission_timeout must be > 0 (spec default: 5s)")
	}
	if !c.DryRun && c.Execution.BaseURL == "" {
		return fmt.Errorf("execution.base_url is required unless dry_run is set")
	}
	return nil
}
