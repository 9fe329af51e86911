// Package config loads the engine configuration from YAML. Missing files
// yield defaults; the raw-bytes hash is stamped into audit entries so a
// verdict can always be traced to the exact configuration that produced it.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration parses YAML duration strings ("60s", "5m") and bare integers
// (seconds) into a time.Duration.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		if parsed, err := time.ParseDuration(s); err == nil {
			*d = Duration(parsed)
			return nil
		}
		// A bare integer scalar also decodes as a string; fall through to
		// the seconds branch rather than rejecting it here.
	}
	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration %q", value.Value)
	}
	*d = Duration(time.Duration(n) * time.Second)
	return nil
}

// MarshalYAML implements yaml.Marshaler, so a generated config round-trips
// as "60s" rather than raw nanoseconds.
func (d Duration) MarshalYAML() (any, error) {
	return d.Std().String(), nil
}

// Std returns the standard-library duration value.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Provider holds LLM connection parameters. An empty APIURL disables the
// provider; LLM-dependent commands refuse to run and the entity guardrail
// falls back to its deterministic strategy.
type Provider struct {
	APIURL    string   `yaml:"api_url"`
	APIKeyEnv string   `yaml:"api_key_env"`
	Model     string   `yaml:"model"`
	MaxTokens int      `yaml:"max_tokens"`
	Timeout   Duration `yaml:"timeout"`
}

// APIKey resolves the key from the configured environment variable.
func (p Provider) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// Guardrails holds validation tunables.
type Guardrails struct {
	FailFast             bool `yaml:"fail_fast"`
	MaxGenerationRetries int  `yaml:"max_generation_retries"`
	RetryThreshold       int  `yaml:"retry_threshold"`
	EntityAdjudication   bool `yaml:"entity_adjudication"`
}

// Daemon holds the job-directory layout and watcher behaviour.
type Daemon struct {
	Inbox        string   `yaml:"inbox"`
	Outbox       string   `yaml:"outbox"`
	State        string   `yaml:"state"`
	PollMode     bool     `yaml:"poll_mode"`
	PollInterval Duration `yaml:"poll_interval"`
	Workers      int      `yaml:"workers"`

	// ReviewTTL is how long a draft waits in the outbox before review
	// commands treat it as expired.
	ReviewTTL Duration `yaml:"review_ttl"`
}

// Maildrop holds inbound email intake controls.
type Maildrop struct {
	AllowlistFile string `yaml:"allowlist_file"`
	RateLimit     int    `yaml:"rate_limit"`
	RateWindow    string `yaml:"rate_window"`
}

// Config is the full engine configuration.
type Config struct {
	Provider   Provider   `yaml:"provider"`
	Guardrails Guardrails `yaml:"guardrails"`
	Daemon     Daemon     `yaml:"daemon"`
	Maildrop   Maildrop   `yaml:"maildrop"`
	AuditLog   string     `yaml:"audit_log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	base := filepath.Join(home, ".draftgate")
	return &Config{
		Provider: Provider{
			APIKeyEnv: "DRAFTGATE_API_KEY",
			Model:     "gpt-4o-mini",
			MaxTokens: 2048,
			Timeout:   Duration(60 * time.Second),
		},
		Guardrails: Guardrails{
			FailFast:             true,
			MaxGenerationRetries: 2,
			RetryThreshold:       2,
			EntityAdjudication:   true,
		},
		Daemon: Daemon{
			Inbox:        filepath.Join(base, "inbox"),
			Outbox:       filepath.Join(base, "outbox"),
			State:        filepath.Join(base, "state"),
			PollInterval: Duration(5 * time.Second),
			Workers:      2,
			ReviewTTL:    Duration(24 * time.Hour),
		},
		Maildrop: Maildrop{
			AllowlistFile: filepath.Join(base, "allowlist.txt"),
			RateLimit:     10,
			RateWindow:    "1h",
		},
		AuditLog: filepath.Join(base, "audit.jsonl"),
	}
}

// DefaultPath is the conventional config location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".draftgate", "config.yaml")
}

// Load reads configuration from path. Empty path falls back to DefaultPath.
// Missing file returns defaults; invalid YAML returns an error.
func Load(path string) (*Config, error) {
	cfg, _, err := LoadWithHash(path)
	return cfg, err
}

// LoadWithHash loads configuration and the SHA-256 of the raw YAML bytes.
// Defaults (no file) hash as SHA-256 of empty input.
func LoadWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if path == "" || os.IsNotExist(err) {
			h := sha256.Sum256(nil)
			return Default(), "sha256:" + hex.EncodeToString(h[:]), nil
		}
		return nil, "", fmt.Errorf("read config: %w", err)
	}

	// Start with defaults; YAML overwrites only specified fields.
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, "", fmt.Errorf("parse config: %w", err)
	}

	h := sha256.Sum256(data)
	return cfg, "sha256:" + hex.EncodeToString(h[:]), nil
}

// RateWindowDuration parses the maildrop rate window, defaulting to 1 hour.
func (m Maildrop) RateWindowDuration() time.Duration {
	d, err := time.ParseDuration(m.RateWindow)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
