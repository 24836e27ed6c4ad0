// Package config loads and saves feedkeeper's persistent configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/abelbrown/feedkeeper/internal/automation"
	"github.com/abelbrown/feedkeeper/internal/brain"
	"github.com/abelbrown/feedkeeper/internal/history"
	"github.com/abelbrown/feedkeeper/internal/identity"
)

// Config is the persistent application configuration
type Config struct {
	Collection CollectionConfig `json:"collection"`
	Extraction ExtractionConfig `json:"extraction"`
	Automation AutomationConfig `json:"automation"`
	Summary    SummaryConfig    `json:"summary"`
}

// CollectionConfig controls where snapshots come from and how much is kept.
// At most one of SnapshotFile, SnapshotURL and FeedURL is used, in that
// order.
type CollectionConfig struct {
	IntervalSeconds int    `json:"interval_seconds"`
	PerDayCap       int    `json:"per_day_cap"`
	RetentionDays   int    `json:"retention_days"`
	SkipPromoted    bool   `json:"skip_promoted"`
	SnapshotFile    string `json:"snapshot_file,omitempty"`
	SnapshotURL     string `json:"snapshot_url,omitempty"`
	FeedURL         string `json:"feed_url,omitempty"`
	Page            string `json:"page,omitempty"` // page URL assumed for file snapshots
	Watch           bool   `json:"watch"`          // pass on snapshot file changes
}

// ExtractionConfig tunes field extraction and identity.
type ExtractionConfig struct {
	RulesFile            string `json:"rules_file,omitempty"`
	RepairDuplicateNames bool   `json:"repair_duplicate_names"`
	FallbackIDMode       string `json:"fallback_id_mode"` // "base64" or "hash"
}

// AutomationConfig holds auto-comment settings.
type AutomationConfig struct {
	AutoComment bool     `json:"auto_comment"`
	Probability float64  `json:"probability"`
	MinDelayMs  int      `json:"min_delay_ms"`
	MaxDelayMs  int      `json:"max_delay_ms"`
	PerMinute   int      `json:"per_minute"`
	Templates   []string `json:"templates,omitempty"`
	WebhookURL  string   `json:"webhook_url,omitempty"` // empty logs instead of posting
}

// SummaryConfig holds AI summary settings
type SummaryConfig struct {
	Enabled       bool   `json:"enabled"`
	Model         string `json:"model"`
	AnthropicKey  string `json:"anthropic_api_key,omitempty"`
	OpenAIKey     string `json:"openai_api_key,omitempty"`
	DefaultPrompt string `json:"default_prompt"`
	Schedule      string `json:"schedule"` // cron spec, local time
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	lim := history.DefaultLimits()
	auto := automation.DefaultOptions()
	return &Config{
		Collection: CollectionConfig{
			IntervalSeconds: 5,
			PerDayCap:       lim.PerDay,
			RetentionDays:   lim.Days,
			SkipPromoted:    true,
			Watch:           true,
		},
		Extraction: ExtractionConfig{
			RepairDuplicateNames: true,
			FallbackIDMode:       string(identity.ModeBase64),
		},
		Automation: AutomationConfig{
			AutoComment: false,
			Probability: auto.Probability,
			MinDelayMs:  int(auto.MinDelay / time.Millisecond),
			MaxDelayMs:  int(auto.MaxDelay / time.Millisecond),
			PerMinute:   auto.PerMinute,
		},
		Summary: SummaryConfig{
			Enabled:       true,
			Model:         brain.DefaultModel,
			DefaultPrompt: brain.DefaultPrompt,
			Schedule:      "55 23 * * *",
		},
	}
}

// Dir returns the feedkeeper data directory, ~/.feedkeeper unless
// FEEDKEEPER_HOME is set.
func Dir() string {
	if d := os.Getenv("FEEDKEEPER_HOME"); d != "" {
		return d
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".feedkeeper")
}

// ConfigPath returns the path to the config file
func ConfigPath() string { return filepath.Join(Dir(), "config.json") }

// DBPath returns the path to the SQLite store.
func DBPath() string { return filepath.Join(Dir(), "feedkeeper.db") }

// EventsPath returns the path to the JSONL event log.
func EventsPath() string { return filepath.Join(Dir(), "events.jsonl") }

// Load reads config from disk, or returns defaults
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path over the defaults. A missing file
// yields the defaults. API keys absent from the file are taken from the
// environment.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.AutoPopulateFromEnv()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path, creating its directory.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600) // Restrictive permissions for API keys
}

// AutoPopulateFromEnv fills in API keys and the model from environment
// variables. Keys already set are kept.
func (c *Config) AutoPopulateFromEnv() {
	c.apply(map[string]string{
		"ANTHROPIC_API_KEY": os.Getenv("ANTHROPIC_API_KEY"),
		"CLAUDE_API_KEY":    os.Getenv("CLAUDE_API_KEY"),
		"OPENAI_API_KEY":    os.Getenv("OPENAI_API_KEY"),
		"FEEDKEEPER_MODEL":  os.Getenv("FEEDKEEPER_MODEL"),
	}, false)
}

// LoadKeysFromFile loads keys from a .env file or a shell script of
// export lines (like keys.sh). Values in the file replace configured ones.
func (c *Config) LoadKeysFromFile(path string) error {
	env, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read keys %s: %w", path, err)
	}
	c.apply(env, true)
	return nil
}

func (c *Config) apply(env map[string]string, override bool) {
	set := func(dst *string, v string) {
		if v != "" && (override || *dst == "") {
			*dst = v
		}
	}
	set(&c.Summary.AnthropicKey, env["CLAUDE_API_KEY"])
	set(&c.Summary.AnthropicKey, env["ANTHROPIC_API_KEY"])
	set(&c.Summary.OpenAIKey, env["OPENAI_API_KEY"])
	if m := env["FEEDKEEPER_MODEL"]; m != "" {
		c.Summary.Model = m
	}
}

// Interval returns the pass interval.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Collection.IntervalSeconds) * time.Second
}

// Limits returns the history bounds. Non-positive values fall back to the
// defaults; history never runs unbounded.
func (c *Config) Limits() history.Limits {
	lim := history.DefaultLimits()
	if c.Collection.PerDayCap > 0 {
		lim.PerDay = c.Collection.PerDayCap
	}
	if c.Collection.RetentionDays > 0 {
		lim.Days = c.Collection.RetentionDays
	}
	return lim
}

// FallbackIDMode returns the identity mode, defaulting to base64.
func (c *Config) FallbackIDMode() identity.Mode {
	if identity.Mode(c.Extraction.FallbackIDMode) == identity.ModeHash {
		return identity.ModeHash
	}
	return identity.ModeBase64
}

// AutomationOptions converts the automation section.
func (c *Config) AutomationOptions() automation.Options {
	a := c.Automation
	return automation.Options{
		Enabled:     a.AutoComment,
		Probability: a.Probability,
		MinDelay:    time.Duration(a.MinDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(a.MaxDelayMs) * time.Millisecond,
		PerMinute:   a.PerMinute,
		Templates:   a.Templates,
	}
}

// BrainOptions converts the summary section.
func (c *Config) BrainOptions() brain.Options {
	return brain.Options{
		Model:         c.Summary.Model,
		AnthropicKey:  c.Summary.AnthropicKey,
		OpenAIKey:     c.Summary.OpenAIKey,
		DefaultPrompt: c.Summary.DefaultPrompt,
	}
}
