// Package config loads zentao-helper settings from YAML, .env and the
// process environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"zentaohelper/internal/automation"
	"zentaohelper/internal/logging"
	"zentaohelper/internal/perception"
	"zentaohelper/internal/zentao"
)

// DefaultPath is where the CLI looks for its config file.
const DefaultPath = ".zentao/config.yaml"

// Config holds all zentao-helper configuration.
type Config struct {
	// Tracker connection
	Zentao ZentaoConfig `yaml:"zentao"`

	// Saved login
	Session SessionConfig `yaml:"session"`

	// Intent classification
	NLP NLPConfig `yaml:"nlp"`

	// Split/assign workflows
	Automation AutomationConfig `yaml:"automation"`

	// User directory cache
	Directory DirectoryConfig `yaml:"directory"`

	// Command history
	History HistoryConfig `yaml:"history"`

	Logging LoggingConfig `yaml:"logging"`

	Server ServerConfig `yaml:"server"`
}

// ZentaoConfig configures the REST client.
type ZentaoConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIPrefix      string `yaml:"api_prefix"`
	Account        string `yaml:"account"`  // non-interactive login
	Password       string `yaml:"password"` // non-interactive login
	Timeout        string `yaml:"timeout"`
	RetryTimes     int    `yaml:"retry_times"`
	RetryBackoff   string `yaml:"retry_backoff"`
	PageLimit      int    `yaml:"page_limit"`
	DirectoryLimit int    `yaml:"directory_limit"`
}

// SessionConfig configures the encrypted session file.
type SessionConfig struct {
	File    string `yaml:"file"`
	KeyFile string `yaml:"key_file"`
	Secret  string `yaml:"secret"`
	TTL     string `yaml:"ttl"`
}

// NLPConfig configures intent classification.
type NLPConfig struct {
	Provider string                   `yaml:"provider"` // keyword, openai, gemini
	APIKey   string                   `yaml:"api_key"`
	Model    string                   `yaml:"model"`
	BaseURL  string                   `yaml:"base_url"`
	Timeout  string                   `yaml:"timeout"`
	Intents  []perception.IntentEntry `yaml:"intents,omitempty"` // layered over the built-in table
}

// AutomationConfig configures the write workflows.
type AutomationConfig struct {
	AmbiguityPolicy string `yaml:"ambiguity_policy"` // first, exact, reject
}

// DirectoryConfig configures the user directory cache. An empty RedisURL
// keeps the cache in memory; a TTL of 0 means the process lifetime.
type DirectoryConfig struct {
	TTL       string `yaml:"ttl"`
	RedisURL  string `yaml:"redis_url"`
	Namespace string `yaml:"namespace"`
}

// HistoryConfig configures the SQLite command log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	MaxRows int    `yaml:"max_rows"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // console, json
	File       string          `yaml:"file"`
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// ServerConfig configures `zentao serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Zentao: ZentaoConfig{
			APIPrefix:      "/api.php/v1",
			Timeout:        "30s",
			RetryTimes:     3,
			RetryBackoff:   "1s",
			PageLimit:      100,
			DirectoryLimit: 1000,
		},
		Session: SessionConfig{
			File:    ".zentao/session.enc",
			KeyFile: ".zentao/session.key",
			TTL:     "24h",
		},
		NLP: NLPConfig{
			Provider: "keyword",
			Timeout:  "3s",
		},
		Automation: AutomationConfig{
			AmbiguityPolicy: string(automation.PolicyFirst),
		},
		Directory: DirectoryConfig{
			TTL:       "0s",
			Namespace: "default",
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    ".zentao/history.db",
			MaxRows: 1000,
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8080",
		},
	}
}

// Load reads path over the defaults and applies .env and environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	loadDotEnv()
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
		logging.Boot("loaded config from %s", path)
	case os.IsNotExist(err):
		logging.BootDebug("no config at %s, using defaults", path)
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports the first configuration problem.
func (c *Config) Validate() error {
	if c.Zentao.BaseURL == "" {
		return fmt.Errorf("zentao.base_url not configured (set ZENTAO_BASE_URL)")
	}
	u, err := url.Parse(c.Zentao.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid zentao.base_url: %q", c.Zentao.BaseURL)
	}

	if !contains(perception.ValidProviders, c.NLP.Provider) {
		return fmt.Errorf("invalid nlp.provider: %s (valid: %v)", c.NLP.Provider, perception.ValidProviders)
	}
	if c.NLP.Provider != "keyword" && c.NLP.APIKey == "" {
		return fmt.Errorf("nlp.provider %s needs an API key (set OPENAI_API_KEY or GEMINI_API_KEY)", c.NLP.Provider)
	}
	for _, e := range c.NLP.Intents {
		if e.Label == "" || e.Label == perception.IntentUnknown {
			return fmt.Errorf("invalid nlp.intents label %q", e.Label)
		}
	}

	policy := automation.AmbiguityPolicy(c.Automation.AmbiguityPolicy)
	valid := false
	for _, p := range automation.ValidPolicies {
		if p == policy {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid automation.ambiguity_policy: %s (valid: %v)", policy, automation.ValidPolicies)
	}

	if c.Logging.Format != "" && c.Logging.Format != "console" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging.format: %s (valid: console, json)", c.Logging.Format)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}

// GetTimeout returns the per-call tracker timeout.
func (c *Config) GetTimeout() time.Duration { return parseDuration(c.Zentao.Timeout, 30*time.Second) }

// GetRetryBackoff returns the base retry backoff.
func (c *Config) GetRetryBackoff() time.Duration {
	return parseDuration(c.Zentao.RetryBackoff, time.Second)
}

// GetSessionTTL returns how long a saved login stays valid.
func (c *Config) GetSessionTTL() time.Duration { return parseDuration(c.Session.TTL, 24*time.Hour) }

// GetDirectoryTTL returns the user directory cache lifetime; 0 means the process lifetime.
func (c *Config) GetDirectoryTTL() time.Duration { return parseDuration(c.Directory.TTL, 0) }

// GetNLPTimeout returns the external classifier timeout.
func (c *Config) GetNLPTimeout() time.Duration { return parseDuration(c.NLP.Timeout, 3*time.Second) }

// ClientConfig converts the tracker settings for zentao.NewClient. The
// directory cache is left for the caller to attach.
func (c *Config) ClientConfig() zentao.Config {
	cfg := zentao.DefaultConfig(c.Zentao.BaseURL)
	if c.Zentao.APIPrefix != "" {
		cfg.APIPrefix = c.Zentao.APIPrefix
	}
	cfg.Timeout = c.GetTimeout()
	cfg.RetryTimes = c.Zentao.RetryTimes
	cfg.RetryBackoff = c.GetRetryBackoff()
	cfg.PageLimit = c.Zentao.PageLimit
	cfg.DirectoryLimit = c.Zentao.DirectoryLimit
	return cfg
}

// ClassifierConfig converts the NLP settings for perception.NewClassifier.
func (c *Config) ClassifierConfig() perception.ClassifierConfig {
	return perception.ClassifierConfig{
		Provider: c.NLP.Provider,
		APIKey:   c.NLP.APIKey,
		Model:    c.NLP.Model,
		BaseURL:  c.NLP.BaseURL,
		Timeout:  c.GetNLPTimeout(),
	}
}

// IntentTable layers nlp.intents over the built-in keyword table.
func (c *Config) IntentTable() perception.IntentTable {
	table := perception.DefaultIntentTable()
	for _, e := range c.NLP.Intents {
		table = table.With(e.Label, e.Keywords...)
	}
	return table
}

// LoggingOptions converts the logging settings for logging.Initialize.
func (c *Config) LoggingOptions() logging.Options {
	return logging.Options{
		Level:      c.Logging.Level,
		Format:     c.Logging.Format,
		File:       c.Logging.File,
		DebugMode:  c.Logging.DebugMode,
		Categories: c.Logging.Categories,
	}
}
