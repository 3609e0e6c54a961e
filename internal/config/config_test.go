package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentaohelper/internal/perception"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ZENTAO_BASE_URL", "ZENTAO_ACCOUNT", "ZENTAO_PASSWORD", "ZENTAO_SESSION_SECRET",
		"ZENTAO_NLP_PROVIDER", "OPENAI_API_KEY", "GEMINI_API_KEY", "REDIS_URL", "ZENTAO_HISTORY_DB",
	} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadMissingFileGivesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
	assert.Equal(t, 24*time.Hour, cfg.GetSessionTTL())
	assert.Zero(t, cfg.GetDirectoryTTL())
}

func TestLoadOverlaysFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
zentao:
  base_url: https://zentao.example.com
  timeout: 10s
automation:
  ambiguity_policy: exact
nlp:
  intents:
    - label: query_tasks
      keywords: [任务, 活儿]
    - label: query_bugs
      keywords: [缺陷, bug]
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://zentao.example.com", cfg.Zentao.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.GetTimeout())
	assert.Equal(t, 3, cfg.Zentao.RetryTimes, "unset keys keep defaults")

	table := cfg.IntentTable()
	assert.Equal(t, []string{"任务", "活儿"}, table.Keywords(perception.IntentQueryTasks))
	assert.True(t, table.Has("query_bugs"))
	assert.True(t, table.Has(perception.IntentSplitTask))
	assert.False(t, perception.DefaultIntentTable().Has("query_bugs"))
}

func TestLoadRejectsBadYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeConfig(t, "zentao: [unclosed"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ZENTAO_BASE_URL", "http://env.example.com")
	t.Setenv("ZENTAO_ACCOUNT", "admin")
	t.Setenv("ZENTAO_PASSWORD", "secret")
	t.Setenv("ZENTAO_SESSION_SECRET", "s3")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ZENTAO_HISTORY_DB", "/tmp/h.db")

	cfg, err := Load(writeConfig(t, "zentao:\n  base_url: http://file.example.com\n"))
	require.NoError(t, err)
	assert.Equal(t, "http://env.example.com", cfg.Zentao.BaseURL)
	assert.Equal(t, "admin", cfg.Zentao.Account)
	assert.Equal(t, "secret", cfg.Zentao.Password)
	assert.Equal(t, "s3", cfg.Session.Secret)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Directory.RedisURL)
	assert.Equal(t, "/tmp/h.db", cfg.History.Path)
}

func TestEnvAPIKeysFollowProvider(t *testing.T) {
	t.Run("keyword ignores keys", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("OPENAI_API_KEY", "oa")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "keyword", cfg.NLP.Provider)
		assert.Empty(t, cfg.NLP.APIKey)
	})

	t.Run("openai", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("ZENTAO_NLP_PROVIDER", "openai")
		t.Setenv("OPENAI_API_KEY", "oa")
		t.Setenv("GEMINI_API_KEY", "gm")
		cfg := DefaultConfig()
		cfg.applyEnvOverrides()
		assert.Equal(t, "oa", cfg.NLP.APIKey)
	})

	t.Run("gemini", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("GEMINI_API_KEY", "gm")
		cfg := DefaultConfig()
		cfg.NLP.Provider = "gemini"
		cfg.applyEnvOverrides()
		assert.Equal(t, "gm", cfg.NLP.APIKey)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Zentao.BaseURL = "https://zentao.example.com"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing base url", func(c *Config) { c.Zentao.BaseURL = "" }},
		{"relative base url", func(c *Config) { c.Zentao.BaseURL = "zentao.local" }},
		{"unknown provider", func(c *Config) { c.NLP.Provider = "claude" }},
		{"provider without key", func(c *Config) { c.NLP.Provider = "openai" }},
		{"unknown intent label", func(c *Config) {
			c.NLP.Intents = []perception.IntentEntry{{Label: perception.IntentUnknown, Keywords: []string{"x"}}}
		}},
		{"bad policy", func(c *Config) { c.Automation.AmbiguityPolicy = "random" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	cfg := DefaultConfig()
	cfg.Zentao.BaseURL = "https://zentao.example.com"
	cfg.NLP.Intents = []perception.IntentEntry{{Label: perception.IntentHelp, Keywords: []string{"帮帮我"}}}
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestClientAndClassifierConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Zentao.BaseURL = "https://zentao.example.com"
	cfg.Zentao.Timeout = "5s"
	cfg.Zentao.RetryBackoff = "bogus"

	cc := cfg.ClientConfig()
	assert.Equal(t, "https://zentao.example.com", cc.BaseURL)
	assert.Equal(t, "/api.php/v1", cc.APIPrefix)
	assert.Equal(t, 5*time.Second, cc.Timeout)
	assert.Equal(t, time.Second, cc.RetryBackoff)

	nc := cfg.ClassifierConfig()
	assert.Equal(t, "keyword", nc.Provider)
	assert.Equal(t, 3*time.Second, nc.Timeout)
}
