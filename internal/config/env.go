package config

import (
	"os"

	"github.com/joho/godotenv"

	"zentaohelper/internal/logging"
)

// loadDotEnv loads .env from the working directory. Variables already set
// in the environment win; a missing file is fine.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logging.BootWarn("failed to load .env: %v", err)
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("ZENTAO_BASE_URL"); v != "" {
		c.Zentao.BaseURL = v
	}
	if v := os.Getenv("ZENTAO_ACCOUNT"); v != "" {
		c.Zentao.Account = v
	}
	if v := os.Getenv("ZENTAO_PASSWORD"); v != "" {
		c.Zentao.Password = v
	}
	if v := os.Getenv("ZENTAO_SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}

	// API keys only fill in for the provider they belong to.
	if v := os.Getenv("ZENTAO_NLP_PROVIDER"); v != "" {
		c.NLP.Provider = v
	}
	switch c.NLP.Provider {
	case "openai":
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			c.NLP.APIKey = v
		}
	case "gemini":
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			c.NLP.APIKey = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Directory.RedisURL = v
	}
	if v := os.Getenv("ZENTAO_HISTORY_DB"); v != "" {
		c.History.Path = v
	}
}
