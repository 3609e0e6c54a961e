package perception

import (
	"context"
	"strings"
	"time"

	"zentaohelper/internal/logging"
)

// Completer is a single-shot LLM call used by ExternalClassifier.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// ClassifierConfig selects and tunes the classification strategy.
type ClassifierConfig struct {
	Provider string        // keyword, openai, gemini
	APIKey   string
	Model    string
	BaseURL  string        // OpenAI-compatible endpoints (e.g. DeepSeek)
	Timeout  time.Duration // per classification call
}

// DefaultClassifierConfig returns the keyword-only configuration.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{Provider: "keyword", Timeout: 3 * time.Second}
}

// ValidProviders lists the accepted provider names.
var ValidProviders = []string{"keyword", "openai", "gemini"}

// NewClassifier picks the strategy once. Misconfigured external providers
// degrade to keyword classification.
func NewClassifier(cfg ClassifierConfig, table IntentTable) Classifier {
	keyword := NewKeywordClassifier(table)

	var (
		completer Completer
		err       error
	)
	switch strings.ToLower(cfg.Provider) {
	case "", "keyword":
		return keyword
	case "openai":
		completer, err = NewOpenAICompleter(OpenAIConfig{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "gemini":
		completer, err = NewGeminiCompleter(context.Background(), GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model})
	default:
		logging.PerceptionWarn("unknown classifier provider %q, using keyword classification", cfg.Provider)
		return keyword
	}
	if err != nil {
		logging.PerceptionWarn("external classifier unavailable (%v), using keyword classification", err)
		return keyword
	}
	return NewExternalClassifier(completer, keyword, cfg.Timeout)
}
