package perception

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"zentaohelper/internal/logging"
)

// intentChoice is the JSON shape an LLM must answer with.
type intentChoice struct {
	Intent string `json:"intent" jsonschema:"description=One of the listed intent labels"`
}

// ExternalClassifier asks an LLM for the label and falls back to keyword
// classification whenever the answer is missing, late, or not a known label.
type ExternalClassifier struct {
	completer Completer
	fallback  *KeywordClassifier
	timeout   time.Duration
}

// NewExternalClassifier wraps completer; a nil completer always falls back.
func NewExternalClassifier(completer Completer, fallback *KeywordClassifier, timeout time.Duration) *ExternalClassifier {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &ExternalClassifier{completer: completer, fallback: fallback, timeout: timeout}
}

func (c *ExternalClassifier) Classify(ctx context.Context, text string) IntentLabel {
	if c.completer == nil {
		return c.fallback.Classify(ctx, text)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	timer := logging.StartTimer(logging.CategoryPerception, "external classification")
	raw, err := c.completer.Complete(ctx, c.systemPrompt(), text)
	timer.StopWithThreshold(c.timeout / 2)
	if err != nil {
		logging.PerceptionWarn("external classifier failed, using keywords: %v", err)
		return c.fallback.Classify(ctx, text)
	}

	label, err := c.parse(raw)
	if err != nil {
		logging.PerceptionWarn("external classifier answer rejected, using keywords: %v", err)
		return c.fallback.Classify(ctx, text)
	}
	logging.PerceptionDebug("external classification %s", label)
	return label
}

func (c *ExternalClassifier) parse(raw string) (IntentLabel, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var choice intentChoice
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &choice); err != nil {
		return "", fmt.Errorf("invalid JSON %q: %w", raw, err)
	}
	label := IntentLabel(strings.TrimSpace(choice.Intent))
	if !c.fallback.Table().Has(label) {
		return "", fmt.Errorf("label %q is not a configured intent", label)
	}
	return label, nil
}

func (c *ExternalClassifier) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You classify short Chinese or English commands for the ZenTao project tracker.\n")
	sb.WriteString("Choose exactly one intent label from this list (example keywords in parentheses):\n")
	for _, e := range c.fallback.Table().Entries() {
		fmt.Fprintf(&sb, "- %s (%s)\n", e.Label, strings.Join(e.Keywords, ", "))
	}
	sb.WriteString(`Answer with JSON only: {"intent": "<label>"}`)
	return sb.String()
}
