package perception

import (
	"context"
	"strings"

	"zentaohelper/internal/logging"
)

// IntentLabel is the closed set of things a user can ask for.
type IntentLabel string

const (
	IntentQueryStories IntentLabel = "query_stories"
	IntentQueryTasks   IntentLabel = "query_tasks"
	IntentSplitTask    IntentLabel = "split_task"
	IntentAssignTask   IntentLabel = "assign_task"
	IntentHelp         IntentLabel = "help"
	IntentUnknown      IntentLabel = "unknown"
)

// IntentEntry binds a label to the keywords that vote for it.
type IntentEntry struct {
	Label    IntentLabel `yaml:"label" json:"label"`
	Keywords []string    `yaml:"keywords" json:"keywords"`
}

// IntentTable is an immutable keyword configuration. Extending it returns a
// new table; existing holders never observe the change.
type IntentTable struct {
	entries []IntentEntry
}

// DefaultIntentTable returns the built-in keyword lists.
func DefaultIntentTable() IntentTable {
	return NewIntentTable(
		IntentEntry{IntentQueryStories, []string{"需求", "story", "需求列表", "我的需求", "显示需求", "查看需求", "展示需求", "stories"}},
		IntentEntry{IntentQueryTasks, []string{"任务", "task", "任务列表", "我的任务", "显示任务", "查看任务", "展示任务", "tasks"}},
		IntentEntry{IntentSplitTask, []string{"拆解", "分解", "split", "拆分", "拆成", "拆分为", "拆解成", "分解成", "拆解任务", "拆分任务", "分解任务", "split task"}},
		IntentEntry{IntentAssignTask, []string{"分配", "指派", "assign", "给", "指派给", "分配给", "分配任务", "指派任务", "assign task"}},
		IntentEntry{IntentHelp, []string{"帮助", "help", "怎么用", "能做什么", "支持什么", "如何使用"}},
	)
}

// NewIntentTable copies entries into a new table. A repeated label keeps its
// first position and takes the later keywords.
func NewIntentTable(entries ...IntentEntry) IntentTable {
	var t IntentTable
	for _, e := range entries {
		t = t.With(e.Label, e.Keywords...)
	}
	return t
}

// With returns a table where label votes with keywords, replacing any previous list.
func (t IntentTable) With(label IntentLabel, keywords ...string) IntentTable {
	kw := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.TrimSpace(k); k != "" {
			kw = append(kw, k)
		}
	}
	next := make([]IntentEntry, 0, len(t.entries)+1)
	replaced := false
	for _, e := range t.entries {
		if e.Label == label {
			next = append(next, IntentEntry{Label: label, Keywords: kw})
			replaced = true
			continue
		}
		next = append(next, e)
	}
	if !replaced {
		next = append(next, IntentEntry{Label: label, Keywords: kw})
	}
	return IntentTable{entries: next}
}

// Labels lists the table's labels in order.
func (t IntentTable) Labels() []IntentLabel {
	labels := make([]IntentLabel, len(t.entries))
	for i, e := range t.entries {
		labels[i] = e.Label
	}
	return labels
}

// Has reports whether label is part of the table.
func (t IntentTable) Has(label IntentLabel) bool {
	for _, e := range t.entries {
		if e.Label == label {
			return true
		}
	}
	return false
}

// Keywords returns a copy of label's keywords.
func (t IntentTable) Keywords(label IntentLabel) []string {
	for _, e := range t.entries {
		if e.Label == label {
			return append([]string(nil), e.Keywords...)
		}
	}
	return nil
}

// Entries returns a deep copy of the table.
func (t IntentTable) Entries() []IntentEntry {
	out := make([]IntentEntry, len(t.entries))
	for i, e := range t.entries {
		out[i] = IntentEntry{Label: e.Label, Keywords: append([]string(nil), e.Keywords...)}
	}
	return out
}

// Classifier maps an utterance to exactly one label.
type Classifier interface {
	Classify(ctx context.Context, text string) IntentLabel
}

// KeywordClassifier scores each intent by how many of its keywords occur in
// the text. The strictly greatest score wins; a tie at the top or an all-zero
// score yields IntentUnknown.
type KeywordClassifier struct {
	table IntentTable
}

// NewKeywordClassifier binds a classifier to table.
func NewKeywordClassifier(table IntentTable) *KeywordClassifier {
	return &KeywordClassifier{table: table}
}

// Table returns the classifier's keyword configuration.
func (c *KeywordClassifier) Table() IntentTable { return c.table }

// Score returns the keyword hit count per intent.
func (c *KeywordClassifier) Score(text string) map[IntentLabel]int {
	lower := strings.ToLower(text)
	scores := make(map[IntentLabel]int, len(c.table.entries))
	for _, e := range c.table.entries {
		n := 0
		for _, kw := range e.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				n++
			}
		}
		scores[e.Label] = n
	}
	return scores
}

func (c *KeywordClassifier) Classify(_ context.Context, text string) IntentLabel {
	scores := c.Score(text)
	best, bestScore, tied := IntentUnknown, 0, false
	for _, e := range c.table.entries {
		score := scores[e.Label]
		switch {
		case score > bestScore:
			best, bestScore, tied = e.Label, score, false
		case score == bestScore && score > 0:
			tied = true
		}
	}
	if bestScore == 0 || tied {
		logging.PerceptionDebug("keyword classification inconclusive (best=%d tied=%v): %q", bestScore, tied, text)
		return IntentUnknown
	}
	logging.PerceptionDebug("keyword classification %s (score=%d)", best, bestScore)
	return best
}
