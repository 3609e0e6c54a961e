package perception

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestParseScenarios(t *testing.T) {
	parser := NewCommandParser(NewKeywordClassifier(DefaultIntentTable()))

	tests := []struct {
		name string
		text string
		want ParsedCommand
	}{
		{
			name: "split with inline subtasks",
			text: "拆解任务#123为前端开发和后端开发",
			want: ParsedCommand{
				Intent:     IntentSplitTask,
				Entities:   EntityBag{TaskID: "123", SubtaskNames: []string{"前端开发", "后端开发"}},
				Raw:        "拆解任务#123为前端开发和后端开发",
				Confidence: DefaultConfidence,
			},
		},
		{
			name: "assign to a named user",
			text: "  把任务#456分配给张三 ",
			want: ParsedCommand{
				Intent:     IntentAssignTask,
				Entities:   EntityBag{TaskID: "456", Username: "张三"},
				Raw:        "把任务#456分配给张三",
				Confidence: DefaultConfidence,
			},
		},
		{
			name: "greeting",
			text: "你好",
			want: ParsedCommand{Intent: IntentUnknown, Raw: "你好", Confidence: DefaultConfidence},
		},
		{
			name: "status filter",
			text: "显示未开始的任务",
			want: ParsedCommand{
				Intent:     IntentQueryTasks,
				Entities:   EntityBag{Status: StatusWait},
				Raw:        "显示未开始的任务",
				Confidence: DefaultConfidence,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parser.Parse(context.Background(), tt.text)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Parse(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestHelpTextListsEveryFamily(t *testing.T) {
	help := NewCommandParser(NewKeywordClassifier(DefaultIntentTable())).HelpText()
	for _, section := range []string{"查看需求", "查看任务", "任务拆解", "任务分配", "帮助"} {
		assert.True(t, strings.Contains(help, "## "+section), section)
	}
}

func TestHelpExamplesClassifyAsTheirSection(t *testing.T) {
	c := NewKeywordClassifier(DefaultIntentTable())
	sections := map[string]IntentLabel{
		"查看需求": IntentQueryStories,
		"查看任务": IntentQueryTasks,
		"任务拆解": IntentSplitTask,
		"任务分配": IntentAssignTask,
		"帮助":   IntentHelp,
	}

	var current IntentLabel
	for _, line := range strings.Split(helpText, "\n") {
		switch {
		case strings.HasPrefix(line, "## "):
			current = sections[strings.TrimPrefix(line, "## ")]
		case strings.HasPrefix(line, "- ") && current != "":
			example := strings.TrimPrefix(line, "- ")
			assert.Equal(t, current, c.Classify(context.Background(), example), example)
		}
	}
}
