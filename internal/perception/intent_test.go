package perception

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifierDefaults(t *testing.T) {
	c := NewKeywordClassifier(DefaultIntentTable())
	ctx := context.Background()

	tests := []struct {
		text string
		want IntentLabel
	}{
		{"拆解任务#123为前端开发和后端开发", IntentSplitTask},
		{"把任务#456分配给张三", IntentAssignTask},
		{"指派任务#789给wangxiaoming", IntentAssignTask},
		{"查看我的任务", IntentQueryTasks},
		{"Show my TASKS", IntentQueryTasks},
		{"查看我的需求", IntentQueryStories},
		{"显示进行中的需求", IntentQueryStories},
		{"split task 12 into a, b", IntentSplitTask},
		{"帮助", IntentHelp},
		{"你好", IntentUnknown},
		{"", IntentUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(ctx, tt.text))
		})
	}
}

func TestKeywordClassifierTieIsUnknown(t *testing.T) {
	table := NewIntentTable(
		IntentEntry{IntentQueryTasks, []string{"任务"}},
		IntentEntry{IntentSplitTask, []string{"拆解"}},
	)
	c := NewKeywordClassifier(table)

	assert.Equal(t, map[IntentLabel]int{IntentQueryTasks: 1, IntentSplitTask: 1}, c.Score("拆解任务"))
	assert.Equal(t, IntentUnknown, c.Classify(context.Background(), "拆解任务"))
	assert.Equal(t, IntentSplitTask, c.Classify(context.Background(), "拆解"))
}

func TestKeywordClassifierDeterministic(t *testing.T) {
	c := NewKeywordClassifier(DefaultIntentTable())
	text := "把任务#456分配给张三"
	first := c.Classify(context.Background(), text)
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, c.Classify(context.Background(), text))
	}
}

func TestIntentTableWithIsImmutable(t *testing.T) {
	base := DefaultIntentTable()
	before := base.Entries()

	extended := base.With("close_task", "关闭任务", "close")
	replaced := extended.With(IntentHelp, "救命")

	assert.Equal(t, before, base.Entries())
	assert.False(t, base.Has("close_task"))
	assert.True(t, extended.Has("close_task"))
	assert.Equal(t, []string{"关闭任务", "close"}, extended.Keywords("close_task"))
	assert.Equal(t, []string{"救命"}, replaced.Keywords(IntentHelp))
	assert.Equal(t, len(extended.Labels()), len(replaced.Labels()))

	entries := extended.Entries()
	entries[0].Keywords[0] = "mutated"
	assert.NotEqual(t, "mutated", extended.Keywords(entries[0].Label)[0])
}

func TestIntentTableClassifiesNewIntent(t *testing.T) {
	table := DefaultIntentTable().With("close_task", "关闭任务", "关掉")
	c := NewKeywordClassifier(table)
	assert.Equal(t, IntentLabel("close_task"), c.Classify(context.Background(), "关掉 #3"))
}

func TestNewIntentTableDropsBlankKeywords(t *testing.T) {
	table := NewIntentTable(IntentEntry{IntentHelp, []string{" ", "help", ""}})
	require.Equal(t, []IntentLabel{IntentHelp}, table.Labels())
	assert.Equal(t, []string{"help"}, table.Keywords(IntentHelp))
}
