package perception

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTaskID(t *testing.T) {
	tests := []struct {
		text string
		want string
		ok   bool
	}{
		{"拆解任务#123为前端开发和后端开发", "123", true},
		{"把任务#456分配给张三", "456", true},
		{"task 42 please", "42", true},
		{"TASK#7", "7", true},
		{"查看 88号任务", "88", true},
		{"需求#5 然后 任务#6", "5", true},
		{"查看我的任务", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractTaskID(tt.text)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTaskIDHashProperty(t *testing.T) {
	for _, n := range []int{1, 9, 123, 4567, 98765} {
		for _, format := range []string{"#%d", "任务#%d", "请看一下 #%d 的进度", "把任务#%d分配给李四"} {
			text := fmt.Sprintf(format, n)
			got, ok := ExtractTaskID(text)
			assert.True(t, ok, text)
			assert.Equal(t, fmt.Sprint(n), got, text)
		}
	}
}

func TestExtractStoryID(t *testing.T) {
	got, ok := ExtractStoryID("查看需求#12")
	assert.True(t, ok)
	assert.Equal(t, "12", got)

	got, ok = ExtractStoryID("Story 31 status")
	assert.True(t, ok)
	assert.Equal(t, "31", got)

	got, ok = ExtractStoryID("9号需求")
	assert.True(t, ok)
	assert.Equal(t, "9", got)

	_, ok = ExtractStoryID("任务#9")
	assert.False(t, ok)
}

func TestExtractUsername(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"把任务#456分配给张三", "张三"},
		{"指派任务#789给wangxiaoming", "wangxiaoming"},
		{"@lisi 看一下任务#1", "lisi"},
		{"分配任务#123给 @lisi", "lisi"},
		{"指定 王五", "王五"},
		{"分配 zhao_liu", "zhao_liu"},
		{"指派张三给李四", "李四"},
		{"指定给 wangwu", "wangwu"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, ok := ExtractUsername(tt.text)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, ok := ExtractUsername("拆解任务#123为前端开发和后端开发")
	assert.False(t, ok)
}

func TestExtractSubtaskNames(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"拆解任务#123为前端开发和后端开发", []string{"前端开发", "后端开发"}},
		{"拆成设计、开发、测试", []string{"设计", "开发", "测试"}},
		{"拆分任务#123成A、B和C", []string{"A", "B", "C"}},
		{"分解为 接口 与 文档", []string{"接口", "文档"}},
		{"拆解成 ui,api，db", []string{"ui", "api", "db"}},
		{"split task 12 into backend, frontend", []string{"backend", "frontend"}},
		{"split task 5 into frontend and backend", []string{"frontend", "backend"}},
		{"Split into write docs, fix bugs and review", []string{"write docs", "fix bugs", "review"}},
		{"split task #9 into api, and ui", []string{"api", "ui"}},
		{"split task 7 into Android app AND iOS app", []string{"Android app", "iOS app"}},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractSubtaskNames(tt.text))
		})
	}
}

func TestExtractSubtaskNamesRequiresTrigger(t *testing.T) {
	for _, text := range []string{
		"前端开发和后端开发",
		"设计、开发、测试",
		"拆解任务#123",
		"查看我的任务",
	} {
		assert.Nil(t, ExtractSubtaskNames(text), text)
	}
}

func TestExtractStatusOrder(t *testing.T) {
	tests := []struct {
		text string
		want StatusLabel
	}{
		{"显示未开始的任务", StatusWait},
		{"我的待办", StatusWait},
		{"进行中的需求", StatusDoing},
		{"正在做的任务", StatusDoing},
		{"已完成的任务", StatusDone},
		{"已关闭的需求", StatusClosed},
		{"未完成", StatusDone},
	}
	for _, tt := range tests {
		got, ok := ExtractStatus(tt.text)
		assert.True(t, ok, tt.text)
		assert.Equal(t, tt.want, got, tt.text)
	}

	_, ok := ExtractStatus("查看我的任务")
	assert.False(t, ok)
}

func TestExtractAllIsPure(t *testing.T) {
	text := "把任务#456分配给张三"
	first := ExtractAll(text)
	second := ExtractAll(text)
	assert.Equal(t, first, second)
	assert.Equal(t, EntityBag{TaskID: "456", Username: "张三"}, first)
	assert.True(t, first.HasTaskID())
	assert.False(t, first.HasSubtasks())
}
