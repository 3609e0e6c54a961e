package automation

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zentaohelper/internal/prompt"
	"zentaohelper/internal/types"
	"zentaohelper/internal/zentao"
)

func TestSplitCreatesSubtasksInOrder(t *testing.T) {
	tracker := newFakeTracker()
	s := NewTaskSplitter(tracker, nil)

	result, err := s.Execute(context.Background(), SplitRequest{
		ParentTaskID: "123",
		SubtaskNames: []string{"前端开发", " 后端开发 ", ""},
	})
	require.NoError(t, err)

	want := []zentao.CreateTaskInput{
		{Name: "前端开发", AssignedTo: "admin", Parent: 123},
		{Name: "后端开发", AssignedTo: "admin", Parent: 123},
	}
	if diff := cmp.Diff(want, tracker.created); diff != "" {
		t.Errorf("created mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "用户中心", result.ParentTitle)
	assert.Equal(t, []CreatedSubtask{{ID: 1001, Name: "前端开发", Index: 1}, {ID: 1002, Name: "后端开发", Index: 2}}, result.Created)
	assert.Empty(t, result.Failed)
}

func TestSplitTakesNamesFromRawText(t *testing.T) {
	tracker := newFakeTracker()
	result, err := NewTaskSplitter(tracker, nil).Execute(context.Background(), SplitRequest{
		ParentTaskID: "#123",
		RawText:      "拆解任务#123成设计、开发和测试",
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 3)
	assert.Equal(t, "测试", result.Created[2].Name)
}

func TestSplitPromptsForNames(t *testing.T) {
	tracker := newFakeTracker()
	p := &scriptedPrompter{lines: []string{"设计", "  ", "评审"}}
	result, err := NewTaskSplitter(tracker, p).Execute(context.Background(), SplitRequest{ParentTaskID: "123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"请输入子任务名称"}, p.asked)
	assert.Len(t, result.Created, 2)
}

func TestSplitCancelledMidPromptCreatesNothing(t *testing.T) {
	tracker := newFakeTracker()
	p := &scriptedPrompter{lines: []string{"设计"}, err: prompt.ErrCancelled}
	_, err := NewTaskSplitter(tracker, p).Execute(context.Background(), SplitRequest{ParentTaskID: "123"})
	assert.Equal(t, types.CodeMissingParameter, types.CodeOf(err))
	assert.Empty(t, tracker.created)
}

func TestSplitEnglishList(t *testing.T) {
	tracker := newFakeTracker()
	result, err := NewTaskSplitter(tracker, nil).Execute(context.Background(), SplitRequest{
		ParentTaskID: "123",
		RawText:      "split task 123 into frontend and backend",
	})
	require.NoError(t, err)
	assert.Equal(t, []CreatedSubtask{{ID: 1001, Name: "frontend", Index: 1}, {ID: 1002, Name: "backend", Index: 2}}, result.Created)
	assert.Len(t, tracker.created, 2)
}

func TestSplitPromptCancelled(t *testing.T) {
	tracker := newFakeTracker()
	_, err := NewTaskSplitter(tracker, prompt.Disabled{}).Execute(context.Background(), SplitRequest{ParentTaskID: "123"})
	assert.True(t, types.Is(err, types.CodeMissingParameter))
	assert.Empty(t, tracker.created)
}

func TestSplitValidatesParentID(t *testing.T) {
	s := NewTaskSplitter(newFakeTracker(), nil)

	_, err := s.Execute(context.Background(), SplitRequest{SubtaskNames: []string{"a"}})
	assert.True(t, types.Is(err, types.CodeMissingParameter))

	_, err = s.Execute(context.Background(), SplitRequest{ParentTaskID: "abc", SubtaskNames: []string{"a"}})
	assert.True(t, types.Is(err, types.CodeInvalidParameter))

	_, err = s.Execute(context.Background(), SplitRequest{ParentTaskID: "999", SubtaskNames: []string{"a"}})
	assert.True(t, types.Is(err, types.CodeTaskNotFound))
}

func TestSplitPartialFailure(t *testing.T) {
	tracker := newFakeTracker()
	tracker.failNames["后端开发"] = types.Wrap(types.CodeAPIError, errBoom, "创建任务失败")
	s := NewTaskSplitter(tracker, nil)

	result, err := s.Execute(context.Background(), SplitRequest{
		ParentTaskID: "123",
		SubtaskNames: []string{"前端开发", "后端开发", "测试"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SuccessCount())
	require.Equal(t, 1, result.FailCount())
	assert.Equal(t, FailedSubtask{Name: "后端开发", Index: 2, Code: types.CodeAPIError, Error: "创建任务失败: boom"}, result.Failed[0])

	out := s.Format(result)
	assert.Contains(t, out, "任务拆解结果 (父任务: #123)")
	assert.Contains(t, out, "成功: 2 个 | 失败: 1 个")
	assert.Contains(t, out, "  1. #1001 - 前端开发")
	assert.Contains(t, out, "  3. #1002 - 测试")
	assert.Contains(t, out, "  2. 后端开发 - 创建任务失败: boom")
}

func TestSplitAllFailed(t *testing.T) {
	tracker := newFakeTracker()
	tracker.failNames["a"] = types.New(types.CodeAPIError, "")
	tracker.failNames["b"] = types.New(types.CodeTimeout, "")

	_, err := NewTaskSplitter(tracker, nil).Execute(context.Background(), SplitRequest{
		ParentTaskID: "123",
		SubtaskNames: []string{"a", "b"},
	})
	te, ok := types.As(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeAPIError, te.Code)
	assert.Equal(t, "拆解失败，所有子任务创建失败", te.Message)
	failed, ok := te.Details.([]FailedSubtask)
	require.True(t, ok)
	assert.Equal(t, types.CodeTimeout, failed[1].Code)
}

func TestSplitWithoutIdentityLeavesSubtasksUnassigned(t *testing.T) {
	tracker := newFakeTracker()
	tracker.meErr = types.New(types.CodeAPIError, "")

	_, err := NewTaskSplitter(tracker, nil).Execute(context.Background(), SplitRequest{
		ParentTaskID: "123",
		SubtaskNames: []string{"前端开发"},
	})
	require.NoError(t, err)
	assert.Equal(t, "", tracker.created[0].AssignedTo)
}
