package automation

import (
	"context"
	"fmt"
	"strings"

	"zentaohelper/internal/logging"
	"zentaohelper/internal/perception"
	"zentaohelper/internal/prompt"
	"zentaohelper/internal/types"
	"zentaohelper/internal/zentao"
)

// SplitRequest asks for ParentTaskID to be split. SubtaskNames may be empty,
// in which case names are taken from RawText or asked for.
type SplitRequest struct {
	ParentTaskID string
	SubtaskNames []string
	RawText      string
}

// CreatedSubtask is a subtask the tracker accepted. Index is 1-based.
type CreatedSubtask struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// FailedSubtask is a subtask the tracker rejected. Index is 1-based.
type FailedSubtask struct {
	Name  string          `json:"name"`
	Index int             `json:"index"`
	Code  types.ErrorCode `json:"code"`
	Error string          `json:"error"`
}

// SplitResult reports every requested subtask exactly once.
type SplitResult struct {
	ParentTaskID int              `json:"parent_task_id"`
	ParentTitle  string           `json:"parent_title,omitempty"`
	Created      []CreatedSubtask `json:"created_tasks"`
	Failed       []FailedSubtask  `json:"failed_tasks"`
}

func (r *SplitResult) SuccessCount() int { return len(r.Created) }
func (r *SplitResult) FailCount() int    { return len(r.Failed) }

// TaskSplitter creates subtasks under an existing task. Creation is
// best-effort: each subtask stands alone and nothing is rolled back.
type TaskSplitter struct {
	tracker  Tracker
	prompter prompt.Prompter
}

// NewTaskSplitter creates a splitter; a nil prompter disables prompting.
func NewTaskSplitter(tracker Tracker, prompter prompt.Prompter) *TaskSplitter {
	if prompter == nil {
		prompter = prompt.Disabled{}
	}
	return &TaskSplitter{tracker: tracker, prompter: prompter}
}

// Execute splits the parent task. It fails only when nothing was created.
func (s *TaskSplitter) Execute(ctx context.Context, req SplitRequest) (*SplitResult, error) {
	parentID, err := parseTaskID(req.ParentTaskID, "请指定要拆解的任务ID，例如：拆解任务#123")
	if err != nil {
		return nil, err
	}

	parent, err := lookupTask(ctx, s.tracker, parentID)
	if err != nil {
		return nil, err
	}

	names := s.resolveNames(ctx, req)
	if len(names) == 0 {
		return nil, types.New(types.CodeMissingParameter, "未提供子任务名称，拆解已取消")
	}

	assignee := ""
	if me, err := s.tracker.CurrentUser(ctx); err == nil {
		assignee = me.Account
	} else {
		logging.AutomationWarn("could not resolve current user, subtasks stay unassigned: %v", err)
	}

	logging.Automation("splitting task #%d %q into %d subtasks", parentID, parent.Title, len(names))
	result := &SplitResult{ParentTaskID: parentID, ParentTitle: parent.Title}
	for i, name := range names {
		index := i + 1
		task, err := s.tracker.CreateTask(ctx, zentao.CreateTaskInput{Name: name, AssignedTo: assignee, Parent: parentID})
		if err != nil {
			logging.AutomationWarn("subtask %d %q failed: %v", index, name, err)
			result.Failed = append(result.Failed, FailedSubtask{Name: name, Index: index, Code: types.CodeOf(err), Error: describe(err)})
			continue
		}
		result.Created = append(result.Created, CreatedSubtask{ID: task.ID, Name: name, Index: index})
	}

	logging.Automation("split task #%d: %d created, %d failed", parentID, len(result.Created), len(result.Failed))
	if len(result.Created) == 0 {
		return nil, types.New(types.CodeAPIError, "拆解失败，所有子任务创建失败").WithDetails(result.Failed)
	}
	return result, nil
}

// resolveNames prefers explicit names, then names in the text, then a prompt.
func (s *TaskSplitter) resolveNames(ctx context.Context, req SplitRequest) []string {
	if names := cleanNames(req.SubtaskNames); len(names) > 0 {
		return names
	}
	if names := perception.ExtractSubtaskNames(req.RawText); len(names) > 0 {
		return names
	}
	lines, err := s.prompter.ReadLines(ctx, "请输入子任务名称")
	if err != nil {
		logging.AutomationDebug("subtask prompt ended: %v", err)
		return nil
	}
	return cleanNames(lines)
}

func cleanNames(names []string) []string {
	var out []string
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Format renders a split result.
func (s *TaskSplitter) Format(r *SplitResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "任务拆解结果 (父任务: #%d)\n", r.ParentTaskID)
	fmt.Fprintf(&sb, "成功: %d 个 | 失败: %d 个\n\n", r.SuccessCount(), r.FailCount())
	if len(r.Created) > 0 {
		sb.WriteString("成功创建的子任务:\n")
		for _, c := range r.Created {
			fmt.Fprintf(&sb, "  %d. #%d - %s\n", c.Index, c.ID, c.Name)
		}
		sb.WriteString("\n")
	}
	if len(r.Failed) > 0 {
		sb.WriteString("创建失败的子任务:\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&sb, "  %d. %s - %s\n", f.Index, f.Name, f.Error)
		}
	}
	return sb.String()
}
