// Package collectors implements the read-side queries: the caller's stories
// and tasks, plus their text rendering.
package collectors

import (
	"context"
	"fmt"
	"strings"

	"zentaohelper/internal/logging"
	"zentaohelper/internal/zentao"
)

// StorySource is the slice of the tracker client the story collector needs.
type StorySource interface {
	ListMyStories(ctx context.Context, status string) (*zentao.StoryList, error)
}

// TaskSource is the slice of the tracker client the task collector needs.
type TaskSource interface {
	ListMyTasks(ctx context.Context, status string) (*zentao.TaskList, error)
}

// StoryReport is the result of one story query.
type StoryReport struct {
	Stories []zentao.Story `json:"stories"`
	Total   int            `json:"total"`
	Count   int            `json:"count"`
}

// TaskReport is the result of one task query.
type TaskReport struct {
	Tasks []zentao.Task `json:"tasks"`
	Total int           `json:"total"`
	Count int           `json:"count"`
}

// StoryCollector lists stories assigned to the caller.
type StoryCollector struct {
	source StorySource
}

func NewStoryCollector(source StorySource) *StoryCollector {
	return &StoryCollector{source: source}
}

// Collect fetches stories; an empty status means all.
func (c *StoryCollector) Collect(ctx context.Context, status string) (*StoryReport, error) {
	logging.Get(logging.CategoryAPI).Info("collecting stories status=%q", status)
	list, err := c.source.ListMyStories(ctx, status)
	if err != nil {
		return nil, err
	}
	return &StoryReport{Stories: list.Stories, Total: list.Total, Count: len(list.Stories)}, nil
}

var storyStatusNames = map[string]string{
	"draft":   "草稿",
	"active":  "激活",
	"closed":  "已关闭",
	"changed": "已变更",
}

// Format renders a story report.
func (c *StoryCollector) Format(report *StoryReport) string {
	if report == nil || len(report.Stories) == 0 {
		return "暂无需求"
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "需求列表 (共 %d 个):\n", report.Total)
	for _, s := range report.Stories {
		status := storyStatusNames[s.Status]
		if status == "" {
			status = s.Status
		}
		fmt.Fprintf(&sb, "  #%d - %s\n", s.ID, s.Title)
		fmt.Fprintf(&sb, "    状态: %s | 优先级: %d\n", status, s.Priority)
		if s.AssignedTo != nil {
			fmt.Fprintf(&sb, "    指派给: %s\n", s.AssignedTo.DisplayName())
		}
		if s.Module != 0 {
			fmt.Fprintf(&sb, "    模块: %d\n", s.Module)
		}
	}
	return sb.String()
}

// TaskCollector lists tasks assigned to the caller.
type TaskCollector struct {
	source TaskSource
}

func NewTaskCollector(source TaskSource) *TaskCollector {
	return &TaskCollector{source: source}
}

// Collect fetches tasks; an empty status means all.
func (c *TaskCollector) Collect(ctx context.Context, status string) (*TaskReport, error) {
	logging.Get(logging.CategoryAPI).Info("collecting tasks status=%q", status)
	list, err := c.source.ListMyTasks(ctx, status)
	if err != nil {
		return nil, err
	}
	return &TaskReport{Tasks: list.Tasks, Total: list.Total, Count: len(list.Tasks)}, nil
}

// taskGroups fixes the display order of status groups.
var taskGroups = []struct {
	status string
	name   string
}{
	{"wait", "待办"},
	{"doing", "进行中"},
	{"done", "已完成"},
	{"closed", "已关闭"},
	{"", "其他"},
}

// Format renders a task report grouped by status.
func (c *TaskCollector) Format(report *TaskReport) string {
	if report == nil || len(report.Tasks) == 0 {
		return "暂无任务"
	}

	grouped := make(map[string][]zentao.Task)
	for _, t := range report.Tasks {
		key := t.Status
		switch key {
		case "wait", "doing", "done", "closed":
		default:
			key = ""
		}
		grouped[key] = append(grouped[key], t)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "任务列表 (共 %d 个):\n", report.Total)
	for _, g := range taskGroups {
		tasks := grouped[g.status]
		if len(tasks) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "\n  [%s] (%d 个)\n", g.name, len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(&sb, "    #%d - %s\n", t.ID, t.Title)
			fmt.Fprintf(&sb, "      类型: %s | 优先级: %d\n", t.Type, t.Priority)
			if t.AssignedTo != nil {
				fmt.Fprintf(&sb, "      指派给: %s\n", t.AssignedTo.DisplayName())
			}
			var hours []string
			if t.Estimate > 0 {
				hours = append(hours, fmt.Sprintf("预估: %gh", t.Estimate))
			}
			if t.Left > 0 {
				hours = append(hours, fmt.Sprintf("剩余: %gh", t.Left))
			}
			if len(hours) > 0 {
				fmt.Fprintf(&sb, "      %s\n", strings.Join(hours, " | "))
			}
		}
	}
	return sb.String()
}
