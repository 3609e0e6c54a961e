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

// AmbiguityPolicy decides what happens when a user search matches several accounts.
type AmbiguityPolicy string

const (
	PolicyFirst  AmbiguityPolicy = "first"  // take the first search result
	PolicyExact  AmbiguityPolicy = "exact"  // prefer an exact account/realname match, else first
	PolicyReject AmbiguityPolicy = "reject" // fail with InvalidParameter
)

// ValidPolicies lists the accepted policies.
var ValidPolicies = []AmbiguityPolicy{PolicyFirst, PolicyExact, PolicyReject}

// Resolution records how the assignee was chosen.
type Resolution string

const (
	ResolvedAsGiven   Resolution = "as_given"
	ResolvedUnique    Resolution = "unique_match"
	ResolvedExact     Resolution = "exact_match"
	ResolvedAmbiguous Resolution = "first_of_many"
)

// AssignRequest asks for TaskID to be assigned to Username. Username may be
// empty, in which case it is taken from RawText or asked for.
type AssignRequest struct {
	TaskID   string
	Username string
	RawText  string
}

// AssignResult reports the account the task was assigned to. Snapshot is the
// task as re-read after the assignment and is nil when that read failed.
type AssignResult struct {
	TaskID     int          `json:"task_id"`
	AssignedTo string       `json:"assigned_to"`
	Resolution Resolution   `json:"resolution"`
	Candidates []string     `json:"candidates,omitempty"`
	Snapshot   *zentao.Task `json:"task,omitempty"`
}

// TaskAssigner reassigns a task after resolving the user name to an account.
type TaskAssigner struct {
	tracker  Tracker
	prompter prompt.Prompter
	policy   AmbiguityPolicy
}

// NewTaskAssigner creates an assigner; an empty policy means PolicyFirst.
func NewTaskAssigner(tracker Tracker, prompter prompt.Prompter, policy AmbiguityPolicy) *TaskAssigner {
	if prompter == nil {
		prompter = prompt.Disabled{}
	}
	if policy == "" {
		policy = PolicyFirst
	}
	return &TaskAssigner{tracker: tracker, prompter: prompter, policy: policy}
}

// Execute assigns the task.
func (a *TaskAssigner) Execute(ctx context.Context, req AssignRequest) (*AssignResult, error) {
	taskID, err := parseTaskID(req.TaskID, "请指定要分配的任务ID，例如：把任务#456分配给张三")
	if err != nil {
		return nil, err
	}

	username := a.resolveUsername(ctx, req)
	if username == "" {
		return nil, types.New(types.CodeMissingParameter, "请指定要分配的用户，分配已取消")
	}

	task, err := lookupTask(ctx, a.tracker, taskID)
	if err != nil {
		return nil, err
	}
	logging.Automation("assigning task #%d %q to %s", taskID, task.Title, username)

	account, resolution, candidates, err := a.disambiguate(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := a.tracker.AssignTask(ctx, taskID, account); err != nil {
		switch types.CodeOf(err) {
		case types.CodeTimeout, types.CodeSessionExpired, types.CodePermissionDenied:
			return nil, err
		}
		cause := err.Error()
		if te, ok := types.As(err); ok && te.Err != nil {
			cause = te.Err.Error()
		}
		return nil, types.Wrap(types.CodeAPIError, err, "分配任务失败: "+cause)
	}

	result := &AssignResult{TaskID: taskID, AssignedTo: account, Resolution: resolution, Candidates: candidates}
	if snapshot, err := a.tracker.GetTask(ctx, taskID); err == nil {
		result.Snapshot = snapshot
	} else {
		logging.AutomationWarn("task #%d assigned but re-fetch failed: %v", taskID, err)
	}
	return result, nil
}

func (a *TaskAssigner) resolveUsername(ctx context.Context, req AssignRequest) string {
	if name := strings.TrimSpace(req.Username); name != "" {
		return name
	}
	if name, ok := perception.ExtractUsername(req.RawText); ok {
		return name
	}
	name, err := a.prompter.ReadLine(ctx, "请输入要分配给的用户名")
	if err != nil {
		logging.AutomationDebug("username prompt ended: %v", err)
		return ""
	}
	return strings.TrimSpace(name)
}

// disambiguate maps a free-form name onto an account.
func (a *TaskAssigner) disambiguate(ctx context.Context, username string) (string, Resolution, []string, error) {
	matches, err := a.tracker.SearchUsers(ctx, username)
	if err != nil {
		logging.AutomationWarn("user search for %q failed, using it as the account: %v", username, err)
		return username, ResolvedAsGiven, nil, nil
	}

	switch len(matches) {
	case 0:
		logging.AutomationWarn("no user matches %q, using it as the account", username)
		return username, ResolvedAsGiven, nil, nil
	case 1:
		logging.Automation("resolved %q to %s", username, matches[0].Account)
		return matches[0].Account, ResolvedUnique, nil, nil
	}

	candidates := make([]string, len(matches))
	for i, u := range matches {
		candidates[i] = u.Account
	}

	switch a.policy {
	case PolicyReject:
		return "", "", candidates, types.Newf(types.CodeInvalidParameter,
			"用户 %q 匹配到多个账号: %s，请指定更准确的用户名", username, strings.Join(candidates, ", ")).WithDetails(candidates)
	case PolicyExact:
		for _, u := range matches {
			if strings.EqualFold(u.Account, username) || u.Realname == username {
				logging.Automation("resolved %q to %s by exact match among %v", username, u.Account, candidates)
				return u.Account, ResolvedExact, candidates, nil
			}
		}
	}
	logging.Automation("multiple users match %q %v, using %s", username, candidates, matches[0].Account)
	return matches[0].Account, ResolvedAmbiguous, candidates, nil
}

// Format renders an assignment result.
func (a *TaskAssigner) Format(r *AssignResult) string {
	var sb strings.Builder
	sb.WriteString("任务分配结果\n")
	fmt.Fprintf(&sb, "任务 #%d 已成功分配给: %s\n", r.TaskID, r.AssignedTo)
	if r.Resolution == ResolvedAmbiguous {
		fmt.Fprintf(&sb, "(匹配到多个用户: %s，已选择第一个)\n", strings.Join(r.Candidates, ", "))
	}
	if t := r.Snapshot; t != nil {
		sb.WriteString("\n任务信息:\n")
		fmt.Fprintf(&sb, "  标题: %s\n", t.Title)
		fmt.Fprintf(&sb, "  状态: %s\n", t.Status)
		fmt.Fprintf(&sb, "  类型: %s\n", t.Type)
	}
	return sb.String()
}
