// Package automation holds the multi-step write workflows: splitting a task
// into subtasks and reassigning a task.
package automation

import (
	"context"
	"strconv"
	"strings"

	"zentaohelper/internal/types"
	"zentaohelper/internal/zentao"
)

// Tracker is the slice of the tracker client the workflows drive.
type Tracker interface {
	CurrentUser(ctx context.Context) (*zentao.User, error)
	GetTask(ctx context.Context, id int) (*zentao.Task, error)
	CreateTask(ctx context.Context, in zentao.CreateTaskInput) (*zentao.Task, error)
	AssignTask(ctx context.Context, id int, account string) error
	SearchUsers(ctx context.Context, keyword string) ([]zentao.User, error)
}

// parseTaskID validates a task id taken from user input.
func parseTaskID(raw, missing string) (int, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#"))
	if raw == "" {
		return 0, types.New(types.CodeMissingParameter, missing)
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, types.Newf(types.CodeInvalidParameter, "任务ID格式错误: %s", raw)
	}
	return id, nil
}

// describe renders err for a result line, keeping the server's reason.
func describe(err error) string {
	te, ok := types.As(err)
	if !ok {
		return err.Error()
	}
	if te.Err != nil && te.Code == types.CodeAPIError {
		return te.Message + ": " + te.Err.Error()
	}
	return te.Message
}

// lookupTask treats a nil task as missing; client errors pass through.
func lookupTask(ctx context.Context, tracker Tracker, id int) (*zentao.Task, error) {
	task, err := tracker.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, types.Newf(types.CodeTaskNotFound, "任务 #%d 不存在或无权访问", id)
	}
	return task, nil
}
