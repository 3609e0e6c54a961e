package zentao

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"

	"zentaohelper/internal/logging"
	"zentaohelper/internal/types"
)

// listContext fetches the caller's identity and the user directory together.
func (c *Client) listContext(ctx context.Context) (*User, *Directory, error) {
	var (
		me  *User
		dir *Directory
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := c.CurrentUser(gctx)
		me = u
		return err
	})
	g.Go(func() error {
		dir = c.directory(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return me, dir, nil
}

func (c *Client) listQuery(account, status string) url.Values {
	query := url.Values{
		"assignedTo": {account},
		"page":       {"1"},
		"limit":      {fmt.Sprint(c.pageLimit)},
	}
	if status != "" && status != "all" {
		query.Set("status", status)
	}
	return query
}

// ListMyTasks returns the first page of tasks assigned to the caller.
func (c *Client) ListMyTasks(ctx context.Context, status string) (*TaskList, error) {
	me, dir, err := c.listContext(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := c.do(ctx, http.MethodGet, "/tasks", c.listQuery(me.Account, status), nil)
	if err != nil {
		return nil, relabel(err, types.CodeAPIError, "获取任务列表失败")
	}
	var wires []taskWire
	if err := field(fields, "tasks", &wires); err != nil {
		return nil, relabel(err, types.CodeAPIError, "获取任务列表失败")
	}
	total := flexInt(len(wires))
	if _, ok := fields["total"]; ok {
		_ = field(fields, "total", &total)
	}

	list := &TaskList{Tasks: make([]Task, len(wires)), Total: int(total), Page: 1, PageSize: c.pageLimit}
	for i, w := range wires {
		list.Tasks[i] = w.toTask(dir)
	}
	logging.API("listed %d/%d tasks for %s (status=%q)", len(list.Tasks), list.Total, me.Account, status)
	return list, nil
}

// GetTask fetches one task by id.
func (c *Client) GetTask(ctx context.Context, id int) (*Task, error) {
	fields, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/tasks/%d", id), nil, nil)
	if err != nil {
		return nil, relabel(err, types.CodeTaskNotFound, fmt.Sprintf("任务 #%d 不存在或无权访问", id))
	}
	var w taskWire
	if err := field(fields, "task", &w); err != nil {
		return nil, relabel(err, types.CodeTaskNotFound, fmt.Sprintf("任务 #%d 不存在或无权访问", id))
	}
	task := w.toTask(c.directory(ctx))
	return &task, nil
}

// CreateTask creates a task, as a subtask when in.Parent is set.
func (c *Client) CreateTask(ctx context.Context, in CreateTaskInput) (*Task, error) {
	body := createTaskRequest{Name: in.Name, AssignedTo: in.AssignedTo, Parent: in.Parent}
	fields, err := c.do(ctx, http.MethodPost, "/tasks", nil, body)
	if err != nil {
		return nil, relabel(err, types.CodeAPIError, "创建任务失败")
	}
	var w taskWire
	if err := field(fields, "task", &w); err != nil {
		return nil, relabel(err, types.CodeAPIError, "创建任务失败")
	}
	task := w.toTask(c.directory(ctx))
	if task.Title == "" {
		task.Title = in.Name
	}
	logging.API("created task #%d %q (parent=%d)", task.ID, task.Title, in.Parent)
	return &task, nil
}

// AssignTask reassigns task id to account.
func (c *Client) AssignTask(ctx context.Context, id int, account string) error {
	_, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/tasks/%d", id), nil, assignTaskRequest{AssignedTo: account})
	if err != nil {
		return relabel(err, types.CodeAPIError, "分配任务失败")
	}
	logging.API("assigned task #%d to %s", id, account)
	return nil
}
