package zentao

import (
	"context"
	"net/http"

	"zentaohelper/internal/logging"
	"zentaohelper/internal/types"
)

// ListMyStories returns the first page of stories assigned to the caller.
func (c *Client) ListMyStories(ctx context.Context, status string) (*StoryList, error) {
	me, dir, err := c.listContext(ctx)
	if err != nil {
		return nil, err
	}
	fields, err := c.do(ctx, http.MethodGet, "/stories", c.listQuery(me.Account, status), nil)
	if err != nil {
		return nil, relabel(err, types.CodeAPIError, "获取需求列表失败")
	}
	var wires []storyWire
	if err := field(fields, "stories", &wires); err != nil {
		return nil, relabel(err, types.CodeAPIError, "获取需求列表失败")
	}
	total := flexInt(len(wires))
	if _, ok := fields["total"]; ok {
		_ = field(fields, "total", &total)
	}

	list := &StoryList{Stories: make([]Story, len(wires)), Total: int(total), Page: 1, PageSize: c.pageLimit}
	for i, w := range wires {
		list.Stories[i] = w.toStory(dir)
	}
	logging.API("listed %d/%d stories for %s (status=%q)", len(list.Stories), list.Total, me.Account, status)
	return list, nil
}
