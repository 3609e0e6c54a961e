package prompt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinesReadLine(t *testing.T) {
	var out bytes.Buffer
	p := NewLines(strings.NewReader("  admin \nsecret\n"), &out)

	account, err := p.ReadLine(context.Background(), "用户名")
	require.NoError(t, err)
	assert.Equal(t, "admin", account)

	password, err := p.ReadPassword(context.Background(), "密码")
	require.NoError(t, err)
	assert.Equal(t, "secret", password)
	assert.Contains(t, out.String(), "用户名: ")

	_, err = p.ReadLine(context.Background(), "更多")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestLinesReadLinesStopsAtBlank(t *testing.T) {
	p := NewLines(strings.NewReader("前端开发\n后端开发\n\n测试\n"), nil)

	lines, err := p.ReadLines(context.Background(), "子任务")
	require.NoError(t, err)
	assert.Equal(t, []string{"前端开发", "后端开发"}, lines)
}

func TestLinesReadLinesEOF(t *testing.T) {
	lines, err := NewLines(strings.NewReader("设计"), nil).ReadLines(context.Background(), "子任务")
	require.NoError(t, err)
	assert.Equal(t, []string{"设计"}, lines)

	_, err = NewLines(strings.NewReader(""), nil).ReadLines(context.Background(), "子任务")
	assert.ErrorIs(t, err, ErrCancelled)
}

// cancelAfter yields data once, then cancels the context and reports EOF.
type cancelAfter struct {
	data   string
	cancel context.CancelFunc
}

func (r *cancelAfter) Read(p []byte) (int, error) {
	if r.data == "" {
		r.cancel()
		return 0, io.EOF
	}
	n := copy(p, r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestLinesReadLinesCancelledMidList(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p := NewLines(&cancelAfter{data: "设计\n", cancel: cancel}, nil)

	lines, err := p.ReadLines(ctx, "子任务")
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, lines)
}

func TestCollectLines(t *testing.T) {
	feed := func(answers []string, final error) func() (string, error) {
		return func() (string, error) {
			if len(answers) == 0 {
				return "", final
			}
			next := answers[0]
			answers = answers[1:]
			return next, nil
		}
	}

	lines, err := collectLines(feed([]string{"设计", "开发", ""}, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"设计", "开发"}, lines)

	lines, err = collectLines(feed([]string{"设计"}, ErrCancelled))
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Nil(t, lines)
}

func TestLinesHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewLines(strings.NewReader("admin\n"), nil).ReadLine(ctx, "用户名")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestDisabledAlwaysCancels(t *testing.T) {
	var p Prompter = Disabled{}
	_, err := p.ReadLine(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCancelled)
	_, err = p.ReadLines(context.Background(), "x")
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestInputModelKeys(t *testing.T) {
	m := newInputModel("用户", false)
	for _, r := range "lisi" {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(inputModel)
	}
	assert.Contains(t, m.View(), "用户")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(inputModel)
	assert.True(t, m.done)
	assert.NotNil(t, cmd)
	assert.Equal(t, "lisi", m.input.Value())

	esc, _ := newInputModel("密码", true).Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.True(t, esc.(inputModel).cancelled)
}
