package ux

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"zentaohelper/internal/store"
	"zentaohelper/internal/types"
)

// Renderer turns envelopes into terminal text.
type Renderer struct {
	styles   Styles
	markdown *glamour.TermRenderer
}

// NewRenderer builds a renderer. With color off, help is printed as-is.
func NewRenderer(color bool, width int) *Renderer {
	if !color {
		return &Renderer{styles: PlainStyles()}
	}
	if width <= 0 {
		width = 80
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		md = nil
	}
	return &Renderer{styles: DefaultStyles(), markdown: md}
}

// Styles exposes the active style set.
func (r *Renderer) Styles() Styles { return r.styles }

// Response renders a dispatcher envelope: the message on success, the
// error code and message otherwise.
func (r *Renderer) Response(resp types.Response) string {
	if !resp.Success {
		if resp.Error == nil {
			return r.styles.Error.Render("错误: 未知错误")
		}
		return r.styles.Error.Render("错误: "+resp.Error.Message) + " " + r.styles.Code.Render("["+string(resp.Error.Code)+"]")
	}
	if p, ok := payloadOf(resp); ok && p.Type == "help" {
		return r.Help(p.Message)
	}
	return resp.Message()
}

func payloadOf(resp types.Response) (types.Payload, bool) {
	switch d := resp.Data.(type) {
	case types.Payload:
		return d, true
	case *types.Payload:
		if d != nil {
			return *d, true
		}
	}
	return types.Payload{}, false
}

// Help renders the markdown help text, falling back to the raw text.
func (r *Renderer) Help(text string) string {
	if r.markdown == nil {
		return text
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// History renders recent turns, newest first.
func (r *Renderer) History(turns []store.Turn) string {
	if len(turns) == 0 {
		return r.styles.Muted.Render("暂无历史记录")
	}
	var sb strings.Builder
	sb.WriteString(r.styles.Title.Render(fmt.Sprintf("最近 %d 条命令", len(turns))))
	sb.WriteString("\n")
	for _, t := range turns {
		mark := r.styles.OK.Render("✓")
		if !t.Success {
			mark = r.styles.Failed.Render("✗")
		}
		fmt.Fprintf(&sb, "%s %s %-12s %s", mark,
			r.styles.Muted.Render(t.CreatedAt.Local().Format("01-02 15:04")),
			t.Intent, t.Text)
		if t.ErrorCode != "" {
			sb.WriteString(" " + r.styles.Code.Render("["+t.ErrorCode+"]"))
		}
		if t.Duration > 0 {
			sb.WriteString(" " + r.styles.Muted.Render(t.Duration.Round(time.Millisecond).String()))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Banner is printed when the REPL starts.
func (r *Renderer) Banner(version, baseURL string) string {
	body := fmt.Sprintf("禅道助手 %s\n%s\n输入 \"帮助\" 查看用法，\"exit\" 退出", version, baseURL)
	return r.styles.Boxed.Render(body)
}
