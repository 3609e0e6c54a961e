package prompt

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))

// Terminal prompts with a single-line bubbletea input field.
type Terminal struct {
	in  io.Reader
	out io.Writer
}

// NewTerminal returns a terminal prompter when stdin is a TTY and a
// line-reader prompter otherwise.
func NewTerminal() Prompter {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return NewLines(os.Stdin, os.Stderr)
	}
	return &Terminal{in: os.Stdin, out: os.Stderr}
}

func (t *Terminal) ReadLine(ctx context.Context, label string) (string, error) {
	return t.run(ctx, newInputModel(label, false))
}

func (t *Terminal) ReadPassword(ctx context.Context, label string) (string, error) {
	return t.run(ctx, newInputModel(label, true))
}

func (t *Terminal) ReadLines(ctx context.Context, label string) ([]string, error) {
	return collectLines(func() (string, error) {
		return t.run(ctx, newInputModel(label+" (空行结束)", false))
	})
}

// collectLines reads until an empty line. Any error, cancellation included,
// discards what was collected so far.
func collectLines(read func() (string, error)) ([]string, error) {
	var lines []string
	for {
		line, err := read()
		if err != nil {
			return nil, err
		}
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}

func (t *Terminal) run(ctx context.Context, m inputModel) (string, error) {
	p := tea.NewProgram(m, tea.WithContext(ctx), tea.WithInput(t.in), tea.WithOutput(t.out))
	final, err := p.Run()
	if err != nil {
		if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
			return "", ErrCancelled
		}
		return "", err
	}
	result, ok := final.(inputModel)
	if !ok || result.cancelled {
		return "", ErrCancelled
	}
	return strings.TrimSpace(result.input.Value()), nil
}

// inputModel is a one-field form that quits on Enter.
type inputModel struct {
	label     string
	input     textinput.Model
	done      bool
	cancelled bool
}

func newInputModel(label string, secret bool) inputModel {
	ti := textinput.New()
	ti.Prompt = "› "
	ti.CharLimit = 256
	if secret {
		ti.EchoMode = textinput.EchoPassword
		ti.EchoCharacter = '•'
	}
	ti.Focus()
	return inputModel{label: label, input: ti}
}

func (m inputModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m inputModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyEnter:
			m.done = true
			return m, tea.Quit
		case tea.KeyCtrlC, tea.KeyEsc, tea.KeyCtrlD:
			m.cancelled = true
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m inputModel) View() string {
	if m.done || m.cancelled {
		return ""
	}
	return labelStyle.Render(m.label) + "\n" + m.input.View() + "\n"
}
