// Package prompt reads interactive input: login credentials, subtask names,
// and assignees the utterance left out.
package prompt

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// ErrCancelled is returned when the user aborts input (EOF, Ctrl-C, Esc).
var ErrCancelled = errors.New("input cancelled")

// Prompter asks the user for missing values.
type Prompter interface {
	ReadLine(ctx context.Context, label string) (string, error)
	ReadPassword(ctx context.Context, label string) (string, error)
	// ReadLines collects one value per line until an empty line.
	ReadLines(ctx context.Context, label string) ([]string, error)
}

// Disabled refuses every prompt. Used where no user is attached.
type Disabled struct{}

func (Disabled) ReadLine(context.Context, string) (string, error)     { return "", ErrCancelled }
func (Disabled) ReadPassword(context.Context, string) (string, error) { return "", ErrCancelled }
func (Disabled) ReadLines(context.Context, string) ([]string, error)  { return nil, ErrCancelled }

// Lines reads answers from any line-oriented reader, echoing labels to out.
type Lines struct {
	mu      sync.Mutex
	scanner *bufio.Scanner
	out     io.Writer
}

// NewLines wraps in; out may be nil.
func NewLines(in io.Reader, out io.Writer) *Lines {
	if out == nil {
		out = io.Discard
	}
	return &Lines{scanner: bufio.NewScanner(in), out: out}
}

func (l *Lines) next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", ErrCancelled
	}
	if !l.scanner.Scan() {
		if err := l.scanner.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", ErrCancelled
	}
	return strings.TrimSpace(l.scanner.Text()), nil
}

func (l *Lines) ReadLine(ctx context.Context, label string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s: ", label)
	return l.next(ctx)
}

func (l *Lines) ReadPassword(ctx context.Context, label string) (string, error) {
	return l.ReadLine(ctx, label)
}

// ReadLines ends the list at an empty line. End of input also ends a
// non-empty list, so piped answers need no trailing blank line; a cancelled
// context discards the list.
func (l *Lines) ReadLines(ctx context.Context, label string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.out, "%s (每行一个，空行结束):\n", label)
	var lines []string
	for {
		line, err := l.next(ctx)
		if err != nil {
			if errors.Is(err, ErrCancelled) && ctx.Err() == nil && len(lines) > 0 {
				return lines, nil
			}
			return nil, err
		}
		if line == "" {
			return lines, nil
		}
		lines = append(lines, line)
	}
}
