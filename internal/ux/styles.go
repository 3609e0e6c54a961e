// Package ux renders dispatcher responses for the terminal.
package ux

import "github.com/charmbracelet/lipgloss"

// Palette
var (
	Primary     = lipgloss.AdaptiveColor{Light: "#101F38", Dark: "#8BC34A"}
	Muted       = lipgloss.AdaptiveColor{Light: "#6a737d", Dark: "#8b949e"}
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#8BC34A")
	Warning     = lipgloss.Color("#FFC107")
)

// Styles groups the styles used by the renderers.
type Styles struct {
	Title   lipgloss.Style
	Error   lipgloss.Style
	Code    lipgloss.Style
	Muted   lipgloss.Style
	OK      lipgloss.Style
	Failed  lipgloss.Style
	Prompt  lipgloss.Style
	Boxed   lipgloss.Style
	Enabled bool
}

// DefaultStyles returns the colored style set.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Error:   lipgloss.NewStyle().Bold(true).Foreground(Destructive),
		Code:    lipgloss.NewStyle().Foreground(Warning),
		Muted:   lipgloss.NewStyle().Foreground(Muted),
		OK:      lipgloss.NewStyle().Foreground(Success),
		Failed:  lipgloss.NewStyle().Foreground(Destructive),
		Prompt:  lipgloss.NewStyle().Bold(true).Foreground(Primary),
		Boxed:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(0, 1),
		Enabled: true,
	}
}

// PlainStyles renders text unchanged. Used for pipes and tests.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{Title: plain, Error: plain, Code: plain, Muted: plain, OK: plain, Failed: plain, Prompt: plain, Boxed: plain}
}
