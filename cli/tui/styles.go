// Package tui provides the Bubble Tea live view for the xray CLI.
//
// TUI rules:
//   - TUI is opt-in only (score --tui)
//   - TUI shows the same report data as non-TUI rendering
//   - Submitting a new company abandons the query in flight
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/xray/types"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// LabelStyle for breakdown labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// CardStyle for task cards.
	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1).
			Width(36)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)

	// ScoreStyle for the composite score.
	ScoreStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 2).
			Align(lipgloss.Center)
)

// StatusStyle returns a style for a task status.
func StatusStyle(status types.TaskStatus) lipgloss.Style {
	switch status {
	case types.TaskStatusSuccess:
		return SuccessStyle
	case types.TaskStatusError:
		return ErrorStyle
	default:
		return WarningStyle
	}
}

// OutcomeStyle returns a style for a query outcome.
func OutcomeStyle(status types.QueryOutcomeStatus) lipgloss.Style {
	switch status {
	case types.OutcomeCompleted:
		return SuccessStyle
	case types.OutcomeTruncated, types.OutcomeCanceled:
		return WarningStyle
	default:
		return ErrorStyle
	}
}
