// Package ui provides terminal rendering helpers for the CLI: colored
// pass/fail markers, the pending-changes badge, and status labels.
package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/ocastro/fieldsync/internal/schema"
)

var colorEnabled = termenv.EnvColorProfile() != termenv.Ascii && !termenv.EnvNoColor()

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	accentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	badgeStyle  = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("196")).
			Padding(0, 1).
			Bold(true)
	dimStyle = lipgloss.NewStyle().Faint(true)
)

func render(style lipgloss.Style, s string) string {
	if !colorEnabled {
		return s
	}
	return style.Render(s)
}

// RenderPass renders a success marker.
func RenderPass(s string) string { return render(passStyle, s) }

// RenderFail renders a failure marker.
func RenderFail(s string) string { return render(failStyle, s) }

// RenderWarn renders a warning marker.
func RenderWarn(s string) string { return render(warnStyle, s) }

// RenderAccent renders informational text.
func RenderAccent(s string) string { return render(accentStyle, s) }

// RenderDim renders de-emphasized text.
func RenderDim(s string) string { return render(dimStyle, s) }

// RenderBadge renders the unconfirmed-changes count; empty at zero,
// matching the badge a UI would hide when nothing is pending.
func RenderBadge(count int) string {
	if count == 0 {
		return ""
	}
	return render(badgeStyle, fmt.Sprintf("%d", count))
}

// RenderStatus renders a parcel status with its conventional color:
// green worked, red pending, amber problem.
func RenderStatus(s schema.Status) string {
	switch s {
	case schema.StatusWorked:
		return RenderPass(string(s))
	case schema.StatusProblem:
		return RenderWarn(string(s))
	default:
		return RenderFail(string(s))
	}
}
