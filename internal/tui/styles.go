package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/lu-zhengda/sendersweep/internal/domain"
)

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	mutedColor     = lipgloss.Color("#6B7280")
	accentColor    = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	successColor   = lipgloss.Color("#10B981")

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	warningPanelStyle = panelStyle.
				BorderForeground(errorColor)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#1F2937")).
			Foreground(lipgloss.Color("#D1D5DB")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true)

	headerStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(lipgloss.Color("#FFFFFF"))

	checkStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	errorTextStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	mutedTextStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// classStyle colours a classification label.
func classStyle(c domain.Classification) lipgloss.Style {
	switch c {
	case domain.Newsletter:
		return lipgloss.NewStyle().Foreground(errorColor)
	case domain.LikelyNewsletter:
		return lipgloss.NewStyle().Foreground(accentColor)
	case domain.Uncertain:
		return lipgloss.NewStyle().Foreground(secondaryColor)
	}
	return lipgloss.NewStyle().Foreground(successColor)
}
