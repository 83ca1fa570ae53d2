package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type statusBar struct {
	selected int
	total    int
	width    int
}

func (s statusBar) View() string {
	left := fmt.Sprintf("%d of %d selected", s.selected, s.total)
	shortcuts := "j/k:nav  space:toggle  a:all  d:details  enter:done  q:cancel"

	gap := s.width - lipgloss.Width(left) - lipgloss.Width(shortcuts) - 2
	if gap < 0 {
		gap = 0
	}

	content := left + lipgloss.NewStyle().Width(gap).Render("") + mutedTextStyle.Render(shortcuts)
	if s.width <= 0 {
		return statusBarStyle.Render(content)
	}
	return statusBarStyle.Width(s.width).Render(content)
}
