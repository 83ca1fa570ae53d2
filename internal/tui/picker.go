package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
)

// pickerModel lets the user tick senders to trash. It resolves to a
// selection string in the same grammar the line prompt accepts: "all",
// "q", or comma-separated 1-based indices.
type pickerModel struct {
	engine     *scoring.Engine
	candidates []domain.SenderProfile
	checked    map[int]bool
	cursor     int
	offset     int
	width      int
	height     int
	detail     bool
	result     string
	done       bool
}

func newPickerModel(engine *scoring.Engine, candidates []domain.SenderProfile) pickerModel {
	return pickerModel{
		engine:     engine,
		candidates: candidates,
		checked:    make(map[int]bool),
		height:     24,
	}
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureVisible()
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m pickerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		m.result = "q"
		m.done = true
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.candidates)-1 {
			m.cursor++
			m.ensureVisible()
		}
	case key.Matches(msg, keys.Toggle):
		if len(m.candidates) > 0 {
			m.checked[m.cursor] = !m.checked[m.cursor]
		}
	case key.Matches(msg, keys.All):
		all := m.selectedCount() < len(m.candidates)
		for i := range m.candidates {
			m.checked[i] = all
		}
	case key.Matches(msg, keys.Detail):
		m.detail = !m.detail
	case key.Matches(msg, keys.Enter):
		m.result = m.selection()
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// selection encodes the ticked rows. With nothing ticked the row under
// the cursor is taken.
func (m pickerModel) selection() string {
	if len(m.candidates) == 0 {
		return ""
	}
	n := m.selectedCount()
	if n == 0 {
		return strconv.Itoa(m.cursor + 1)
	}
	if n == len(m.candidates) {
		return "all"
	}
	parts := make([]string, 0, n)
	for i := range m.candidates {
		if m.checked[i] {
			parts = append(parts, strconv.Itoa(i+1))
		}
	}
	return strings.Join(parts, ",")
}

func (m pickerModel) selectedCount() int {
	n := 0
	for _, v := range m.checked {
		if v {
			n++
		}
	}
	return n
}

func (m pickerModel) visibleRows() int {
	rows := m.height - 4
	if m.detail {
		rows -= 10
	}
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *pickerModel) ensureVisible() {
	rows := m.visibleRows()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

func (m pickerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Select senders to trash"))
	b.WriteString("\n\n")

	if len(m.candidates) == 0 {
		b.WriteString(mutedTextStyle.Render("  No senders to clean up."))
		b.WriteString("\n")
	}

	end := min(m.offset+m.visibleRows(), len(m.candidates))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}

	if m.detail && len(m.candidates) > 0 {
		b.WriteString(RenderSenderDetail(m.engine, m.candidates[m.cursor]))
		b.WriteString("\n")
	}

	bar := statusBar{selected: m.selectedCount(), total: len(m.candidates), width: m.width}
	b.WriteString(bar.View())
	return b.String()
}

func (m pickerModel) renderRow(i int) string {
	p := m.candidates[i]
	box := "[ ]"
	if m.checked[i] {
		box = checkStyle.Render("[x]")
	}
	class := m.engine.Classify(p.Score)
	line := fmt.Sprintf("%s %3d. %-40s %5d  %.2f  ", box, i+1, truncate(p.Email, 40), p.MessageCount, p.Score)
	if i == m.cursor {
		return selectedStyle.Render(line + string(class))
	}
	return line + classStyle(class).Render(string(class))
}

// PickSenders runs the interactive picker over candidates and returns the
// selection string. Closing the picker without confirming yields "q".
func PickSenders(ctx context.Context, engine *scoring.Engine, candidates []domain.SenderProfile, opts ...tea.ProgramOption) (string, error) {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	prog := tea.NewProgram(newPickerModel(engine, candidates), opts...)
	final, err := prog.Run()
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to run sender picker: %w", err)
	}
	m, ok := final.(pickerModel)
	if !ok || !m.done {
		return "q", nil
	}
	return m.result, nil
}
