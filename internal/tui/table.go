package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lu-zhengda/sendersweep/internal/domain"
	"github.com/lu-zhengda/sendersweep/internal/scoring"
)

const maxColumnWidth = 40

// RenderSenders draws ranked senders as a numbered table. Row numbers are
// the 1-based indices the selection prompt accepts.
func RenderSenders(engine *scoring.Engine, ranked []domain.SenderProfile) string {
	if len(ranked) == 0 {
		return mutedTextStyle.Render("No senders above the score threshold.")
	}
	rows := make([][]string, 0, len(ranked))
	classes := make([]domain.Classification, 0, len(ranked))
	for i, p := range ranked {
		class := engine.Classify(p.Score)
		classes = append(classes, class)
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			truncate(p.Email, maxColumnWidth),
			truncate(p.Name, maxColumnWidth/2),
			strconv.Itoa(p.MessageCount),
			fmt.Sprintf("%.2f", p.Score),
			string(class),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(mutedColor)).
		Headers("#", "Sender", "Name", "Msgs", "Score", "Class").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == 5 && row >= 0 && row < len(classes) {
				return classStyle(classes[row]).Padding(0, 1)
			}
			return cellStyle
		})
	return t.String()
}

// RenderScanSummary reports the size and origin of a scan.
func RenderScanSummary(scan *domain.ScanResult, shown int, fromCache bool) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Scan summary"))
	b.WriteByte('\n')
	query := scan.Query
	if query == "" {
		query = "(all mail)"
	}
	fmt.Fprintf(&b, "  Query:    %s\n", query)
	fmt.Fprintf(&b, "  Messages: %d\n", scan.TotalMessages)
	fmt.Fprintf(&b, "  Senders:  %d (%d shown)\n", len(scan.Senders), shown)
	source := "fresh"
	if fromCache {
		source = "cached"
	}
	fmt.Fprintf(&b, "  Scanned:  %s (%s)", scan.ScanDate.Local().Format(time.DateTime), source)
	return b.String()
}

// RenderSenderDetail shows why a sender scored as it did.
func RenderSenderDetail(engine *scoring.Engine, p domain.SenderProfile) string {
	var b strings.Builder
	title := p.Email
	if p.Name != "" {
		title = p.Name + " <" + p.Email + ">"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteByte('\n')
	class := engine.Classify(p.Score)
	fmt.Fprintf(&b, "Score %.2f  %s  %d messages\n", p.Score, classStyle(class).Render(string(class)), p.MessageCount)

	signals := engine.Signals(p)
	if len(signals) == 0 {
		b.WriteString(mutedTextStyle.Render("No newsletter signals"))
	} else {
		names := make([]string, 0, len(signals))
		for _, s := range signals {
			names = append(names, string(s))
		}
		b.WriteString("Signals: " + strings.Join(names, ", "))
	}
	for _, s := range p.SampleSubjects {
		b.WriteString("\n  - " + truncate(s, 70))
	}
	return panelStyle.Render(b.String())
}

// RenderPlan summarises what a trash run will do.
func RenderPlan(senders []domain.SenderProfile, messages int, dryRun bool, token string) string {
	var b strings.Builder
	if dryRun {
		b.WriteString(titleStyle.Render("Dry run"))
	} else {
		b.WriteString(errorTextStyle.Render("About to move messages to trash"))
	}
	b.WriteByte('\n')
	for _, p := range senders {
		fmt.Fprintf(&b, "  %s (%d)\n", p.Email, p.MessageCount)
	}
	fmt.Fprintf(&b, "Total: %d messages from %d senders", messages, len(senders))
	if dryRun {
		b.WriteString("\n" + mutedTextStyle.Render("Nothing was changed. Re-run with --execute to trash them."))
		return panelStyle.Render(b.String())
	}
	fmt.Fprintf(&b, "\nType %s to confirm.", checkStyle.Render(token))
	return warningPanelStyle.Render(b.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
