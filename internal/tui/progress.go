package tui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
)

// ProgressBar renders batch progress on a single, rewritten terminal line.
type ProgressBar struct {
	out   io.Writer
	label string
	bar   progress.Model
}

// NewProgressBar returns a bar writing to out.
func NewProgressBar(out io.Writer, label string) *ProgressBar {
	return &ProgressBar{
		out:   out,
		label: label,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
	}
}

// Update redraws the bar for done of total units.
func (p *ProgressBar) Update(done, total int) {
	pct := 0.0
	if total > 0 {
		pct = float64(done) / float64(total)
	}
	fmt.Fprintf(p.out, "\r%s %s %d/%d", p.label, p.bar.ViewAs(pct), done, total)
}

// Done ends the progress line.
func (p *ProgressBar) Done() {
	fmt.Fprintln(p.out)
}
