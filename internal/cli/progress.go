package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a single-line CLI progress bar.
type ProgressBar struct {
	completed int
	total     int
	label     string
	width     int
}

// NewProgressBar creates a new progress bar with the specified total and width.
func NewProgressBar(total int, width int) *ProgressBar {
	if width <= 0 {
		width = 20
	}
	return &ProgressBar{
		total: total,
		width: width,
	}
}

// Update sets the current progress and label.
func (p *ProgressBar) Update(completed int, label string) {
	if completed > p.total {
		completed = p.total
	}
	p.completed = completed
	p.label = label
}

// Render returns the formatted progress bar string.
func (p *ProgressBar) Render() string {
	if p.total == 0 {
		return ""
	}

	percent := float64(p.completed) / float64(p.total)
	filled := int(float64(p.width) * percent)
	empty := p.width - filled

	bar := strings.Repeat("█", filled) + strings.Repeat("░", empty)

	progressStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981")).
		Bold(true)

	barStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	countStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B6B6B"))

	return barStyle.Render("["+bar+"]") +
		countStyle.Render(fmt.Sprintf(" %d/%d ", p.completed, p.total)) +
		progressStyle.Render(p.label)
}

// Draw redraws the bar in place on w.
func (p *ProgressBar) Draw(w io.Writer) {
	ClearLine(w)
	_, _ = fmt.Fprint(w, p.Render())
}

// Done finishes the bar's line on w.
func (p *ProgressBar) Done(w io.Writer) {
	if p.total > 0 {
		_, _ = fmt.Fprintln(w)
	}
}

// ClearLine clears the current line for in-place progress updates.
func ClearLine(w io.Writer) {
	_, _ = fmt.Fprint(w, "\r\033[K")
}
