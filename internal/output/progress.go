// Package output renders a single-download progress line with
// lipgloss styling, grounded on the teacher's internal/output style
// palette and internal/progress-manager.go's redraw-in-place loop.
package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	barStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("37"))
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// FormatBytes renders n in human-readable units.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.2f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}

// ProgressBar renders a single-line progress bar with the teacher's
// bullet/hline symbols.
func ProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if total <= 0 {
		return barStyle.Render(strings.Repeat("·", width))
	}
	percent := float64(current) / float64(total)
	if percent > 1 {
		percent = 1
	}
	filled := int(percent * float64(width))
	bar := "•" + strings.Repeat("━", filled) + strings.Repeat(" ", width-filled) + "•"
	return barStyle.Render(fmt.Sprintf("%s %.1f%%", bar, percent*100))
}

// Reporter redraws a single progress line in place, the way
// ProgressManager.updateDisplay redraws its tracked output paths.
type Reporter struct {
	label string
	total int64
	lines int
}

// NewReporter starts a reporter for a download of the given total size
// (0 if not yet known).
func NewReporter(label string, total int64) *Reporter {
	return &Reporter{label: label, total: total}
}

// Update redraws the progress line for a transfer currently at
// current of total bytes, at speedBps bytes/sec. total may grow from
// 0 once the engine's HEAD probe resolves it.
func (r *Reporter) Update(current, total int64, speedBps float64) {
	if r.lines > 0 {
		fmt.Printf("\033[%dA\033[J", r.lines)
	}
	r.total = total
	bar := ProgressBar(current, r.total, 30)
	speed := FormatBytes(int64(speedBps)) + "/s"
	fmt.Printf("%s %s %s/%s %s\n", r.label, bar, FormatBytes(current), FormatBytes(r.total), detailStyle.Render(speed))
	r.lines = 1
}

// Done prints a terminal success or failure line and stops redrawing.
func (r *Reporter) Done(err error) {
	if r.lines > 0 {
		fmt.Printf("\033[%dA\033[J", r.lines)
	}
	r.lines = 0
	if err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("✗ %s: %v", r.label, err)))
		return
	}
	fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s (%s)", r.label, FormatBytes(r.total))))
}
