package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DividerWidth is the default width for divider lines.
const DividerWidth = 64

// PhaseDisplay renders the status of each processing stage, one line per
// stage, to an output writer.
type PhaseDisplay struct {
	w io.Writer
}

// NewPhaseDisplay creates a new phase display writing to w.
func NewPhaseDisplay(w io.Writer) *PhaseDisplay {
	return &PhaseDisplay{w: w}
}

// RenderProgress renders a stage in progress.
// Shows: ◐ Extracting archive...
func (pd *PhaseDisplay) RenderProgress(name string) {
	style := lipgloss.NewStyle().Foreground(ColorSecondary)
	fmt.Fprintf(pd.w, "\r%s %s...", style.Render(SymbolProgress), name)
}

// RenderSuccess renders a completed stage with an optional detail.
// Shows: ● Update SFTP host IP  3 tags (0.1s)
func (pd *PhaseDisplay) RenderSuccess(name, detail string, duration time.Duration) {
	pd.clearLine()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorSuccess)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	line := symbolStyle.Render(SymbolComplete) + " " + name
	if detail != "" {
		line += "  " + detail
	}
	fmt.Fprintf(pd.w, "%s %s\n", line, mutedStyle.Render(formatDuration(duration)))
}

// RenderFailed renders a failed stage.
// Shows: ✗ Repackaging archive (0.4s)
func (pd *PhaseDisplay) RenderFailed(name string, duration time.Duration) {
	pd.clearLine()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorError)
	timingStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	fmt.Fprintf(pd.w, "%s %s %s\n",
		symbolStyle.Render(SymbolFail),
		name,
		timingStyle.Render(formatDuration(duration)),
	)
}

// RenderSkipped renders a skipped stage.
// Shows: ⊘ Update SFTP username (no matching tags)
func (pd *PhaseDisplay) RenderSkipped(name string, reason string) {
	pd.clearLine()

	symbolStyle := lipgloss.NewStyle().Foreground(ColorWarning)
	reasonStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	if reason != "" {
		fmt.Fprintf(pd.w, "%s %s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
			reasonStyle.Render("("+reason+")"),
		)
	} else {
		fmt.Fprintf(pd.w, "%s %s\n",
			symbolStyle.Render(SymbolSkipped),
			name,
		)
	}
}

// RenderWarning renders a non-fatal problem.
func (pd *PhaseDisplay) RenderWarning(message string) {
	style := lipgloss.NewStyle().Foreground(ColorWarning)
	fmt.Fprintf(pd.w, "%s %s\n", style.Render(SymbolWarning), message)
}

// RenderSubStatus renders an indented sub-status line.
// Shows:   ○ 10.20.30.40:22                                   SHA256:...
func (pd *PhaseDisplay) RenderSubStatus(symbol string, name string, status string) {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	fmt.Fprintf(pd.w, "  %s %s %s\n",
		style.Render(symbol),
		name,
		style.Render(status),
	)
}

// Divider renders a horizontal line between sections.
func (pd *PhaseDisplay) Divider() {
	fmt.Fprintf(pd.w, "\n%s\n\n", FormatDivider(DividerWidth))
}

// Newline writes an empty line.
func (pd *PhaseDisplay) Newline() {
	fmt.Fprintln(pd.w)
}

// clearLine clears the current line (for overwriting progress output).
func (pd *PhaseDisplay) clearLine() {
	fmt.Fprint(pd.w, "\r"+strings.Repeat(" ", 80)+"\r")
}

// FormatDivider returns a divider line as a string.
func FormatDivider(width int) string {
	style := lipgloss.NewStyle().Foreground(ColorMuted)
	return style.Render(strings.Repeat("━", width))
}

func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("(%.2fs)", secs)
	}
	return fmt.Sprintf("(%.1fs)", secs)
}
