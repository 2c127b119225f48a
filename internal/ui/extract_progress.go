package ui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

// ExtractProgress draws a single-line progress bar for archive extraction.
// It renders statically with ViewAs on every update, so no Bubble Tea
// program or animation loop is involved.
type ExtractProgress struct {
	w         io.Writer
	progress  progress.Model
	Label     string
	StartTime time.Time
	drawn     bool
}

// NewExtractProgress creates a progress line writing to w.
func NewExtractProgress(w io.Writer, label string) *ExtractProgress {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(30),
		progress.WithoutPercentage(), // We'll render our own
	)

	p.FullColor = string(ColorSuccess)
	p.EmptyColor = string(ColorMuted)

	return &ExtractProgress{
		w:         w,
		progress:  p,
		Label:     label,
		StartTime: time.Now(),
	}
}

// Render returns the progress line for done of total files.
func (e *ExtractProgress) Render(done, total int, name string) string {
	percent := 0.0
	if total > 0 {
		percent = float64(done) / float64(total)
	}
	if percent > 1 {
		percent = 1
	}

	symbolStyle := lipgloss.NewStyle().Foreground(ColorSecondary)
	mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	b.WriteString(symbolStyle.Render(SymbolProgress))
	b.WriteString(" ")
	b.WriteString(e.Label)
	b.WriteString(" ")
	b.WriteString(e.progress.ViewAs(percent))
	b.WriteString(fmt.Sprintf(" %3.0f%%", percent*100))
	b.WriteString(mutedStyle.Render(fmt.Sprintf(" %d/%d", done, total)))
	if name != "" {
		b.WriteString(" ")
		b.WriteString(mutedStyle.Render(truncateMiddle(name, 32)))
	}
	return b.String()
}

// Update redraws the progress line in place. Its signature matches
// archive.ProgressFunc.
func (e *ExtractProgress) Update(done, total int, name string) {
	fmt.Fprint(e.w, "\r\033[K"+e.Render(done, total, name))
	e.drawn = true
}

// Finish replaces the progress line with a completion line.
// Shows: ● Extracted archive (0.2s)
func (e *ExtractProgress) Finish(success bool) {
	if e.drawn {
		fmt.Fprint(e.w, "\r\033[K")
	}
	pd := NewPhaseDisplay(e.w)
	if success {
		pd.RenderSuccess(e.Label, "", time.Since(e.StartTime))
	} else {
		pd.RenderFailed(e.Label, time.Since(e.StartTime))
	}
}

// truncateMiddle shortens s to at most max runes, keeping both ends.
func truncateMiddle(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 5 {
		return s
	}
	keep := (max - 1) / 2
	return string(r[:keep]) + "…" + string(r[len(r)-(max-1-keep):])
}
