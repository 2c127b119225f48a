package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Artifact is one file a run produced.
type Artifact struct {
	Label string // "Modified file", "mkdir script", "Log file"
	Path  string
}

// SummaryRenderer formats the end-of-run summary for terminal display.
type SummaryRenderer struct {
	successStyle lipgloss.Style
	warnStyle    lipgloss.Style
	pathStyle    lipgloss.Style
	mutedStyle   lipgloss.Style
}

// NewSummaryRenderer creates a new summary renderer with default styles.
func NewSummaryRenderer() *SummaryRenderer {
	return &SummaryRenderer{
		successStyle: lipgloss.NewStyle().Foreground(ColorSuccess),
		warnStyle:    lipgloss.NewStyle().Foreground(ColorWarning),
		pathStyle:    lipgloss.NewStyle().Foreground(ColorInfo),
		mutedStyle:   lipgloss.NewStyle().Foreground(ColorMuted),
	}
}

// RenderSummary renders a run summary with the default renderer.
func RenderSummary(applied []string, artifacts []Artifact) string {
	return NewSummaryRenderer().Render(applied, artifacts)
}

// Render lists the operations that changed the file and then the produced
// files as a numbered list. Artifacts without a path are left out.
func (r *SummaryRenderer) Render(applied []string, artifacts []Artifact) string {
	var sb strings.Builder

	if len(applied) == 0 {
		sb.WriteString(r.warnStyle.Render(SymbolSkipped + " No changes were made"))
		sb.WriteString("\n")
	} else {
		opWord := "operation"
		if len(applied) != 1 {
			opWord = "operations"
		}
		sb.WriteString(r.successStyle.Render(fmt.Sprintf("%s %d %s applied", SymbolSuccess, len(applied), opWord)))
		sb.WriteString("\n")
		for _, op := range applied {
			sb.WriteString("  ")
			sb.WriteString(r.mutedStyle.Render("• " + op))
			sb.WriteString("\n")
		}
	}

	n := 0
	for _, a := range artifacts {
		if a.Path == "" {
			continue
		}
		if n == 0 {
			sb.WriteString("\n")
		}
		n++
		sb.WriteString(fmt.Sprintf("  %d. %s: ", n, a.Label))
		sb.WriteString(r.pathStyle.Render(a.Path))
		sb.WriteString("\n")
	}

	return sb.String()
}
