package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// BannerWidth is the inner width of the startup banner box.
const BannerWidth = 62

// RenderBanner renders the startup banner with the feature overview.
func RenderBanner(version string) string {
	titleStyle := lipgloss.NewStyle().Foreground(ColorAccent).Bold(true)
	headingStyle := lipgloss.NewStyle().Bold(true)
	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(ColorInfo).
		Width(BannerWidth).
		Padding(0, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render("BLDM CONFIG LOCALIZER  •  " + version))
	b.WriteString("\n\n")
	b.WriteString(headingStyle.Render("CORE FEATURES:"))
	b.WriteString("\n")
	for _, f := range []string{
		"Path localization for target environments",
		"Automated SFTP configuration",
		"Collector state standardization",
		"CAR/XML processing",
	} {
		b.WriteString("  • " + f + "\n")
	}
	b.WriteString("\n")
	b.WriteString(headingStyle.Render("WORKFLOW:"))
	b.WriteString("\n")
	b.WriteString("  1. Import source configuration\n")
	b.WriteString("  2. Set localization parameters\n\n")
	b.WriteString(headingStyle.Render("SAFETY:"))
	b.WriteString(" Original preservation  •  Audit logging")

	return box.Render(b.String()) + "\n"
}

// RenderCompatNotice renders the export compatibility requirements shown
// before any file is processed.
func RenderCompatNotice() string {
	okStyle := lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	warnStyle := lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	errStyle := lipgloss.NewStyle().Foreground(ColorError)
	ruleStyle := lipgloss.NewStyle().Foreground(ColorMuted)

	var b strings.Builder
	b.WriteString("\n" + okStyle.Render("COMPATIBILITY REQUIREMENTS") + "\n")
	b.WriteString(ruleStyle.Render(strings.Repeat("─", 31)) + "\n")
	b.WriteString("• XML files: Must be exported WITHOUT dependencies\n")
	b.WriteString("• CAR files: Fully supported (all configurations)\n")

	b.WriteString("\n" + warnStyle.Render("CRITICAL WARNINGS") + "\n")
	b.WriteString(ruleStyle.Render(strings.Repeat("─", 22)) + "\n")
	b.WriteString(errStyle.Render("- Non-compliant XML will be rejected by BLDM") + "\n")
	b.WriteString(errStyle.Render("- May cause:") + "\n")
	b.WriteString("  • Path transformation failures\n")
	b.WriteString("  • Broken references\n")
	b.WriteString("  • Unpredictable behavior\n")

	b.WriteString("\n" + warnStyle.Render("Always verify export settings before processing.") + "\n")
	return b.String()
}

// PrintBanner writes the banner to w.
func PrintBanner(w io.Writer, version string) {
	fmt.Fprint(w, RenderBanner(version))
}
