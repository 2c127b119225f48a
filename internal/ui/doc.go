// Package ui provides terminal output components for the localizer CLI.
//
// # Components Overview
//
//	Banner          - Startup box with the feature overview
//	CompatNotice    - Export compatibility requirements shown before processing
//	PhaseDisplay    - One status line per stage (operation or archive step)
//	ExtractProgress - Static progress bar for archive extraction
//	Summary         - Applied operations and a numbered list of produced files
//
// # Color Scheme
//
// Colors are defined as ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - Successful operations
//	ColorError     (red)    - Failures and errors
//	ColorWarning   (yellow) - Warnings and skipped stages
//	ColorInfo      (cyan)   - Paths and the banner border
//	ColorMuted     (gray)   - Secondary text, timing info
//	ColorSecondary (blue)   - In-progress indicators
//
// Use DisableColors() to switch to monochrome output (for --no-color flag).
package ui
