package ui

// Unicode symbols for status indicators.
const (
	SymbolSuccess  = "✓" // Operation completed successfully
	SymbolFail     = "✗" // Operation failed
	SymbolPending  = "○" // Not yet started
	SymbolProgress = "◐" // In progress
	SymbolComplete = "●" // Stage done
	SymbolSkipped  = "⊘" // Stage skipped, nothing to change
	SymbolWarning  = "!" // Non-fatal problem
)
