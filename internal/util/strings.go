// Package util holds small string helpers shared by the CLI and the
// processing packages.
package util

import (
	"strconv"
	"strings"
)

// JoinOrNone joins strings with ", " or returns "(none)" for empty slices.
func JoinOrNone(items []string) string {
	return JoinOrDefault(items, "(none)")
}

// JoinOrDefault joins strings with ", " or returns def for empty slices.
func JoinOrDefault(items []string, def string) string {
	if len(items) == 0 {
		return def
	}
	return strings.Join(items, ", ")
}

// Pluralize returns singular if count is 1, otherwise plural.
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// Count renders "1 tag", "3 tags" and so on.
func Count(n int, singular, plural string) string {
	return strconv.Itoa(n) + " " + Pluralize(n, singular, plural)
}

// SanitizeFilename replaces characters that are invalid in Windows or POSIX
// file names (\ / * ? : " < > |) with underscores and trims surrounding spaces.
func SanitizeFilename(name string) string {
	return strings.TrimSpace(invalidFilenameChars.Replace(name))
}

var invalidFilenameChars = strings.NewReplacer(
	`\`, "_", "/", "_", "*", "_", "?", "_", ":", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_",
)
