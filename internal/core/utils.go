package core

import (
	"regexp"
	"strings"
)

var (
	unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)
	repeatedUnderscores = regexp.MustCompile(`_+`)
)

// SafeFilename converts a string to a download-safe file name stem
func SafeFilename(s string) string {
	s = strings.TrimSpace(s)

	// Replace anything outside [A-Za-z0-9._-] with underscores
	s = unsafeFilenameChars.ReplaceAllString(s, "_")

	// Collapse multiple underscores
	s = repeatedUnderscores.ReplaceAllString(s, "_")

	s = strings.Trim(s, "_.")
	if s == "" {
		return "export"
	}
	return s
}
