package textutil

import (
	"strings"
	"unicode/utf8"
)

// Preview trims s to at most limit runes, appending "..." when it was cut.
// A non-positive limit returns s unchanged.
func Preview(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:limit]), " ") + "..."
}
