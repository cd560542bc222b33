package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// SanitizeString trims input, drops control characters and caps the result
// at maxLen runes. A non-positive maxLen disables the cap.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if maxLen > 0 && utf8.RuneCountInString(cleaned) > maxLen {
		cleaned = string([]rune(cleaned)[:maxLen])
	}
	return cleaned
}
