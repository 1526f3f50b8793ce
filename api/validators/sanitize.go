package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, drops control characters, collapses runs of
// whitespace and truncates to maxRunes (0 means no limit) without splitting
// a multi-byte character.
func SanitizeString(input string, maxRunes int) string {
	var b strings.Builder
	b.Grow(len(input))

	count := 0
	pendingSpace := false
	for _, r := range strings.TrimSpace(input) {
		if unicode.IsSpace(r) {
			pendingSpace = true
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		if pendingSpace {
			if maxRunes > 0 && count >= maxRunes {
				break
			}
			b.WriteRune(' ')
			count++
			pendingSpace = false
		}
		if maxRunes > 0 && count >= maxRunes {
			break
		}
		b.WriteRune(r)
		count++
	}
	return strings.TrimSpace(b.String())
}
