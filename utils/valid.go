// utils/validation.go
package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var scriptRegex = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)

// SanitizeInput trims stored text and strips script blocks and control
// characters. Escaping is left to whatever renders the text.
func SanitizeInput(input string) string {
	input = strings.TrimSpace(input)
	input = scriptRegex.ReplaceAllString(input, "")

	// Remove control characters, keeping line breaks in message text
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' {
			return -1
		}
		return r
	}, input)
}
