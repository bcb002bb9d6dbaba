package render

import (
	"regexp"
	"strings"
)

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// Render substitutes {{key}} placeholders in s with the values in vars.
// Every occurrence of a known key is replaced; placeholders whose key is not
// in vars are left in the output untouched. Rendering never fails.
func Render(s string, vars map[string]string) string {
	for key, value := range vars {
		s = strings.ReplaceAll(s, "{{"+key+"}}", value)
	}
	return s
}

// StripTags derives a plain-text alternative from rendered HTML by removing
// tag-shaped substrings. It is deliberately not a full HTML-to-text
// conversion; mail clients only need a rough text part.
func StripTags(html string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(html, ""))
}
