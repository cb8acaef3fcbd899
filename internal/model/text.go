package model

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// labelLength is how many characters of free text a label keeps.
const labelLength = 20

var strictPolicy = bluemonday.StrictPolicy()

// StripTags removes all markup from s and decodes HTML entities.
func StripTags(s string) string {
	return html.UnescapeString(strictPolicy.Sanitize(s))
}

// HasText reports whether s contains anything besides whitespace once
// markup is removed.
func HasText(s string) bool {
	return strings.TrimSpace(StripTags(s)) != ""
}

// ShortLabel strips markup and truncates to a short, list-friendly label.
func ShortLabel(s string) string {
	text := StripTags(s)
	runes := []rune(text)
	if len(runes) > labelLength {
		return string(runes[:labelLength]) + "..."
	}
	return text
}
