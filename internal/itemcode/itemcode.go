// Package itemcode formats, parses and finds project-scoped item codes
// such as ACME-12.
package itemcode

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// pattern matches item codes (e.g., ACME-123, P1-4).
var pattern = regexp.MustCompile(`\b([A-Z][A-Z0-9_]*-\d+)\b`)

// Format composes the code of the n-th item of a project.
func Format(projectCode string, n int) string {
	return fmt.Sprintf("%s-%d", strings.ToUpper(projectCode), n)
}

// Parse splits an item code into its project code and sequence number.
// The project code may itself contain dashes; the number follows the
// last one.
func Parse(code string) (projectCode string, n int, err error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	idx := strings.LastIndex(code, "-")
	if idx <= 0 || idx == len(code)-1 {
		return "", 0, fmt.Errorf("invalid item code %q: want PROJECT-N", code)
	}
	n, err = strconv.Atoi(code[idx+1:])
	if err != nil || n <= 0 {
		return "", 0, fmt.Errorf("invalid item code %q: sequence must be a positive number", code)
	}
	return code[:idx], n, nil
}

// Extract finds item code references in text.
// Returns a deduplicated list preserving the order of first occurrence.
func Extract(text string) []string {
	matches := pattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool)
	var result []string
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		result = append(result, m)
	}
	return result
}
