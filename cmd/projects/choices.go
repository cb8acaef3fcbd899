package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/project-tracker/internal/ui/forms"
)

// parseChoice matches s against the display names of choices, ignoring
// case, spaces, dashes and underscores. The first word of a name is
// accepted too, so "hourly" selects "Hourly based".
func parseChoice[T fmt.Stringer](kind, s string, choices []T) (T, error) {
	want := normalizeChoice(s)
	for _, c := range choices {
		name := c.String()
		if normalizeChoice(name) == want || normalizeChoice(strings.Fields(name)[0]) == want {
			return c, nil
		}
	}
	names := make([]string, len(choices))
	for i, c := range choices {
		names[i] = strings.ToLower(c.String())
	}
	var zero T
	return zero, fmt.Errorf("unknown %s %q (one of: %s)", kind, s, strings.Join(names, ", "))
}

func normalizeChoice(s string) string {
	return strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
}

// optionalHours parses a flag value that may be left empty.
func optionalHours(flag, s string) (*float64, error) {
	h, err := forms.ParseHours(s)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return h, nil
}

// dateOrToday parses a YYYY-MM-DD flag, defaulting to today.
func dateOrToday(s string) (time.Time, error) {
	d, err := forms.ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return *d, nil
}

func renderTable(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		String()
}
