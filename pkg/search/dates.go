package search

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006",
}

// parseDateFilter turns a user-supplied date filter into a timestamp. It
// accepts common ISO layouts plus a few relative phrases ("today",
// "yesterday", "3 days ago", "2 weeks ago", "1 month ago"). An empty string
// means the filter is unset.
func parseDateFilter(value string, now time.Time) (time.Time, error) {
	trimmed := strings.TrimSpace(strings.ToLower(value))
	if trimmed == "" {
		return time.Time{}, nil
	}

	switch trimmed {
	case "now":
		return now, nil
	case "today":
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "yesterday":
		y, m, d := now.AddDate(0, 0, -1).Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location()), nil
	case "last week":
		return now.AddDate(0, 0, -7), nil
	case "last month":
		return now.AddDate(0, -1, 0), nil
	}

	if t, ok := parseRelative(trimmed, now); ok {
		return t, nil
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(value)); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized date filter: %q", value)
}

// parseRelative handles "N <unit>(s) ago" phrases.
func parseRelative(value string, now time.Time) (time.Time, bool) {
	fields := strings.Fields(value)
	if len(fields) != 3 || fields[2] != "ago" {
		return time.Time{}, false
	}

	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return time.Time{}, false
	}

	switch strings.TrimSuffix(fields[1], "s") {
	case "day":
		return now.AddDate(0, 0, -n), true
	case "week":
		return now.AddDate(0, 0, -7*n), true
	case "month":
		return now.AddDate(0, -n, 0), true
	case "year":
		return now.AddDate(-n, 0, 0), true
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour), true
	case "minute":
		return now.Add(-time.Duration(n) * time.Minute), true
	}

	return time.Time{}, false
}
