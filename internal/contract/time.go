package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// relativeTimeRe captures "N [units] ago", e.g. "2 years ago" or "3 months ago".
var relativeTimeRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day)s?\s+ago$`)

// ParseRelativeTime converts strings like "2 years ago" into a date before now.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := relativeTimeRe.FindStringSubmatch(s)
	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid relative time format: %s", s)
	}

	value, _ := strconv.Atoi(matches[1])
	switch matches[2] {
	case "year":
		return now.AddDate(-value, 0, 0), nil
	case "month":
		return now.AddDate(0, -value, 0), nil
	case "week":
		return now.AddDate(0, 0, -7*value), nil
	default:
		return now.AddDate(0, 0, -value), nil
	}
}

// ParseDate accepts YYYY-MM-DD, RFC3339 or a relative "N units ago" string.
func ParseDate(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD, RFC3339 or 'N [units] ago', got %q", s)
	}
	return t, nil
}

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
