// Package dates parses the marketplace's varied posting-date representations
// into canonical timestamps. Parsing is deterministic given the injected now.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeRe = regexp.MustCompile(`(?i)^(\d+)\s*([mhd])\s+ago$`)

// isoLayouts are tried in order for machine-readable datetime attributes.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse converts a posting-date string into a timestamp. Recognition order,
// first match wins:
//  1. ISO-8601, with or without zone
//  2. relative "<n>m ago" / "<n>h ago" / "<n>d ago", computed against now
//  3. short "MM/DD", current year, rolled back one year if in the future
//  4. "MM/DD/YYYY" or "MM/DD/YY" (two-digit years are 20xx)
//
// Unrecognized input returns ok=false; callers must not fabricate a timestamp.
func Parse(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range isoLayouts {
		if ts, err := time.Parse(layout, text); err == nil {
			return ts, true
		}
	}

	if m := relativeRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch strings.ToLower(m[2]) {
		case "m":
			return now.Add(-time.Duration(n) * time.Minute), true
		case "h":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "d":
			return now.AddDate(0, 0, -n), true
		}
	}

	if ts, ok := parseShortDate(text, now); ok {
		return ts, true
	}

	return parseFullDate(text)
}

// parseShortDate handles "MM/DD". The year is assumed current; a date that
// lands strictly in the future is rolled back one year.
func parseShortDate(text string, now time.Time) (time.Time, bool) {
	parts := strings.Split(text, "/")
	if len(parts) != 2 {
		return time.Time{}, false
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}

	ts := time.Date(now.Year(), time.Month(month), day, 0, 0, 0, 0, now.Location())
	if ts.After(now) {
		ts = ts.AddDate(-1, 0, 0)
	}
	return ts, true
}

// parseFullDate handles "MM/DD/YYYY" and "MM/DD/YY".
func parseFullDate(text string) (time.Time, bool) {
	parts := strings.Split(text, "/")
	if len(parts) != 3 {
		return time.Time{}, false
	}

	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, false
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, false
	}
	if len(parts[2]) == 2 {
		year += 2000
	} else if len(parts[2]) != 4 {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}
