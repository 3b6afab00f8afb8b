// Package utils provides common utility functions.
package utils

import "time"

// timestampLayouts are the formats accepted from upstream payloads, most
// specific first.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an upstream timestamp string. Returns false when the
// value is empty or matches none of the accepted layouts.
func ParseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// EndOfDay returns 23:59:59.999 of the given instant's calendar day.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, t.Location())
}
