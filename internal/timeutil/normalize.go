package timeutil

import (
	"errors"
	"strings"
	"time"
)

// Layouts accepted for incoming timestamps. Offset-aware forms are converted
// to UTC; naive forms are interpreted as UTC, never as server-local time.
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ErrUnparsable indicates the input matched none of the accepted layouts.
var ErrUnparsable = errors.New("unparsable timestamp")

// Normalize parses an ISO-8601-compatible timestamp and returns the absolute
// instant in UTC. Both endpoints of a session interval must pass through here
// before any duration arithmetic so a naive and an offset-aware input can
// never be mixed.
func Normalize(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrUnparsable
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		return t.UTC(), nil
	}
	return time.Time{}, ErrUnparsable
}
