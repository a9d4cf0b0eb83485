package utils

import (
	"fmt"
	"time"
)

// ISOTimestampLayout matches the millisecond-precision UTC timestamps written to the status log.
const ISOTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ParseRFC3339 returns a time from the provided string or an error.
func ParseRFC3339(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty time value")
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time: %w", err)
	}
	return t, nil
}

// FormatTimestamp renders t as an ISO-8601 UTC string.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(ISOTimestampLayout)
}

// NowTimestamp is FormatTimestamp(time.Now()).
func NowTimestamp() string {
	return FormatTimestamp(time.Now())
}
