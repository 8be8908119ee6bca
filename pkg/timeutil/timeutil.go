// Package timeutil holds the calendar helpers shared by the stores and the
// HTTP layer. All calendar days are UTC days.
package timeutil

import (
	"strings"
	"time"
)

// Layouts used across the API and the admin CLI.
const (
	// FormatDate is the format of date query parameters.
	FormatDate = "2006-01-02"
	// FormatDateCompact is used in file names.
	FormatDateCompact = "20060102"
	// FormatDateTimeSeconds is used for human-readable listings.
	FormatDateTimeSeconds = "2006-01-02 15:04:05"
)

// StartOfDay returns midnight UTC of the day t falls on in UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NextDay returns midnight UTC of the day after t.
func NextDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// ParseDate parses a YYYY-MM-DD value as a UTC day.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(FormatDate, strings.TrimSpace(value), time.UTC)
}

// FormatDateTime renders t in UTC with second precision.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(FormatDateTimeSeconds)
}
