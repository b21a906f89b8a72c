package helpers

import (
	"errors"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date format used on the wire for task_date.
	DateLayout = "2006-01-02"
	// InstantLayout renders timestamps as UTC ISO-8601 with milliseconds.
	InstantLayout = "2006-01-02T15:04:05.000Z"
)

var ErrInvalidDate = errors.New("invalid date")

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp and returns the
// calendar date at midnight UTC. Timestamps keep their own calendar day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrInvalidDate
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DateOf(t), nil
	}
	return time.Time{}, ErrInvalidDate
}

// DateOf truncates t to its calendar date in its own location, expressed in UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

func FormatInstant(t time.Time) string { return t.UTC().Format(InstantLayout) }
