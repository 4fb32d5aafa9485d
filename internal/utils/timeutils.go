package utils

import (
	"fmt"
	"strings"
	"time"
)

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02 15:04",
	time.RFC3339,
}

// ParseDate accepts a calendar date, optionally followed by a time of day,
// and returns it truncated to midnight UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date value")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return StartOfDay(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q: unsupported layout", value)
}

// StartOfDay drops the time-of-day component, keeping the calendar date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// InDateRange reports whether day lies within the inclusive [from, to] range.
// A zero bound is open.
func InDateRange(day, from, to time.Time) bool {
	if !from.IsZero() && day.Before(StartOfDay(from)) {
		return false
	}
	if !to.IsZero() && day.After(StartOfDay(to)) {
		return false
	}
	return true
}

// ResolveDatePreset turns a named preset into an inclusive date range relative
// to now. The "all" preset returns two zero times.
func ResolveDatePreset(preset string, now time.Time) (from, to time.Time, err error) {
	today := StartOfDay(now)
	switch preset {
	case "today":
		return today, today, nil
	case "yesterday":
		y := today.AddDate(0, 0, -1)
		return y, y, nil
	case "last7days":
		return today.AddDate(0, 0, -7), today, nil
	case "last30days":
		return today.AddDate(0, 0, -30), today, nil
	case "thisMonth":
		return time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC), today, nil
	case "lastMonth":
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
		return first.AddDate(0, -1, 0), first.AddDate(0, 0, -1), nil
	case "thisYear":
		return time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, time.UTC), today, nil
	case "all", "":
		return time.Time{}, time.Time{}, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown date preset %q", preset)
	}
}
