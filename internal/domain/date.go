package domain

import (
	"fmt"
	"strings"
	"time"
)

// DayLayout is the canonical textual form of a day key.
const DayLayout = "2006-01-02"

// ParseDay validates a YYYY-MM-DD string; an empty value resolves to today in loc.
func ParseDay(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation(DayLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return day, nil
}

// DayKey formats a day the way artifacts and articles refer to it.
func DayKey(day time.Time) string {
	return day.Format(DayLayout)
}

// CompactDayKey is the date form used in artifact file names.
func CompactDayKey(day time.Time) string {
	return day.Format("20060102")
}
