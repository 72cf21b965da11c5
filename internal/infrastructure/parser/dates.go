package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	fullDateExpr  = regexp.MustCompile(`(\d{4})\s*[-/.年]\s*(\d{1,2})\s*[-/.月]\s*(\d{1,2})`)
	shortDateExpr = regexp.MustCompile(`^(\d{1,2})\s*[-/月]\s*(\d{1,2})`)
	relativeExpr  = regexp.MustCompile(`(\d+)\s*(分钟|小时|天|minutes?|hours?|days?)\s*(前|ago)`)
)

// parseListingDate understands the absolute and relative timestamps news listings print.
// The result is the calendar day in now's location.
func parseListingDate(text string, now time.Time) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}
	loc := now.Location()

	if m := fullDateExpr.FindStringSubmatch(text); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return calendarDay(year, month, day, loc)
	}

	if m := relativeExpr.FindStringSubmatch(text); m != nil {
		n, _ := strconv.Atoi(m[1])
		var at time.Time
		switch unit := m[2]; {
		case unit == "分钟" || strings.HasPrefix(unit, "minute"):
			at = now.Add(-time.Duration(n) * time.Minute)
		case unit == "小时" || strings.HasPrefix(unit, "hour"):
			at = now.Add(-time.Duration(n) * time.Hour)
		default:
			at = now.AddDate(0, 0, -n)
		}
		return truncateDay(at), true
	}

	switch {
	case strings.Contains(text, "刚刚"), strings.Contains(text, "今天"), strings.EqualFold(text, "today"):
		return truncateDay(now), true
	case strings.Contains(text, "前天"):
		return truncateDay(now.AddDate(0, 0, -2)), true
	case strings.Contains(text, "昨天"), strings.EqualFold(text, "yesterday"):
		return truncateDay(now.AddDate(0, 0, -1)), true
	}

	if m := shortDateExpr.FindStringSubmatch(text); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return calendarDay(now.Year(), month, day, loc)
	}

	return time.Time{}, false
}

func calendarDay(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
