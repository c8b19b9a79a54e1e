package cli

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Matches: "2h ago", "30m ago", "1d ago", "2w ago", "1mo ago", "45s ago"
var relativeAgoRegex = regexp.MustCompile(`^(\d+)\s*(mo|w|d|h|m|s)\s*ago$`)

var unixSecondsRegex = regexp.MustCompile(`^\d{9,11}$`)

// ParseRelativeTime parses a point in the past.
// Supports: "now", "2h ago", "today", "yesterday", "last mon", "2006-01-02",
// RFC3339 and unix seconds.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty time expression")
	}

	input := strings.ToLower(raw)

	switch input {
	case "now":
		return now, nil
	case "today":
		return startOfDay(now), nil
	case "yesterday":
		return startOfDay(now).AddDate(0, 0, -1), nil
	}

	if t, ok := parseLastWeekday(input, now); ok {
		return t, nil
	}

	if matches := relativeAgoRegex.FindStringSubmatch(input); len(matches) == 3 {
		value, err := strconv.Atoi(matches[1])
		if err != nil || value < 1 {
			return time.Time{}, fmt.Errorf("invalid relative time %q", raw)
		}
		return subtract(now, value, matches[2])
	}

	if unixSecondsRegex.MatchString(raw) {
		sec, err := strconv.ParseInt(raw, 10, 64)
		if err == nil {
			return time.Unix(sec, 0).In(now.Location()), nil
		}
	}

	if t, err := time.ParseInLocation("2006-01-02", raw, now.Location()); err == nil {
		return startOfDay(t), nil
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid time expression %q", raw)
}

// ParseUnixTime is ParseRelativeTime reduced to unix seconds. Empty input
// yields 0, which the API treats as unset.
func ParseUnixTime(s string, now time.Time) (int64, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return 0, err
	}
	if t.Unix() < 0 {
		return 0, fmt.Errorf("time %q is before 1970", s)
	}
	return t.Unix(), nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// parseLastWeekday resolves "mon" or "last mon" to the most recent such day
// strictly before today.
func parseLastWeekday(expr string, now time.Time) (time.Time, bool) {
	input := strings.TrimSpace(strings.TrimPrefix(expr, "last "))
	weekday, ok := weekdayMap[input]
	if !ok {
		return time.Time{}, false
	}

	base := startOfDay(now)
	delta := (int(base.Weekday()) - int(weekday) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return base.AddDate(0, 0, -delta), true
}

var weekdayMap = map[string]time.Weekday{
	"sun":       time.Sunday,
	"sunday":    time.Sunday,
	"mon":       time.Monday,
	"monday":    time.Monday,
	"tue":       time.Tuesday,
	"tues":      time.Tuesday,
	"tuesday":   time.Tuesday,
	"wed":       time.Wednesday,
	"wednesday": time.Wednesday,
	"thu":       time.Thursday,
	"thurs":     time.Thursday,
	"thursday":  time.Thursday,
	"fri":       time.Friday,
	"friday":    time.Friday,
	"sat":       time.Saturday,
	"saturday":  time.Saturday,
}

func subtract(now time.Time, value int, unit string) (time.Time, error) {
	switch unit {
	case "mo":
		return now.AddDate(0, -value, 0), nil
	case "w":
		return now.AddDate(0, 0, -7*value), nil
	case "d":
		return now.AddDate(0, 0, -value), nil
	case "h":
		return now.Add(-time.Duration(value) * time.Hour), nil
	case "m":
		return now.Add(-time.Duration(value) * time.Minute), nil
	case "s":
		return now.Add(-time.Duration(value) * time.Second), nil
	}
	return time.Time{}, fmt.Errorf("invalid relative time unit %q", unit)
}
