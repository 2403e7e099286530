package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layouts accepted for bar timestamps. Zoned layouts keep their own offset;
// the rest are interpreted in the storage offset handed to ParseTime.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"20060102 150405",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"2006-01-02",
	"20060102",
}

// ParseOffset turns "+HH:MM", "-HHMM", "UTC" or "" into a fixed zone.
// Named IANA zones are rejected on purpose: their DST rules would make
// day-keying depend on the tz database.
func ParseOffset(s string) (*time.Location, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "UTC") || s == "Z" {
		return time.UTC, nil
	}
	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return nil, fmt.Errorf("bad offset %q: want +HH:MM or -HH:MM", s)
	}
	body := strings.ReplaceAll(s[1:], ":", "")
	if len(body) != 4 && len(body) != 2 {
		return nil, fmt.Errorf("bad offset %q: want +HH:MM or -HH:MM", s)
	}
	hh, err := strconv.Atoi(body[:2])
	if err != nil {
		return nil, fmt.Errorf("bad offset %q: %w", s, err)
	}
	mm := 0
	if len(body) == 4 {
		if mm, err = strconv.Atoi(body[2:]); err != nil {
			return nil, fmt.Errorf("bad offset %q: %w", s, err)
		}
	}
	if hh > 14 || mm > 59 {
		return nil, fmt.Errorf("bad offset %q: out of range", s)
	}
	secs := sign * (hh*3600 + mm*60)
	return time.FixedZone(s, secs), nil
}

// ParseTime parses a bar timestamp. Values without a zone are read in loc;
// values with a zone are converted into loc so every bar of a run shares
// one wall clock.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if loc == nil {
		loc = time.UTC
	}
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	// Epoch seconds or milliseconds. Shorter digit runs are compact dates.
	if n, err := strconv.ParseInt(s, 10, 64); err == nil && len(s) > 8 {
		if n > 1e12 {
			return time.UnixMilli(n).In(loc), nil
		}
		return time.Unix(n, 0).In(loc), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.In(loc), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// DayKey is the calendar day of t on its own wall clock.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// MinuteOfDay is minutes since midnight on t's own wall clock.
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ParseClock parses "HH:MM" into minutes since midnight. Empty means -1.
func ParseClock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return -1, nil
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("bad clock %q: want HH:MM", s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// IsWeekend reports Saturday/Sunday on t's own wall clock.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
