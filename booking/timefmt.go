package booking

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the only accepted date-time format, both at the prompt and in
// the bookings file. Values are local time with no offset.
const TimeLayout = "2006-01-02 15:04:05"

// ParseTime parses s in TimeLayout as local time. Input must format back to
// itself, so fractional seconds and times skipped by a DST change are rejected.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil || FormatTime(t) != s {
		return time.Time{}, fmt.Errorf("%q: %w", s, ErrInvalidFormat)
	}
	return t, nil
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := ParseTime(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := ParseTime(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}
