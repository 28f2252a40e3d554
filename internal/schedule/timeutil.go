package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseClock parses a 24-hour "HH:MM" wall-clock string. Components may be
// unpadded ("9:05"); out-of-range or non-numeric input fails with
// ErrMalformedTime.
func ParseClock(s string) (hour, minute int, err error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	hour, err = parseClockComponent(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	minute, err = parseClockComponent(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q", ErrMalformedTime, s)
	}
	return hour, minute, nil
}

func parseClockComponent(s string) (int, error) {
	if len(s) == 0 || len(s) > 2 {
		return 0, ErrMalformedTime
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrMalformedTime
		}
	}
	return strconv.Atoi(s)
}

// MinutesSinceMidnight converts an hour/minute pair to a minute offset.
func MinutesSinceMidnight(hour, minute int) int {
	return hour*60 + minute
}

// FormatClock renders a zero-padded "HH:MM" string.
func FormatClock(hour, minute int) string {
	return fmt.Sprintf("%02d:%02d", hour, minute)
}

// Canonical re-renders a clock string in zero-padded form so that string
// equality matches numeric equality ("9:05" -> "09:05").
func Canonical(s string) (string, error) {
	h, m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return FormatClock(h, m), nil
}

// WithinRange reports whether t falls in the half-open interval [start, end).
// Comparison is on numeric minute offsets, never on the raw strings.
func WithinRange(t, start, end string) (bool, error) {
	th, tm, err := ParseClock(t)
	if err != nil {
		return false, err
	}
	sh, sm, err := ParseClock(start)
	if err != nil {
		return false, err
	}
	eh, em, err := ParseClock(end)
	if err != nil {
		return false, err
	}
	offset := MinutesSinceMidnight(th, tm)
	return offset >= MinutesSinceMidnight(sh, sm) && offset < MinutesSinceMidnight(eh, em), nil
}

// AddMinutes shifts an instant forward by n minutes, rolling past midnight
// when the arithmetic requires it.
func AddMinutes(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * time.Minute)
}

// DayOfWeek returns the calendar day of week for a date, 0 = Sunday.
func DayOfWeek(date time.Time) int {
	return int(date.Weekday())
}

// TimeOfDay formats the wall-clock portion of an instant as "HH:MM".
func TimeOfDay(t time.Time) string {
	return t.Format("15:04")
}

// SameDate reports whether two instants fall on the same calendar date.
func SameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
