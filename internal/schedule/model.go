package schedule

import (
	"fmt"
	"time"
)

// WeeklyEntry is one recurring working-day definition for a doctor.
// A doctor carries at most one entry per day of week.
type WeeklyEntry struct {
	DayOfWeek  int    `json:"dayOfWeek"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
	BreakStart string `json:"breakStart,omitempty"`
	BreakEnd   string `json:"breakEnd,omitempty"`
}

// Validate checks the day index and the window ordering invariants.
func (e WeeklyEntry) Validate() error {
	if e.DayOfWeek < 0 || e.DayOfWeek > 6 {
		return fmt.Errorf("%w: day of week %d out of range", ErrInvalidWindow, e.DayOfWeek)
	}
	return validateWindow(e.StartTime, e.EndTime, e.BreakStart, e.BreakEnd)
}

// Override replaces the weekly entry for one exact calendar date. It is
// absolute: when present, the weekly schedule is ignored entirely for
// that date.
type Override struct {
	Date       time.Time `json:"date"`
	StartTime  string    `json:"startTime"`
	EndTime    string    `json:"endTime"`
	BreakStart string    `json:"breakStart,omitempty"`
	BreakEnd   string    `json:"breakEnd,omitempty"`
}

// Validate checks the window ordering invariants.
func (o Override) Validate() error {
	if o.Date.IsZero() {
		return fmt.Errorf("%w: override date required", ErrInvalidWindow)
	}
	return validateWindow(o.StartTime, o.EndTime, o.BreakStart, o.BreakEnd)
}

// Window is the effective working interval resolved for one date.
type Window struct {
	StartTime  string
	EndTime    string
	BreakStart string
	BreakEnd   string
}

// HasBreak reports whether the window carries a break interval.
func (w Window) HasBreak() bool {
	return w.BreakStart != "" && w.BreakEnd != ""
}

// validateWindow enforces start < end and, when a break is present,
// start <= breakStart < breakEnd <= end. Breaks must be set or omitted
// as a pair.
func validateWindow(start, end, breakStart, breakEnd string) error {
	sh, sm, err := ParseClock(start)
	if err != nil {
		return err
	}
	eh, em, err := ParseClock(end)
	if err != nil {
		return err
	}
	startMin := MinutesSinceMidnight(sh, sm)
	endMin := MinutesSinceMidnight(eh, em)
	if startMin >= endMin {
		return fmt.Errorf("%w: start %s is not before end %s", ErrInvalidWindow, start, end)
	}
	if breakStart == "" && breakEnd == "" {
		return nil
	}
	if breakStart == "" || breakEnd == "" {
		return fmt.Errorf("%w: break start and end must both be set", ErrInvalidWindow)
	}
	bsh, bsm, err := ParseClock(breakStart)
	if err != nil {
		return err
	}
	beh, bem, err := ParseClock(breakEnd)
	if err != nil {
		return err
	}
	bsMin := MinutesSinceMidnight(bsh, bsm)
	beMin := MinutesSinceMidnight(beh, bem)
	if bsMin < startMin || bsMin >= beMin || beMin > endMin {
		return fmt.Errorf("%w: break %s-%s outside window %s-%s", ErrInvalidWindow, breakStart, breakEnd, start, end)
	}
	return nil
}
