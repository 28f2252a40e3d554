package schedule

import "time"

// ResolveWindow derives the effective working window for a doctor on one
// calendar date. A date-specific override supersedes the weekly schedule
// wholesale; the two tiers are never merged. The boolean is false when
// the doctor has no working window on that date.
func ResolveWindow(weekly []WeeklyEntry, overrides []Override, date time.Time) (Window, bool) {
	for _, o := range overrides {
		if SameDate(o.Date, date) {
			return Window{
				StartTime:  o.StartTime,
				EndTime:    o.EndTime,
				BreakStart: o.BreakStart,
				BreakEnd:   o.BreakEnd,
			}, true
		}
	}

	day := DayOfWeek(date)
	for _, e := range weekly {
		if e.DayOfWeek == day {
			return Window{
				StartTime:  e.StartTime,
				EndTime:    e.EndTime,
				BreakStart: e.BreakStart,
				BreakEnd:   e.BreakEnd,
			}, true
		}
	}
	return Window{}, false
}
