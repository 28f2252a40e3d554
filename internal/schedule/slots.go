package schedule

import (
	"iter"
	"time"
)

// DefaultSlotMinutes is the fixed booking granularity.
const DefaultSlotMinutes = 30

// OccupiedTimes reduces a set of appointment instants to their "HH:MM"
// time-of-day form, the granularity at which slot collisions are judged.
func OccupiedTimes(instants []time.Time) map[string]struct{} {
	occupied := make(map[string]struct{}, len(instants))
	for _, t := range instants {
		occupied[TimeOfDay(t)] = struct{}{}
	}
	return occupied
}

// Slots returns the ordered bookable start times inside a working window
// as a lazy, restartable sequence of "HH:MM" strings. Candidates inside
// [BreakStart, BreakEnd) or matching an occupied time-of-day are skipped.
// An empty sequence is valid: fully booked, fully on break, or a
// degenerate window all yield no slots.
func Slots(w Window, occupied map[string]struct{}, slotMinutes int) (iter.Seq[string], error) {
	if slotMinutes <= 0 {
		slotMinutes = DefaultSlotMinutes
	}
	sh, sm, err := ParseClock(w.StartTime)
	if err != nil {
		return nil, err
	}
	eh, em, err := ParseClock(w.EndTime)
	if err != nil {
		return nil, err
	}
	startMin := MinutesSinceMidnight(sh, sm)
	endMin := MinutesSinceMidnight(eh, em)

	breakStart, breakEnd := -1, -1
	if w.HasBreak() {
		bsh, bsm, err := ParseClock(w.BreakStart)
		if err != nil {
			return nil, err
		}
		beh, bem, err := ParseClock(w.BreakEnd)
		if err != nil {
			return nil, err
		}
		breakStart = MinutesSinceMidnight(bsh, bsm)
		breakEnd = MinutesSinceMidnight(beh, bem)
	}

	step := slotMinutes
	return func(yield func(string) bool) {
		for m := startMin; m < endMin; m += step {
			if breakStart >= 0 && m >= breakStart && m < breakEnd {
				continue
			}
			candidate := FormatClock(m/60, m%60)
			if _, taken := occupied[candidate]; taken {
				continue
			}
			if !yield(candidate) {
				return
			}
		}
	}, nil
}

// SlotList materializes Slots into a slice.
func SlotList(w Window, occupied map[string]struct{}, slotMinutes int) ([]string, error) {
	seq, err := Slots(w, occupied, slotMinutes)
	if err != nil {
		return nil, err
	}
	var slots []string
	for s := range seq {
		slots = append(slots, s)
	}
	return slots, nil
}
