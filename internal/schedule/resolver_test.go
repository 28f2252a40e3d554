package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	// 2025-06-02 is a Monday.
	monday  = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	tuesday = time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)
)

func TestResolveWindowOverrideWinsWholesale(t *testing.T) {
	weekly := []WeeklyEntry{
		{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "12:00", BreakEnd: "13:00"},
	}
	overrides := []Override{
		{Date: monday, StartTime: "10:00", EndTime: "14:00"},
	}

	w, ok := ResolveWindow(weekly, overrides, monday)
	require.True(t, ok)
	assert.Equal(t, "10:00", w.StartTime)
	assert.Equal(t, "14:00", w.EndTime)
	// The weekly break is not merged in.
	assert.False(t, w.HasBreak())
}

func TestResolveWindowOverrideIsDateExact(t *testing.T) {
	weekly := []WeeklyEntry{
		{DayOfWeek: 2, StartTime: "09:00", EndTime: "17:00"},
	}
	overrides := []Override{
		{Date: monday, StartTime: "10:00", EndTime: "14:00"},
	}

	w, ok := ResolveWindow(weekly, overrides, tuesday)
	require.True(t, ok)
	assert.Equal(t, "09:00", w.StartTime)
	assert.Equal(t, "17:00", w.EndTime)
}

func TestResolveWindowOverrideMatchesAnyTimeComponent(t *testing.T) {
	overrides := []Override{
		{Date: time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC), StartTime: "10:00", EndTime: "14:00"},
	}

	_, ok := ResolveWindow(nil, overrides, monday)
	assert.True(t, ok, "override match is by calendar day, not instant equality")
}

func TestResolveWindowFallsBackToWeekly(t *testing.T) {
	weekly := []WeeklyEntry{
		{DayOfWeek: 0, StartTime: "10:00", EndTime: "12:00"},
		{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "12:00", BreakEnd: "13:00"},
	}

	w, ok := ResolveWindow(weekly, nil, monday)
	require.True(t, ok)
	assert.Equal(t, "08:00", w.StartTime)
	assert.Equal(t, "18:00", w.EndTime)
	assert.True(t, w.HasBreak())
}

func TestResolveWindowNoScheduleNoOverride(t *testing.T) {
	_, ok := ResolveWindow(nil, nil, monday)
	assert.False(t, ok)

	weekly := []WeeklyEntry{{DayOfWeek: 3, StartTime: "08:00", EndTime: "12:00"}}
	_, ok = ResolveWindow(weekly, nil, monday)
	assert.False(t, ok)
}

func TestWeeklyEntryValidate(t *testing.T) {
	tests := []struct {
		name    string
		entry   WeeklyEntry
		wantErr error
	}{
		{"valid", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00"}, nil},
		{"valid with break", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "12:00", BreakEnd: "13:00"}, nil},
		{"break at edges", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "08:00", BreakEnd: "18:00"}, nil},
		{"day out of range", WeeklyEntry{DayOfWeek: 7, StartTime: "08:00", EndTime: "18:00"}, ErrInvalidWindow},
		{"negative day", WeeklyEntry{DayOfWeek: -1, StartTime: "08:00", EndTime: "18:00"}, ErrInvalidWindow},
		{"start after end", WeeklyEntry{DayOfWeek: 1, StartTime: "18:00", EndTime: "08:00"}, ErrInvalidWindow},
		{"start equals end", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "08:00"}, ErrInvalidWindow},
		{"half break", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "12:00"}, ErrInvalidWindow},
		{"break before start", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "07:00", BreakEnd: "09:00"}, ErrInvalidWindow},
		{"break past end", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "17:00", BreakEnd: "19:00"}, ErrInvalidWindow},
		{"inverted break", WeeklyEntry{DayOfWeek: 1, StartTime: "08:00", EndTime: "18:00", BreakStart: "13:00", BreakEnd: "12:00"}, ErrInvalidWindow},
		{"bad clock", WeeklyEntry{DayOfWeek: 1, StartTime: "8am", EndTime: "18:00"}, ErrMalformedTime},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.entry.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestOverrideValidate(t *testing.T) {
	valid := Override{Date: monday, StartTime: "10:00", EndTime: "14:00"}
	assert.NoError(t, valid.Validate())

	missingDate := Override{StartTime: "10:00", EndTime: "14:00"}
	assert.ErrorIs(t, missingDate.Validate(), ErrInvalidWindow)

	inverted := Override{Date: monday, StartTime: "14:00", EndTime: "10:00"}
	assert.ErrorIs(t, inverted.Validate(), ErrInvalidWindow)
}
