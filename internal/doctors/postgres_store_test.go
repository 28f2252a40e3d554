package doctors

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicbook/scheduler/internal/schedule"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return newPostgresStoreWithQuerier(mock, nil), mock
}

func expectProbe(mock pgxmock.PgxPoolIface, supported bool) {
	mock.ExpectQuery("SELECT EXISTS \\(SELECT 1 FROM information_schema.tables").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(supported))
}

func TestPostgresDoctorByID(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	specialty := "dentistry"

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id").
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "clinic_id", "first_name", "last_name", "specialty"}).
			AddRow(id, uuid.New(), uuid.New(), "Ion", "Ionescu", &specialty))

	doc, err := store.DoctorByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "dentistry", doc.Specialty)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDoctorNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery("SELECT (.+) FROM doctors WHERE id").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := store.DoctorByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrDoctorNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWeeklyScheduleNullableBreaks(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	breakStart, breakEnd := "12:00", "13:00"

	mock.ExpectQuery("SELECT day_of_week, start_time, end_time, break_start, break_end").
		WithArgs(doctorID).
		WillReturnRows(pgxmock.NewRows([]string{"day_of_week", "start_time", "end_time", "break_start", "break_end"}).
			AddRow(1, "08:00", "18:00", &breakStart, &breakEnd).
			AddRow(3, "09:00", "14:00", nil, nil))

	entries, err := store.WeeklySchedule(context.Background(), doctorID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "12:00", entries[0].BreakStart)
	assert.Empty(t, entries[1].BreakStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceWeeklyScheduleTransactional(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM weekly_schedules").
		WithArgs(doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO weekly_schedules").
		WithArgs(pgxmock.AnyArg(), doctorID, 1, "09:00", "17:00", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := store.ReplaceWeeklySchedule(context.Background(), doctorID, []schedule.WeeklyEntry{
		{DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSupportsOverridesProbeCached(t *testing.T) {
	store, mock := newMockStore(t)
	expectProbe(mock, true)

	ctx := context.Background()
	assert.True(t, store.SupportsOverrides(ctx))
	// Second call answers from the cache; no further query expected.
	assert.True(t, store.SupportsOverrides(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOverrideForDate(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	date := time.Date(2025, 6, 2, 15, 30, 0, 0, time.UTC)

	expectProbe(mock, true)
	mock.ExpectQuery("SELECT date, start_time, end_time, break_start, break_end").
		WithArgs(doctorID, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(pgxmock.NewRows([]string{"date", "start_time", "end_time", "break_start", "break_end"}).
			AddRow(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "10:00", "12:00", nil, nil))

	o, err := store.OverrideForDate(context.Background(), doctorID, date)
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, "10:00", o.StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOverrideForDateAbsent(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	expectProbe(mock, true)
	mock.ExpectQuery("SELECT date, start_time, end_time, break_start, break_end").
		WithArgs(doctorID, date).
		WillReturnError(pgx.ErrNoRows)

	o, err := store.OverrideForDate(context.Background(), doctorID, date)
	require.NoError(t, err)
	assert.Nil(t, o, "no override for the date is not an error")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresOverrideTierUnsupported(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	date := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	expectProbe(mock, false)

	o, err := store.OverrideForDate(context.Background(), doctorID, date)
	require.NoError(t, err)
	assert.Nil(t, o)

	n, err := store.ReplaceFutureOverrides(context.Background(), doctorID, date, []schedule.Override{
		{Date: date, StartTime: "10:00", EndTime: "12:00"},
	})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresReplaceFutureOverrides(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	expectProbe(mock, true)
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM availability_overrides").
		WithArgs(doctorID, from).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("INSERT INTO availability_overrides").
		WithArgs(pgxmock.AnyArg(), doctorID, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), "10:00", "12:00", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n, err := store.ReplaceFutureOverrides(context.Background(), doctorID, from, []schedule.Override{
		{Date: time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), StartTime: "10:00", EndTime: "12:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteOverrideNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	doctorID := uuid.New()
	overrideID := uuid.New()

	expectProbe(mock, true)
	mock.ExpectExec("DELETE FROM availability_overrides").
		WithArgs(overrideID, doctorID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := store.DeleteOverride(context.Background(), doctorID, overrideID)
	assert.ErrorIs(t, err, ErrOverrideNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
