package doctors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/scheduler/internal/schedule"
	"github.com/clinicbook/scheduler/pkg/logging"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresStore persists the directory and schedules. Whether the
// override tier exists is probed once against information_schema and
// cached for the process lifetime.
type PostgresStore struct {
	db     querier
	logger *logging.Logger

	probeOnce    sync.Once
	hasOverrides bool
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool, logger *logging.Logger) *PostgresStore {
	if pool == nil {
		panic("doctors: pgx pool required")
	}
	return newPostgresStoreWithQuerier(pool, logger)
}

func newPostgresStoreWithQuerier(db querier, logger *logging.Logger) *PostgresStore {
	if db == nil {
		panic("doctors: querier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PostgresStore{db: db, logger: logger}
}

func (s *PostgresStore) DoctorByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	query := `SELECT id, user_id, clinic_id, first_name, last_name, specialty FROM doctors WHERE id = $1`
	var d Doctor
	var specialty *string
	err := s.db.QueryRow(ctx, query, id).Scan(&d.ID, &d.UserID, &d.ClinicID, &d.FirstName, &d.LastName, &specialty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("doctors: select doctor: %w", err)
	}
	if specialty != nil {
		d.Specialty = *specialty
	}
	return &d, nil
}

func (s *PostgresStore) PatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	query := `SELECT id, user_id, first_name, last_name, phone FROM patients WHERE id = $1`
	var p Patient
	var phone *string
	err := s.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("doctors: select patient: %w", err)
	}
	if phone != nil {
		p.Phone = *phone
	}
	return &p, nil
}

func (s *PostgresStore) ClinicByID(ctx context.Context, id uuid.UUID) (*Clinic, error) {
	query := `SELECT id, name FROM clinics WHERE id = $1`
	var c Clinic
	err := s.db.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrClinicNotFound
		}
		return nil, fmt.Errorf("doctors: select clinic: %w", err)
	}
	return &c, nil
}

func (s *PostgresStore) IsClinicAdmin(ctx context.Context, clinicID, userID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM clinic_admins WHERE clinic_id = $1 AND user_id = $2)`
	var isAdmin bool
	if err := s.db.QueryRow(ctx, query, clinicID, userID).Scan(&isAdmin); err != nil {
		return false, fmt.Errorf("doctors: check clinic admin: %w", err)
	}
	return isAdmin, nil
}

func (s *PostgresStore) WeeklySchedule(ctx context.Context, doctorID uuid.UUID) ([]schedule.WeeklyEntry, error) {
	query := `
		SELECT day_of_week, start_time, end_time, break_start, break_end
		FROM weekly_schedules
		WHERE doctor_id = $1
		ORDER BY day_of_week
	`
	rows, err := s.db.Query(ctx, query, doctorID)
	if err != nil {
		return nil, fmt.Errorf("doctors: select weekly schedule: %w", err)
	}
	defer rows.Close()

	var out []schedule.WeeklyEntry
	for rows.Next() {
		var e schedule.WeeklyEntry
		var breakStart, breakEnd *string
		if err := rows.Scan(&e.DayOfWeek, &e.StartTime, &e.EndTime, &breakStart, &breakEnd); err != nil {
			return nil, fmt.Errorf("doctors: scan weekly entry: %w", err)
		}
		if breakStart != nil {
			e.BreakStart = *breakStart
		}
		if breakEnd != nil {
			e.BreakEnd = *breakEnd
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReplaceWeeklySchedule(ctx context.Context, doctorID uuid.UUID, entries []schedule.WeeklyEntry) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("doctors: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM weekly_schedules WHERE doctor_id = $1`, doctorID); err != nil {
		return fmt.Errorf("doctors: clear weekly schedule: %w", err)
	}
	insert := `
		INSERT INTO weekly_schedules (id, doctor_id, day_of_week, start_time, end_time, break_start, break_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, e := range entries {
		if _, err := tx.Exec(ctx, insert, uuid.New(), doctorID, e.DayOfWeek, e.StartTime, e.EndTime,
			nullable(e.BreakStart), nullable(e.BreakEnd)); err != nil {
			return fmt.Errorf("doctors: insert weekly entry: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("doctors: commit: %w", err)
	}
	return nil
}

// SupportsOverrides probes for the availability_overrides table. The
// result is cached; a failed probe counts as unsupported so availability
// keeps resolving from the weekly tier.
func (s *PostgresStore) SupportsOverrides(ctx context.Context) bool {
	s.probeOnce.Do(func() {
		query := `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name = 'availability_overrides')`
		if err := s.db.QueryRow(ctx, query).Scan(&s.hasOverrides); err != nil {
			s.logger.Warn("override table probe failed", "error", err)
			s.hasOverrides = false
		}
	})
	return s.hasOverrides
}

func (s *PostgresStore) OverrideForDate(ctx context.Context, doctorID uuid.UUID, date time.Time) (*schedule.Override, error) {
	if !s.SupportsOverrides(ctx) {
		return nil, nil
	}
	query := `
		SELECT date, start_time, end_time, break_start, break_end
		FROM availability_overrides
		WHERE doctor_id = $1 AND date = $2
	`
	o, err := scanOverride(s.db.QueryRow(ctx, query, doctorID, truncateToDate(date)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("doctors: select override: %w", err)
	}
	return o, nil
}

func (s *PostgresStore) FutureOverrides(ctx context.Context, doctorID uuid.UUID, from time.Time) ([]StoredOverride, error) {
	if !s.SupportsOverrides(ctx) {
		return nil, nil
	}
	query := `
		SELECT id, date, start_time, end_time, break_start, break_end
		FROM availability_overrides
		WHERE doctor_id = $1 AND date >= $2
		ORDER BY date
	`
	rows, err := s.db.Query(ctx, query, doctorID, truncateToDate(from))
	if err != nil {
		return nil, fmt.Errorf("doctors: select overrides: %w", err)
	}
	defer rows.Close()

	var out []StoredOverride
	for rows.Next() {
		var so StoredOverride
		var breakStart, breakEnd *string
		if err := rows.Scan(&so.ID, &so.Date, &so.StartTime, &so.EndTime, &breakStart, &breakEnd); err != nil {
			return nil, fmt.Errorf("doctors: scan override: %w", err)
		}
		if breakStart != nil {
			so.BreakStart = *breakStart
		}
		if breakEnd != nil {
			so.BreakEnd = *breakEnd
		}
		out = append(out, so)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ReplaceFutureOverrides(ctx context.Context, doctorID uuid.UUID, from time.Time, overrides []schedule.Override) (int, error) {
	if !s.SupportsOverrides(ctx) {
		return 0, nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("doctors: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_overrides WHERE doctor_id = $1 AND date >= $2`,
		doctorID, truncateToDate(from)); err != nil {
		return 0, fmt.Errorf("doctors: clear overrides: %w", err)
	}
	insert := `
		INSERT INTO availability_overrides (id, doctor_id, date, start_time, end_time, break_start, break_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for _, o := range overrides {
		if _, err := tx.Exec(ctx, insert, uuid.New(), doctorID, truncateToDate(o.Date), o.StartTime, o.EndTime,
			nullable(o.BreakStart), nullable(o.BreakEnd)); err != nil {
			return 0, fmt.Errorf("doctors: insert override: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("doctors: commit: %w", err)
	}
	return len(overrides), nil
}

func (s *PostgresStore) DeleteOverride(ctx context.Context, doctorID, overrideID uuid.UUID) error {
	if !s.SupportsOverrides(ctx) {
		return ErrOverrideNotFound
	}
	ct, err := s.db.Exec(ctx, `DELETE FROM availability_overrides WHERE id = $1 AND doctor_id = $2`, overrideID, doctorID)
	if err != nil {
		return fmt.Errorf("doctors: delete override: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrOverrideNotFound
	}
	return nil
}

func scanOverride(row pgx.Row) (*schedule.Override, error) {
	var o schedule.Override
	var breakStart, breakEnd *string
	if err := row.Scan(&o.Date, &o.StartTime, &o.EndTime, &breakStart, &breakEnd); err != nil {
		return nil, err
	}
	if breakStart != nil {
		o.BreakStart = *breakStart
	}
	if breakEnd != nil {
		o.BreakEnd = *breakEnd
	}
	return &o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

var _ Store = (*PostgresStore)(nil)
