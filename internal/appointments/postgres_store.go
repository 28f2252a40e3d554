package appointments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists appointments in the relational database. The
// no-double-booking invariant is enforced by a partial unique index on
// (doctor_id, date_time) over active statuses, so concurrent inserts for
// the same slot are rejected by the database, not by in-process checks.
type PostgresStore struct {
	db querier
}

// NewPostgresStore initializes a store backed by pgxpool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db querier) *PostgresStore {
	if db == nil {
		panic("appointments: querier required")
	}
	return &PostgresStore{db: db}
}

const appointmentColumns = `id, patient_id, doctor_id, clinic_id, date_time, duration, status, sms_code, confirmed, sms_sent, notes, created_at`

// TryCreate inserts the appointment, translating the unique-index
// violation into ErrSlotTaken.
func (s *PostgresStore) TryCreate(ctx context.Context, appt *Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	query := `
		INSERT INTO appointments (id, patient_id, doctor_id, clinic_id, date_time, duration, status, sms_code, confirmed, sms_sent, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at
	`
	err := s.db.QueryRow(ctx, query,
		appt.ID,
		appt.PatientID,
		appt.DoctorID,
		appt.ClinicID,
		appt.DateTime,
		appt.Duration,
		appt.Status,
		appt.SMSCode,
		appt.Confirmed,
		appt.SMSSent,
		appt.Notes,
	).Scan(&appt.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// Get loads one appointment.
func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: select: %w", err)
	}
	return appt, nil
}

// List returns matching appointments ordered by date_time ascending.
func (s *PostgresStore) List(ctx context.Context, f Filter) ([]*Appointment, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, cond+" $"+strconv.Itoa(len(args)))
	}
	if f.PatientID != nil {
		add("patient_id =", *f.PatientID)
	}
	if f.DoctorID != nil {
		add("doctor_id =", *f.DoctorID)
	}
	if f.ClinicID != nil {
		add("clinic_id =", *f.ClinicID)
	}
	if f.Status != nil {
		add("status =", *f.Status)
	}
	if f.From != nil {
		add("date_time >=", *f.From)
	}
	if f.To != nil {
		add("date_time <=", *f.To)
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY date_time ASC"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, appt)
	}
	return out, rows.Err()
}

// OccupiedInstants returns the claimed instants for a doctor inside
// [from, to], restricted to the given statuses.
func (s *PostgresStore) OccupiedInstants(ctx context.Context, doctorID uuid.UUID, from, to time.Time, statuses []Status) ([]time.Time, error) {
	query := `
		SELECT date_time
		FROM appointments
		WHERE doctor_id = $1 AND date_time >= $2 AND date_time <= $3 AND status = ANY($4)
		ORDER BY date_time
	`
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	rows, err := s.db.Query(ctx, query, doctorID, from, to, names)
	if err != nil {
		return nil, fmt.Errorf("appointments: occupied instants: %w", err)
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var t time.Time
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("appointments: scan instant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MarkConfirmed flips the appointment to CONFIRMED.
func (s *PostgresStore) MarkConfirmed(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET confirmed = TRUE, status = $2
		WHERE id = $1
		RETURNING ` + appointmentColumns
	return s.returningUpdate(ctx, query, id, StatusConfirmed)
}

// MarkCancelled flips the appointment to CANCELLED; the row is retained.
func (s *PostgresStore) MarkCancelled(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2
		WHERE id = $1
		RETURNING ` + appointmentColumns
	return s.returningUpdate(ctx, query, id, StatusCancelled)
}

// MarkSMSSent records successful delivery of the code text.
func (s *PostgresStore) MarkSMSSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE appointments SET sms_sent = TRUE WHERE id = $1`
	ct, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("appointments: mark sms sent: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

// Move reassigns the appointment to a new instant. The partial unique
// index rejects the update when the target slot is already active, which
// keeps reschedules under the same invariant as creation.
func (s *PostgresStore) Move(ctx context.Context, id uuid.UUID, dateTime time.Time) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET date_time = $2
		WHERE id = $1
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, dateTime))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrSlotTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: move: %w", err)
	}
	return appt, nil
}

// UpdateNotes patches the free-text notes only.
func (s *PostgresStore) UpdateNotes(ctx context.Context, id uuid.UUID, notes string) (*Appointment, error) {
	query := `
		UPDATE appointments
		SET notes = $2
		WHERE id = $1
		RETURNING ` + appointmentColumns
	return s.returningUpdate(ctx, query, id, notes)
}

func (s *PostgresStore) returningUpdate(ctx context.Context, query string, id uuid.UUID, arg any) (*Appointment, error) {
	appt, err := scanAppointment(s.db.QueryRow(ctx, query, id, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("appointments: update: %w", err)
	}
	return appt, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	err := row.Scan(
		&appt.ID,
		&appt.PatientID,
		&appt.DoctorID,
		&appt.ClinicID,
		&appt.DateTime,
		&appt.Duration,
		&appt.Status,
		&appt.SMSCode,
		&appt.Confirmed,
		&appt.SMSSent,
		&appt.Notes,
		&appt.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &appt, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ Store = (*PostgresStore)(nil)
