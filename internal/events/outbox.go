package events

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicbook/scheduler/internal/appointments"
	"github.com/clinicbook/scheduler/pkg/logging"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PendingNotification is one queued text message.
type PendingNotification struct {
	ID            uuid.UUID
	AppointmentID uuid.UUID
	Phone         string
	Body          string
	CreatedAt     time.Time
}

// Outbox persists notifications for at-least-once delivery. Unlike the
// direct dispatcher, queued messages survive a process restart; the
// Deliverer drains them on a timer.
type Outbox struct {
	db     querier
	logger *logging.Logger
}

// NewOutbox initializes an outbox backed by pgxpool.
func NewOutbox(pool *pgxpool.Pool, logger *logging.Logger) *Outbox {
	if pool == nil {
		panic("events: pgx pool required")
	}
	return newOutboxWithQuerier(pool, logger)
}

func newOutboxWithQuerier(db querier, logger *logging.Logger) *Outbox {
	if db == nil {
		panic("events: querier required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Outbox{db: db, logger: logger}
}

// Dispatch enqueues the notification. Queueing failures are logged and
// swallowed: notifications are best-effort and must never fail a booking.
func (o *Outbox) Dispatch(ctx context.Context, n appointments.Notification) {
	query := `
		INSERT INTO notification_outbox (id, appointment_id, phone, body)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := o.db.Exec(ctx, query, uuid.New(), n.AppointmentID, n.Phone, n.Body); err != nil {
		o.logger.Error("outbox enqueue failed", "error", err, "appointment_id", n.AppointmentID)
	}
}

// FetchPending returns the oldest undelivered notifications.
func (o *Outbox) FetchPending(ctx context.Context, limit int32) ([]PendingNotification, error) {
	query := `
		SELECT id, appointment_id, phone, body, created_at
		FROM notification_outbox
		WHERE delivered_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`
	rows, err := o.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("events: fetch pending: %w", err)
	}
	defer rows.Close()

	var out []PendingNotification
	for rows.Next() {
		var n PendingNotification
		if err := rows.Scan(&n.ID, &n.AppointmentID, &n.Phone, &n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("events: scan pending: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkDelivered stamps the notification; false means another worker got
// there first.
func (o *Outbox) MarkDelivered(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
		UPDATE notification_outbox
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	ct, err := o.db.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("events: mark delivered: %w", err)
	}
	return ct.RowsAffected() == 1, nil
}

var _ appointments.NotificationDispatcher = (*Outbox)(nil)
