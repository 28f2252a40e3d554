package notify

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/clinicbook/scheduler/internal/appointments"
	"github.com/clinicbook/scheduler/internal/observability/metrics"
	"github.com/clinicbook/scheduler/pkg/logging"
)

// DeliveryRecorder marks an appointment's code text as delivered.
// Satisfied by the appointments store.
type DeliveryRecorder interface {
	MarkSMSSent(ctx context.Context, id uuid.UUID) error
}

// DirectDispatcher sends each notification on a detached goroutine. The
// booking request's context does not cancel the send; each send gets its
// own timeout. Use the outbox dispatcher instead when delivery must
// survive a process restart.
type DirectDispatcher struct {
	sender   Sender
	recorder DeliveryRecorder
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

// NewDirectDispatcher wires the sender; recorder may be nil.
func NewDirectDispatcher(sender Sender, recorder DeliveryRecorder, logger *logging.Logger) *DirectDispatcher {
	if sender == nil {
		panic("notify: sender required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &DirectDispatcher{
		sender:   sender,
		recorder: recorder,
		logger:   logger,
		timeout:  15 * time.Second,
	}
}

// WithMetrics wires delivery counters.
func (d *DirectDispatcher) WithMetrics(m *metrics.BookingMetrics) *DirectDispatcher {
	d.metrics = m
	return d
}

// WithTimeout changes the per-send deadline.
func (d *DirectDispatcher) WithTimeout(timeout time.Duration) *DirectDispatcher {
	if timeout > 0 {
		d.timeout = timeout
	}
	return d
}

// Dispatch hands the notification to a background send and returns
// immediately.
func (d *DirectDispatcher) Dispatch(ctx context.Context, n appointments.Notification) {
	detached := context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		sendCtx, cancel := context.WithTimeout(detached, d.timeout)
		defer cancel()

		delivered := d.sender.SendText(sendCtx, n.Phone, n.Body)
		d.metrics.ObserveSMS(delivered)
		if !delivered {
			d.logger.Warn("sms not delivered", "appointment_id", n.AppointmentID)
			return
		}
		if d.recorder != nil {
			if err := d.recorder.MarkSMSSent(sendCtx, n.AppointmentID); err != nil {
				d.logger.Warn("sms delivery not recorded", "error", err, "appointment_id", n.AppointmentID)
			}
		}
	}()
}

// Wait blocks until all in-flight sends finish. Called on shutdown.
func (d *DirectDispatcher) Wait() {
	d.wg.Wait()
}

var _ appointments.NotificationDispatcher = (*DirectDispatcher)(nil)
