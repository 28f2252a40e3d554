package events

import (
	"context"
	"time"

	"github.com/clinicbook/scheduler/internal/notify"
	"github.com/clinicbook/scheduler/internal/observability/metrics"
	"github.com/clinicbook/scheduler/pkg/logging"
)

// Deliverer polls the outbox and pushes pending texts through the SMS
// transport. Undelivered messages stay queued and are retried on the
// next tick.
type Deliverer struct {
	outbox      *Outbox
	sender      notify.Sender
	recorder    notify.DeliveryRecorder
	metrics     *metrics.BookingMetrics
	logger      *logging.Logger
	batchSize   int32
	interval    time.Duration
	sendTimeout time.Duration
}

// NewDeliverer wires the drain loop; recorder may be nil.
func NewDeliverer(outbox *Outbox, sender notify.Sender, recorder notify.DeliveryRecorder, logger *logging.Logger) *Deliverer {
	if logger == nil {
		logger = logging.Default()
	}
	return &Deliverer{
		outbox:      outbox,
		sender:      sender,
		recorder:    recorder,
		logger:      logger,
		batchSize:   25,
		interval:    2 * time.Second,
		sendTimeout: 15 * time.Second,
	}
}

// WithBatchSize changes how many notifications one tick drains.
func (d *Deliverer) WithBatchSize(size int32) *Deliverer {
	if size > 0 {
		d.batchSize = size
	}
	return d
}

// WithInterval changes the polling cadence.
func (d *Deliverer) WithInterval(interval time.Duration) *Deliverer {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

// WithSendTimeout changes the per-message deadline.
func (d *Deliverer) WithSendTimeout(timeout time.Duration) *Deliverer {
	if timeout > 0 {
		d.sendTimeout = timeout
	}
	return d
}

// WithMetrics wires delivery counters.
func (d *Deliverer) WithMetrics(m *metrics.BookingMetrics) *Deliverer {
	d.metrics = m
	return d
}

// Start blocks draining the outbox until the context is cancelled.
func (d *Deliverer) Start(ctx context.Context) {
	if d.outbox == nil || d.sender == nil {
		return
	}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Deliverer) drain(ctx context.Context) {
	pending, err := d.outbox.FetchPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("outbox fetch failed", "error", err)
		return
	}
	for _, n := range pending {
		sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
		delivered := d.sender.SendText(sendCtx, n.Phone, n.Body)
		cancel()
		d.metrics.ObserveSMS(delivered)
		if !delivered {
			d.logger.Warn("sms not delivered, will retry", "notification_id", n.ID)
			continue
		}
		if ok, err := d.outbox.MarkDelivered(ctx, n.ID); err != nil {
			d.logger.Error("failed to mark notification delivered", "error", err, "notification_id", n.ID)
		} else if !ok {
			continue
		}
		if d.recorder != nil {
			if err := d.recorder.MarkSMSSent(ctx, n.AppointmentID); err != nil {
				d.logger.Warn("sms delivery not recorded", "error", err, "appointment_id", n.AppointmentID)
			}
		}
	}
}
