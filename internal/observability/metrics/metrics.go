package metrics

import "github.com/prometheus/client_golang/prometheus"

// BookingMetrics exposes counters for the scheduling engine.
type BookingMetrics struct {
	bookingsTotal      *prometheus.CounterVec
	confirmationsTotal *prometheus.CounterVec
	cancellationsTotal prometheus.Counter
	smsTotal           *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "create_total",
			Help:      "Total booking attempts by outcome",
		}, []string{"result"}),
		confirmationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "confirm_total",
			Help:      "Total confirmation attempts by outcome",
		}, []string{"result"}),
		cancellationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "cancel_total",
			Help:      "Total cancellations",
		}),
		smsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "sms_total",
			Help:      "Total SMS dispatch attempts by delivery outcome",
		}, []string{"delivered"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.confirmationsTotal, m.cancellationsTotal, m.smsTotal)
	return m
}

func (m *BookingMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveConfirmation(result string) {
	if m == nil {
		return
	}
	m.confirmationsTotal.WithLabelValues(result).Inc()
}

func (m *BookingMetrics) ObserveCancellation() {
	if m == nil {
		return
	}
	m.cancellationsTotal.Inc()
}

func (m *BookingMetrics) ObserveSMS(delivered bool) {
	if m == nil {
		return
	}
	label := "false"
	if delivered {
		label = "true"
	}
	m.smsTotal.WithLabelValues(label).Inc()
}
