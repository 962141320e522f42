package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the checkout collectors. A nil *Metrics is valid and records
// nothing, so components can be built without a registry in tests.
type Metrics struct {
	seatLayoutLoads  *prometheus.CounterVec
	bookings         *prometheus.CounterVec
	payments         *prometheus.CounterVec
	authorityLatency *prometheus.HistogramVec
	activeCheckouts  prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		seatLayoutLoads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemax_seat_layout_loads_total",
				Help: "Seat layout loads by result",
			},
			[]string{"result"},
		),
		bookings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemax_bookings_total",
				Help: "Booking creation attempts by result",
			},
			[]string{"result"},
		),
		payments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cinemax_payments_total",
				Help: "Payment attempts by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		authorityLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cinemax_authority_request_duration_seconds",
				Help:    "Latency of calls to the booking authority",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		activeCheckouts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "cinemax_active_checkouts",
				Help: "Checkout sessions currently held in memory",
			},
		),
	}
}

func (m *Metrics) SeatLayoutLoaded(result string) {
	if m == nil {
		return
	}

	m.seatLayoutLoads.WithLabelValues(result).Inc()
}

func (m *Metrics) BookingAttempted(result string) {
	if m == nil {
		return
	}

	m.bookings.WithLabelValues(result).Inc()
}

func (m *Metrics) PaymentFinished(method, outcome string) {
	if m == nil {
		return
	}

	m.payments.WithLabelValues(method, outcome).Inc()
}

func (m *Metrics) ObserveAuthority(operation string, started time.Time) {
	if m == nil {
		return
	}

	m.authorityLatency.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

func (m *Metrics) SetActiveCheckouts(n int) {
	if m == nil {
		return
	}

	m.activeCheckouts.Set(float64(n))
}

// Counter values exposed for tests.

func (m *Metrics) BookingCounter(result string) prometheus.Counter {
	return m.bookings.WithLabelValues(result)
}

func (m *Metrics) PaymentCounter(method, outcome string) prometheus.Counter {
	return m.payments.WithLabelValues(method, outcome)
}

func (m *Metrics) SeatLayoutCounter(result string) prometheus.Counter {
	return m.seatLayoutLoads.WithLabelValues(result)
}
