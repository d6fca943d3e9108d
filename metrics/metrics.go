// Package metrics holds the prometheus collectors for portal operations.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all prometheus metrics
type Metrics struct {
	Operations       *prometheus.CounterVec
	OperationTime    *prometheus.HistogramVec
	DatesToggled     prometheus.Counter
	DatesNotFound    prometheus.Counter
	BookingsFetched  *prometheus.GaugeVec
	CalendarAdvances prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Portal operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		OperationTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Time taken by portal operations, browser launch included",
			Buckets:   []float64{5, 10, 20, 30, 60, 120, 300, 600},
		}, []string{"operation"}),
		DatesToggled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_toggled_total",
			Help:      "Calendar cells toggled",
		}),
		DatesNotFound: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dates_not_found_total",
			Help:      "Toggle batches stopped on a date missing from the calendar",
		}),
		BookingsFetched: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bookings_last_fetch",
			Help:      "Bookings returned by the last fetch",
		}, []string{"view"}),
		CalendarAdvances: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calendar_advances_total",
			Help:      "Next-period clicks issued",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
	}
}

// ObserveOperation records one finished operation.
func (m *Metrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationTime.WithLabelValues(operation).Observe(elapsed.Seconds())
}
