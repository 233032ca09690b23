// Package metrics turns lifecycle events into Prometheus metrics.
package metrics

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tjfontaine/coursegate/internal/core/domain"
)

const namespace = "coursegate"

// Publisher implements ports.EventPublisher. Its collectors are registered on
// the registry passed to NewPublisher.
type Publisher struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
	RequestErrors    *prometheus.CounterVec
}

// NewPublisher registers the request collectors on reg.
func NewPublisher(reg prometheus.Registerer) *Publisher {
	factory := promauto.With(reg)

	return &Publisher{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests answered",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "request_errors_total",
				Help:      "Total number of requests that ended in the error envelope",
			},
			[]string{"code", "state"},
		),
	}
}

// Publish records event. Events with unexpected data are ignored.
func (p *Publisher) Publish(_ context.Context, event *domain.LifecycleEvent) error {
	switch event.Type {
	case domain.LifecycleEventRequestReceived:
		p.RequestsInFlight.Inc()

	case domain.LifecycleEventResponseSent:
		data, ok := event.Data.(domain.ResponseSentData)
		if !ok {
			return nil
		}
		p.RequestsInFlight.Dec()
		p.observe(data.Method, data.Route, data.Status, data.Duration)

	case domain.LifecycleEventRequestFailed:
		data, ok := event.Data.(domain.RequestFailedData)
		if !ok {
			return nil
		}
		p.RequestsInFlight.Dec()
		p.observe(data.Method, data.Route, data.Status, data.Duration)
		p.RequestErrors.WithLabelValues(string(data.Code), data.State).Inc()
	}
	return nil
}

func (p *Publisher) observe(method, route string, status int, d time.Duration) {
	p.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	p.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (p *Publisher) Close() error {
	return nil
}
