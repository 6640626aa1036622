// Package metrics defines Prometheus metrics for the storefront API.
//
// Metric naming follows Prometheus conventions:
//   - storefront_ prefix for all custom metrics
//   - _total suffix for counters
//   - _seconds suffix for duration histograms
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder owns a private registry. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	// AuthEventsTotal counts register/login/refresh/authenticate attempts by outcome.
	AuthEventsTotal *prometheus.CounterVec

	// RoleDenialsTotal counts requests turned away by a role gate.
	RoleDenialsTotal *prometheus.CounterVec

	// RequestDurationSeconds is a histogram of handler latency by operation and status.
	RequestDurationSeconds *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_auth_events_total",
				Help: "Authentication attempts by event and outcome.",
			},
			[]string{"event", "outcome"},
		),
		RoleDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "storefront_role_denials_total",
				Help: "Requests rejected for lacking a role.",
			},
			[]string{"role"},
		),
		RequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "storefront_request_duration_seconds",
				Help:    "Handler latency in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
	}

	r.registry.MustRegister(
		r.AuthEventsTotal,
		r.RoleDenialsTotal,
		r.RequestDurationSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// TrackAllowListSize exposes the refresh allow-list size as a gauge.
func (r *Recorder) TrackAllowListSize(size func() int) {
	if r == nil || size == nil {
		return
	}
	r.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "storefront_refresh_allowlist_size",
			Help: "Refresh tokens currently allow-listed in memory.",
		},
		func() float64 { return float64(size()) },
	))
}

func (r *Recorder) AuthEvent(event string, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	r.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

func (r *Recorder) RoleDenied(role string) {
	if r == nil {
		return
	}
	r.RoleDenialsTotal.WithLabelValues(role).Inc()
}

func (r *Recorder) ObserveRequest(operation, status string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestDurationSeconds.WithLabelValues(operation, status).Observe(elapsed.Seconds())
}

// Handler serves the registry in Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
