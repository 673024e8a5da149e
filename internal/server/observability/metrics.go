// Package observability holds the Prometheus metrics exported on /metrics.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result labels.
const (
	ResultSuccess    = "success"
	ResultConflict   = "conflict"
	ResultValidation = "validation"
	ResultInvalid    = "invalid_credentials"
	ResultError      = "error"
)

// Metrics contains the WinkLink metrics and the private registry serving them.
type Metrics struct {
	registry *prometheus.Registry

	RegistrationsTotal   *prometheus.CounterVec
	RegistrationDuration prometheus.Histogram
	LoginsTotal          *prometheus.CounterVec
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// NewMetrics creates the metrics on a fresh registry that also carries the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: reg,
		RegistrationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winklink_registrations_total",
				Help: "Total number of device registrations by result",
			},
			[]string{"result"},
		),
		RegistrationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "winklink_registration_duration_seconds",
				Help:    "Device registration duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winklink_logins_total",
				Help: "Total number of login attempts by result",
			},
			[]string{"result"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "winklink_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "winklink_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(m.RegistrationsTotal, m.RegistrationDuration, m.LoginsTotal,
		m.HTTPRequestsTotal, m.HTTPRequestDuration)

	return m
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) RecordRegistration(result string, d time.Duration) {
	m.RegistrationsTotal.WithLabelValues(result).Inc()
	m.RegistrationDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordLogin(result string) {
	m.LoginsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordHTTPRequest(method, route string, code int, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
