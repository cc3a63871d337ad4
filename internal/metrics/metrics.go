// Package metrics defines the service's Prometheus metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors, all registered on one registry.
//
//   - reach_analyze_requests_total{mode,outcome}
//   - reach_stream_chunks_total
//   - reach_upstream_duration_seconds{mode}
//   - reach_http_requests_total{method,route,status}
type Metrics struct {
	registry *prometheus.Registry

	AnalyzeRequests  *prometheus.CounterVec
	StreamChunks     prometheus.Counter
	UpstreamDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, along with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		AnalyzeRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reach_analyze_requests_total",
				Help: "Analyze requests by mode and outcome",
			},
			[]string{"mode", "outcome"}, // mode: stream|json; outcome: done|error|blocked|client_gone
		),
		StreamChunks: f.NewCounter(prometheus.CounterOpts{
			Name: "reach_stream_chunks_total",
			Help: "Chunk events relayed to clients",
		}),
		UpstreamDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reach_upstream_duration_seconds",
				Help:    "Time spent waiting on report generation",
				Buckets: []float64{1, 2.5, 5, 10, 20, 30, 45, 60, 90},
			},
			[]string{"mode"},
		),
		HTTPRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reach_http_requests_total",
				Help: "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
