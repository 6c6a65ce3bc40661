package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the bridge.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	fragmentsServedTotal prometheus.Counter
	watchdogChecksTotal  prometheus.Counter
	segmentsCurrent      prometheus.Gauge
	transcoderUp         prometheus.Gauge
}

// New creates and registers Prometheus metrics for the bridge.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtsp2hls_http_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtsp2hls_http_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	fragmentsServedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtsp2hls_fragments_served_total",
		Help: "Total number of media fragments served successfully",
	})
	watchdogChecksTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rtsp2hls_watchdog_checks_total",
		Help: "Total number of completed watchdog progress checks",
	})
	segmentsCurrent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rtsp2hls_segments_current",
		Help: "Number of media fragments currently in the segment directory",
	})
	transcoderUp := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rtsp2hls_transcoder_up",
		Help: "Whether the supervised transcoder process is running (1) or not (0)",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		fragmentsServedTotal,
		watchdogChecksTotal,
		segmentsCurrent,
		transcoderUp,
	)

	return &Metrics{
		registry:             registry,
		requestsTotal:        requestsTotal,
		errorsTotal:          errorsTotal,
		fragmentsServedTotal: fragmentsServedTotal,
		watchdogChecksTotal:  watchdogChecksTotal,
		segmentsCurrent:      segmentsCurrent,
		transcoderUp:         transcoderUp,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// IncFragmentsServed increments the served-fragments counter.
func (m *Metrics) IncFragmentsServed() {
	m.fragmentsServedTotal.Inc()
}

// IncWatchdogChecks increments the watchdog check counter.
func (m *Metrics) IncWatchdogChecks() {
	m.watchdogChecksTotal.Inc()
}

// SetSegmentsCurrent sets the current segment count gauge.
func (m *Metrics) SetSegmentsCurrent(n int) {
	m.segmentsCurrent.Set(float64(n))
}

// SetTranscoderUp sets the transcoder liveness gauge.
func (m *Metrics) SetTranscoderUp(up bool) {
	if up {
		m.transcoderUp.Set(1)
	} else {
		m.transcoderUp.Set(0)
	}
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values (e.g.
// current segment count).
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
