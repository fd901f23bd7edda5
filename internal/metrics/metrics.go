// Package metrics exposes the node's Prometheus instrumentation.
// Every method is safe to call on a nil *Metrics, so components can run without it.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"iot-monitor/internal/models"
)

// Metrics holds the node's collectors and the registry that serves them
type Metrics struct {
	registry *prometheus.Registry

	monitorCycles      prometheus.Counter
	sensorFailures     prometheus.Counter
	levelTransitions   *prometheus.CounterVec
	displayState       prometheus.Gauge
	inferenceCycles    *prometheus.CounterVec
	inferenceAccuracy  prometheus.Gauge
	inferenceScore     prometheus.Gauge
	telemetryDropped   *prometheus.CounterVec
	telemetrySendError *prometheus.CounterVec
	breakerState       *prometheus.GaugeVec
	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// New creates the metric set on its own registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		monitorCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "monitor_cycles_total",
			Help: "Total acquisition cycles completed.",
		}),
		sensorFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sensor_read_failures_total",
			Help: "Total sensor reads that produced the sentinel reading.",
		}),
		levelTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "level_transitions_total",
			Help: "Total level transitions by dimension.",
		}, []string{"dimension"}),
		displayState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "display_state",
			Help: "Current display state (0 normal, 1 warning, 2 critical).",
		}),
		inferenceCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inference_cycles_total",
			Help: "Total inference cycles by result.",
		}, []string{"result"}),
		inferenceAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inference_accuracy_percent",
			Help: "Running accuracy of the model against the rule-based ground truth.",
		}),
		inferenceScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inference_score",
			Help: "Latest anomaly score.",
		}),
		telemetryDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_dropped_total",
			Help: "Telemetry messages dropped because a sink queue was full.",
		}, []string{"sink"}),
		telemetrySendError: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "telemetry_send_errors_total",
			Help: "Telemetry messages a sink failed to deliver.",
		}, []string{"sink"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "telemetry_breaker_state",
			Help: "Circuit breaker state gauge (0 closed, 1 half, 2 open).",
		}, []string{"sink"}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.monitorCycles,
		m.sensorFailures,
		m.levelTransitions,
		m.displayState,
		m.inferenceCycles,
		m.inferenceAccuracy,
		m.inferenceScore,
		m.telemetryDropped,
		m.telemetrySendError,
		m.breakerState,
		m.httpRequestsTotal,
		m.httpDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and latency for route
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		if m != nil {
			m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
			m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// MonitorCycle counts one completed acquisition cycle
func (m *Metrics) MonitorCycle() {
	if m == nil {
		return
	}
	m.monitorCycles.Inc()
}

// SensorFailure counts a read that fell back to the sentinel reading
func (m *Metrics) SensorFailure() {
	if m == nil {
		return
	}
	m.sensorFailures.Inc()
}

// LevelTransition counts a level change; dimension is "temperature" or "humidity"
func (m *Metrics) LevelTransition(dimension string) {
	if m == nil {
		return
	}
	m.levelTransitions.WithLabelValues(dimension).Inc()
}

// SetDisplayState records the resolved display state
func (m *Metrics) SetDisplayState(s models.DisplayState) {
	if m == nil {
		return
	}
	m.displayState.Set(float64(s))
}

// InferenceCycle counts an inference; result is "ok" or "error"
func (m *Metrics) InferenceCycle(result string) {
	if m == nil {
		return
	}
	m.inferenceCycles.WithLabelValues(result).Inc()
}

// SetInference records the latest score and running accuracy
func (m *Metrics) SetInference(score, accuracy float32) {
	if m == nil {
		return
	}
	m.inferenceScore.Set(float64(score))
	m.inferenceAccuracy.Set(float64(accuracy))
}

// TelemetryDropped counts a message dropped on a full sink queue
func (m *Metrics) TelemetryDropped(sink string) {
	if m == nil {
		return
	}
	m.telemetryDropped.WithLabelValues(sink).Inc()
}

// TelemetrySendFailed counts a message a sink failed to deliver
func (m *Metrics) TelemetrySendFailed(sink string) {
	if m == nil {
		return
	}
	m.telemetrySendError.WithLabelValues(sink).Inc()
}

// SetBreakerState records a sink's circuit breaker state
func (m *Metrics) SetBreakerState(sink string, state float64) {
	if m == nil {
		return
	}
	m.breakerState.WithLabelValues(sink).Set(state)
}
