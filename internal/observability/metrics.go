// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Window kinds recorded by RecordWindowServed.
const (
	WindowInitialFull    = "initial_full"
	WindowInitialChunked = "initial_chunked"
	WindowHistory        = "history"
	WindowRange          = "range"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	SeriesWrites     prometheus.Counter
	PointsWritten    prometheus.Counter
	WindowsServed    *prometheus.CounterVec
	WindowPoints     prometheus.Histogram
	SubscriberErrors prometheus.Counter

	// Transport metrics
	HTTPRequests  *prometheus.CounterVec
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	// Ingestion metrics
	SeriesLoaded   *prometheus.CounterVec
	LoadDuration   *prometheus.HistogramVec
	KafkaMessages  *prometheus.CounterVec
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "chart_pager"
	}

	return &Metrics{
		SeriesWrites: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "series_writes_total",
			Help:      "Total number of full series replacements",
		}),
		PointsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "points_written_total",
			Help:      "Total number of points written across all series",
		}),
		WindowsServed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "windows_served_total",
			Help:      "Total number of windows served by kind",
		}, []string{"kind"}),
		WindowPoints: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "window_points",
			Help:      "Number of points returned per window",
			Buckets:   []float64{0, 10, 50, 100, 250, 500, 1000, 5000, 10000},
		}),
		SubscriberErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "subscriber_errors_total",
			Help:      "Total number of failed subscriber callbacks",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		}, []string{"route", "code"}),
		WSConnections: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "connections",
			Help:      "Number of open WebSocket connections",
		}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "Total number of WebSocket messages received by type",
		}, []string{"type"}),

		SeriesLoaded: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "series_loaded_total",
			Help:      "Total number of series loaded from a source by status",
		}, []string{"source", "status"}),
		LoadDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "load_duration_seconds",
			Help:      "Duration of a full source load pass in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"source"}),
		KafkaMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "kafka_messages_total",
			Help:      "Total number of Kafka messages consumed by status",
		}, []string{"status"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Number of live UI sessions",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSeriesWrite records one SetSeriesData call.
func RecordSeriesWrite(points int) {
	DefaultMetrics.SeriesWrites.Inc()
	DefaultMetrics.PointsWritten.Add(float64(points))
}

// RecordWindowServed records a window returned to a caller.
func RecordWindowServed(kind string, points int) {
	DefaultMetrics.WindowsServed.WithLabelValues(kind).Inc()
	DefaultMetrics.WindowPoints.Observe(float64(points))
}

// RecordSubscriberError increments the failed callback counter.
func RecordSubscriberError() {
	DefaultMetrics.SubscriberErrors.Inc()
}

// RecordHTTPRequest records a served HTTP request.
func RecordHTTPRequest(route, code string) {
	DefaultMetrics.HTTPRequests.WithLabelValues(route, code).Inc()
}

// WSConnected and WSDisconnected track open WebSocket connections.
func WSConnected()    { DefaultMetrics.WSConnections.Inc() }
func WSDisconnected() { DefaultMetrics.WSConnections.Dec() }

// RecordWSMessage records an inbound WebSocket message.
func RecordWSMessage(msgType string) {
	DefaultMetrics.WSMessages.WithLabelValues(msgType).Inc()
}

// RecordSeriesLoaded records one series pulled from a source.
func RecordSeriesLoaded(source, status string) {
	DefaultMetrics.SeriesLoaded.WithLabelValues(source, status).Inc()
}

// RecordLoadPass records the duration of a loader pass.
func RecordLoadPass(source string, seconds float64) {
	DefaultMetrics.LoadDuration.WithLabelValues(source).Observe(seconds)
}

// RecordKafkaMessage records a consumed Kafka message.
func RecordKafkaMessage(status string) {
	DefaultMetrics.KafkaMessages.WithLabelValues(status).Inc()
}

// SetActiveSessions updates the session gauge.
func SetActiveSessions(n int) {
	DefaultMetrics.ActiveSessions.Set(float64(n))
}
