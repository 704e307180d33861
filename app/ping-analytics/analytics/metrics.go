package analytics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metricsCollector holds the prometheus metrics for the analytics service on a private registry.
// a nil *metricsCollector records nothing
type metricsCollector struct {
	reg *prometheus.Registry

	requests           *prometheus.CounterVec // labels: route, code
	requestDuration    *prometheus.HistogramVec
	regionQueries      *prometheus.CounterVec // label: result ok|error
	regionQueryLatency prometheus.Histogram
	pingsFetched       prometheus.Counter
	malformedRecords   prometheus.Counter
	speedPublishErrors prometheus.Counter
}

// makeMetricsCollector creates and registers all analytics metrics
func makeMetricsCollector() *metricsCollector {
	reg := prometheus.NewRegistry()
	m := &metricsCollector{
		reg: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ping_analytics_requests_total",
			Help: "Analytic requests served by route and http status code.",
		}, []string{"route", "code"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ping_analytics_request_duration_seconds",
			Help:    "Time taken to answer analytic requests.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}, []string{"route"}),
		regionQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "ping_analytics_region_queries_total",
			Help: "Region queries issued to the point store by result.",
		}, []string{"result"}),
		regionQueryLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "ping_analytics_region_query_duration_seconds",
			Help:    "Duration of individual point store region queries.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		pingsFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ping_analytics_pings_fetched_total",
			Help: "Ping records returned by the point store.",
		}),
		malformedRecords: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ping_analytics_malformed_records_total",
			Help: "Ping records skipped because required fields were missing.",
		}),
		speedPublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ping_analytics_speed_publish_errors_total",
			Help: "Failures publishing line speed results to nats.",
		}),
	}
	reg.MustRegister(
		m.requests, m.requestDuration,
		m.regionQueries, m.regionQueryLatency,
		m.pingsFetched, m.malformedRecords, m.speedPublishErrors,
	)
	return m
}

// handler serves the collector's registry in prometheus exposition format
func (m *metricsCollector) handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *metricsCollector) observeRequest(route string, code int, took time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(route).Observe(took.Seconds())
}

func (m *metricsCollector) observeRegionQuery(took time.Duration, recordCount int, err error) {
	if m == nil {
		return
	}
	m.regionQueryLatency.Observe(took.Seconds())
	if err != nil {
		m.regionQueries.WithLabelValues("error").Inc()
		return
	}
	m.regionQueries.WithLabelValues("ok").Inc()
	m.pingsFetched.Add(float64(recordCount))
}

func (m *metricsCollector) addMalformedRecords(count int) {
	if m == nil || count == 0 {
		return
	}
	m.malformedRecords.Add(float64(count))
}

func (m *metricsCollector) speedPublishFailed() {
	if m == nil {
		return
	}
	m.speedPublishErrors.Inc()
}
