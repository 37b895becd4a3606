// Package metrics exposes Prometheus collectors for the routing, retrieval,
// quiz and task pipelines. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studypal"

// Collector holds every metric of the process on its own registry
type Collector struct {
	registry *prometheus.Registry

	requestsTotal     *prometheus.CounterVec
	retrievalsTotal   *prometheus.CounterVec
	retrievalKept     prometheus.Histogram
	quizItemsTotal    *prometheus.CounterVec
	llmRequestsTotal  *prometheus.CounterVec
	llmDuration       *prometheus.HistogramVec
	tasksTotal        *prometheus.CounterVec
	tasksRunning      prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
}

// New creates a Collector with a fresh registry
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	c := &Collector{
		registry: reg,
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "routed_requests_total",
			Help:      "Total number of routed requests by pipeline and status code",
		}, []string{"pipeline", "status"}),
		retrievalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrievals_total",
			Help:      "Total number of retrievals by outcome",
		}, []string{"status"}),
		retrievalKept: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieval_kept_chunks",
			Help:      "Number of chunks kept after threshold and cap",
			Buckets:   []float64{0, 1, 2, 3, 5},
		}),
		quizItemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quiz_items_total",
			Help:      "Total number of quiz items by producing strategy",
		}, []string{"strategy"}),
		llmRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Total number of LLM requests",
		}, []string{"provider", "operation", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "LLM request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"provider", "operation"}),
		tasksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_total",
			Help:      "Total number of background tasks by final status",
		}, []string{"status"}),
		tasksRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_running",
			Help:      "Number of background tasks currently running",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.requestsTotal,
		c.retrievalsTotal,
		c.retrievalKept,
		c.quizItemsTotal,
		c.llmRequestsTotal,
		c.llmDuration,
		c.tasksTotal,
		c.tasksRunning,
		c.httpRequestsTotal,
	)

	return c
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

func (c *Collector) RecordRequest(pipeline string, status int) {
	if c == nil {
		return
	}
	c.requestsTotal.WithLabelValues(pipeline, statusLabel(status)).Inc()
}

func (c *Collector) RecordRetrieval(status string, kept int) {
	if c == nil {
		return
	}
	c.retrievalsTotal.WithLabelValues(status).Inc()
	c.retrievalKept.Observe(float64(kept))
}

func (c *Collector) RecordQuizItem(strategy string) {
	if c == nil {
		return
	}
	c.quizItemsTotal.WithLabelValues(strategy).Inc()
}

func (c *Collector) RecordLLM(provider, operation string, err error, d time.Duration) {
	if c == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.llmRequestsTotal.WithLabelValues(provider, operation, status).Inc()
	c.llmDuration.WithLabelValues(provider, operation).Observe(d.Seconds())
}

func (c *Collector) TaskStarted() {
	if c == nil {
		return
	}
	c.tasksRunning.Inc()
}

func (c *Collector) TaskFinished(status string) {
	if c == nil {
		return
	}
	c.tasksRunning.Dec()
	c.tasksTotal.WithLabelValues(status).Inc()
}

func (c *Collector) RecordHTTP(method, route string, status int) {
	if c == nil {
		return
	}
	c.httpRequestsTotal.WithLabelValues(method, route, statusLabel(status)).Inc()
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
