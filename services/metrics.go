package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Kubolab-io/takkapp-v1-sub000/config"
)

type Metrics interface {
	IncGeneration(outcome string)
	AddEntriesCreated(count int)
	IncDecision(kind, outcome string)
	AddReconciled(updated, orphaned, failed int)
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	Handler() http.Handler
}

// Generation outcomes.
const (
	OutcomeExisting = "existing"
	OutcomeCreated  = "created"
	OutcomeDenied   = "denied"
	OutcomeFailed   = "failed"
	OutcomeOK       = "ok"
)

type prometheusMetrics struct {
	registry        *prometheus.Registry
	generations     *prometheus.CounterVec
	entriesCreated  prometheus.Counter
	decisions       *prometheus.CounterVec
	reconciled      *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// NewMetrics returns prometheus metrics on a private registry, or a noop
// implementation when metrics are disabled.
func NewMetrics(conf *config.Config) Metrics {
	if !conf.Metrics.Enabled {
		return NoopMetrics{}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &prometheusMetrics{
		registry: reg,
		generations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takk_match_generations_total",
			Help: "Generation cycles by outcome",
		}, []string{"outcome"}),
		entriesCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "takk_match_entries_created_total",
			Help: "Match pairs written by generation",
		}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takk_match_decisions_total",
			Help: "Accept and reject calls by outcome",
		}, []string{"kind", "outcome"}),
		reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takk_match_reconciled_entries_total",
			Help: "View entries touched by reconciliation",
		}, []string{"result"}),
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "takk_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "takk_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
	}
}

func (m *prometheusMetrics) IncGeneration(outcome string) {
	m.generations.WithLabelValues(outcome).Inc()
}

func (m *prometheusMetrics) AddEntriesCreated(count int) {
	m.entriesCreated.Add(float64(count))
}

func (m *prometheusMetrics) IncDecision(kind, outcome string) {
	m.decisions.WithLabelValues(kind, outcome).Inc()
}

func (m *prometheusMetrics) AddReconciled(updated, orphaned, failed int) {
	m.reconciled.WithLabelValues("updated").Add(float64(updated))
	m.reconciled.WithLabelValues("orphaned").Add(float64(orphaned))
	m.reconciled.WithLabelValues("failed").Add(float64(failed))
}

func (m *prometheusMetrics) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *prometheusMetrics) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *prometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

// NoopMetrics discards everything.
type NoopMetrics struct{}

func (NoopMetrics) IncGeneration(string)                         {}
func (NoopMetrics) AddEntriesCreated(int)                        {}
func (NoopMetrics) IncDecision(string, string)                   {}
func (NoopMetrics) AddReconciled(int, int, int)                  {}
func (NoopMetrics) IncRequestsTotal(string, int)                 {}
func (NoopMetrics) ObserveRequestDuration(string, time.Duration) {}
func (NoopMetrics) Handler() http.Handler                        { return http.NotFoundHandler() }
