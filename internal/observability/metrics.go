package observability

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/helixir/research-analytics-service/internal/domain"
)

// Metrics contains all Prometheus metrics for the research analytics service.
// Metrics are organized by subsystem: store requests, pipeline stages,
// analytics use cases, and the HTTP API. All counters and histograms are
// registered via promauto with the default Prometheus registry.
//
// The Record methods are safe to call on a nil *Metrics, which lets tests
// and tools run without a registry.
type Metrics struct {
	// StoreRequestsTotal counts store requests, labeled by backend, table, and operation.
	StoreRequestsTotal *prometheus.CounterVec

	// StoreRequestsFailed counts failed store requests, labeled by backend, table, and operation.
	StoreRequestsFailed *prometheus.CounterVec

	// StoreRequestDuration observes store request duration in seconds, labeled by backend and operation.
	StoreRequestDuration *prometheus.HistogramVec

	// StoreRowsReturned observes the number of rows per select, labeled by table.
	StoreRowsReturned *prometheus.HistogramVec

	// FetchPages observes the number of pages read per paged fetch, labeled by table.
	FetchPages *prometheus.HistogramVec

	// FetchRowCapHits counts paged fetches stopped by their row cap, labeled by table.
	FetchRowCapHits *prometheus.CounterVec

	// JoinChunks counts membership-filter chunks resolved, labeled by table.
	JoinChunks *prometheus.CounterVec

	// UseCaseRequests counts analytics use case executions, labeled by use case.
	UseCaseRequests *prometheus.CounterVec

	// UseCaseFailed counts failed use case executions, labeled by use case and reason.
	UseCaseFailed *prometheus.CounterVec

	// UseCaseDuration observes use case duration in seconds, labeled by use case.
	UseCaseDuration *prometheus.HistogramVec

	// HTTPRequestsTotal counts HTTP requests, labeled by route, method, and status code.
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration observes HTTP request duration in seconds, labeled by route and method.
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		// Store
		StoreRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_total",
			Help:      "Total number of requests to the remote store",
		}, []string{"backend", "table", "op"}),
		StoreRequestsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_requests_failed_total",
			Help:      "Total number of failed requests to the remote store",
		}, []string{"backend", "table", "op"}),
		StoreRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Duration of remote store requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"backend", "op"}),
		StoreRowsReturned: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_rows_returned",
			Help:      "Number of rows returned per store select",
			Buckets:   []float64{0, 1, 10, 50, 100, 250, 500, 1000, 5000},
		}, []string{"table"}),

		// Pipeline
		FetchPages: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_pages",
			Help:      "Number of pages read per paged fetch",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50, 100, 200},
		}, []string{"table"}),
		FetchRowCapHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_row_cap_hits_total",
			Help:      "Total number of paged fetches stopped by their row cap",
		}, []string{"table"}),
		JoinChunks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "join_chunks_total",
			Help:      "Total number of membership-filter chunks resolved",
		}, []string{"table"}),

		// Use cases
		UseCaseRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "use_case_requests_total",
			Help:      "Total number of analytics use case executions",
		}, []string{"use_case"}),
		UseCaseFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "use_case_failed_total",
			Help:      "Total number of failed analytics use case executions",
		}, []string{"use_case", "reason"}),
		UseCaseDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "use_case_duration_seconds",
			Help:      "Duration of analytics use cases in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"use_case"}),

		// HTTP
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// RecordStoreRequest records one store request.
func (m *Metrics) RecordStoreRequest(backend, table, op string, duration time.Duration, rows int, err error) {
	if m == nil {
		return
	}
	m.StoreRequestsTotal.WithLabelValues(backend, table, op).Inc()
	m.StoreRequestDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
	if err != nil {
		m.StoreRequestsFailed.WithLabelValues(backend, table, op).Inc()
		return
	}
	if op == "select" {
		m.StoreRowsReturned.WithLabelValues(table).Observe(float64(rows))
	}
}

// RecordFetch records one paged fetch.
func (m *Metrics) RecordFetch(table string, pages, _ int, capped bool) {
	if m == nil {
		return
	}
	m.FetchPages.WithLabelValues(table).Observe(float64(pages))
	if capped {
		m.FetchRowCapHits.WithLabelValues(table).Inc()
	}
}

// RecordChunks records the chunks of one resolved join.
func (m *Metrics) RecordChunks(table string, chunks int) {
	if m == nil {
		return
	}
	m.JoinChunks.WithLabelValues(table).Add(float64(chunks))
}

// RecordUseCase records one use case execution.
func (m *Metrics) RecordUseCase(useCase string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.UseCaseRequests.WithLabelValues(useCase).Inc()
	m.UseCaseDuration.WithLabelValues(useCase).Observe(duration.Seconds())
	if err != nil {
		m.UseCaseFailed.WithLabelValues(useCase, FailureReason(err)).Inc()
	}
}

// RecordHTTPRequest records one HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// FailureReason maps an error to a low-cardinality metric label.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrServiceUnavailable):
		return "unavailable"
	default:
		return "internal"
	}
}
