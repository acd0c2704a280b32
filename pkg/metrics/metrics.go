package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Extraction metrics
	ExtractionsTotal      *prometheus.CounterVec
	ExtractionDuration    *prometheus.HistogramVec
	ExtractionsInProgress prometheus.Gauge
	RowsExtracted         *prometheus.CounterVec
	RowsDeduplicated      *prometheus.CounterVec
	BackfillDays          *prometheus.CounterVec

	// Upstream API metrics
	APICallsTotal *prometheus.CounterVec
	APIDuration   *prometheus.HistogramVec
	APIFailures   *prometheus.CounterVec
	RetriesTotal  *prometheus.CounterVec

	// Creative enrichment metrics
	EnrichmentLookups *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		HTTPRequestsInFlight: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
		),

		ExtractionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "extractions_total",
				Help: "Total number of per-account extraction runs",
			},
			[]string{"status"},
		),

		ExtractionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "extraction_duration_seconds",
				Help:    "Per-account extraction duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"account_id"},
		),

		ExtractionsInProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "extractions_in_progress",
				Help: "Number of account extractions currently in progress",
			},
		),

		RowsExtracted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rows_extracted_total",
				Help: "Total number of canonical rows produced",
			},
			[]string{"account_id"},
		),

		RowsDeduplicated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rows_deduplicated_total",
				Help: "Total number of duplicate rows dropped by identity key",
			},
			[]string{"account_id"},
		),

		BackfillDays: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backfill_days_total",
				Help: "Total number of single-day backfill fetches issued",
			},
			[]string{"account_id", "status"},
		),

		APICallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_api_calls_total",
				Help: "Total number of upstream API calls",
			},
			[]string{"endpoint", "status"},
		),

		APIDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "upstream_api_duration_seconds",
				Help:    "Upstream API call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		APIFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_api_failures_total",
				Help: "Total number of upstream API failures",
			},
			[]string{"endpoint", "error_type"},
		),

		RetriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "upstream_retries_total",
				Help: "Total number of fetch retries by error class",
			},
			[]string{"class"},
		),

		EnrichmentLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "enrichment_lookups_total",
				Help: "Total number of creative enrichment lookups",
			},
			[]string{"status"},
		),
	}
}

// HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// Per-account extraction outcome
func (m *Metrics) RecordExtraction(status, accountID string, duration time.Duration) {
	m.ExtractionsTotal.WithLabelValues(status).Inc()
	m.ExtractionDuration.WithLabelValues(accountID).Observe(duration.Seconds())
}

// Canonical row production
func (m *Metrics) RecordRows(accountID string, count int) {
	m.RowsExtracted.WithLabelValues(accountID).Add(float64(count))
}

// Duplicate rows dropped by identity key
func (m *Metrics) RecordDuplicate(accountID string) {
	m.RowsDeduplicated.WithLabelValues(accountID).Inc()
}

// Single-day backfill fetch outcome
func (m *Metrics) RecordBackfillDay(accountID, status string) {
	m.BackfillDays.WithLabelValues(accountID, status).Inc()
}

// Upstream API call metrics
func (m *Metrics) RecordAPICall(endpoint, status string, duration time.Duration) {
	m.APICallsTotal.WithLabelValues(endpoint, status).Inc()
	m.APIDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// Upstream API failure metrics
func (m *Metrics) RecordAPIFailure(endpoint, errorType string) {
	m.APIFailures.WithLabelValues(endpoint, errorType).Inc()
}

// Fetch retry by error class
func (m *Metrics) RecordRetry(class string) {
	m.RetriesTotal.WithLabelValues(class).Inc()
}

// Creative lookup outcome
func (m *Metrics) RecordEnrichmentLookup(status string) {
	m.EnrichmentLookups.WithLabelValues(status).Inc()
}

// Extractions in progress counter
func (m *Metrics) IncExtractionsInProgress() {
	m.ExtractionsInProgress.Inc()
}

// Extractions in progress counter
func (m *Metrics) DecExtractionsInProgress() {
	m.ExtractionsInProgress.Dec()
}

// HTTP requests in flight counter
func (m *Metrics) IncHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// HTTP requests in flight counter
func (m *Metrics) DecHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
