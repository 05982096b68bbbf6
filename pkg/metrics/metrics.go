package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	JobsInQueue          prometheus.Gauge
	ScrapesTotal         *prometheus.CounterVec
	ScrapeDuration       *prometheus.HistogramVec
	CallsTotal           *prometheus.CounterVec
	WebhookDeliveries    *prometheus.CounterVec
	CRMSyncAttemptsTotal *prometheus.CounterVec
	LeadScore            prometheus.Histogram
	initOnce             sync.Once
)

// Init registers every collector with the default registry. Safe to call more than once.
func Init() {
	initOnce.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	JobsInQueue = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "scrape_jobs_in_queue",
			Help: "Current number of scraping jobs waiting in the queue.",
		},
	)

	ScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scrapes_total",
			Help: "Total number of scrape attempts.",
		},
		[]string{"status", "error_type"}, // status: success, failure
	)

	ScrapeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scrape_duration_seconds",
			Help:    "Duration of scrape operations.",
			Buckets: []float64{1, 5, 10, 15, 30, 60, 120},
		},
		[]string{"domain"},
	)

	CallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "calls_total",
			Help: "Total number of outbound calls triggered.",
		},
		[]string{"provider", "status"},
	)

	WebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total number of outgoing webhook deliveries.",
		},
		[]string{"result"},
	)

	CRMSyncAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crm_sync_attempts_total",
			Help: "Total number of CRM sync attempts.",
		},
		[]string{"result"},
	)

	LeadScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lead_score",
			Help:    "Distribution of predicted lead scores.",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
}
