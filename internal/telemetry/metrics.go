// Package telemetry exposes Prometheus collectors for the insight service.
package telemetry

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scrapeJobsTotal            *prometheus.CounterVec
	admissionConflictsTotal    prometheus.Counter
	reviewsCollectedTotal      *prometheus.CounterVec
	collectorFailuresTotal     *prometheus.CounterVec
	cascadeRunsTotal           *prometheus.CounterVec
	reviewsScoredTotal         prometheus.Counter
	activeWorkers              *prometheus.GaugeVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapeJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibefinder_scrape_jobs_total",
				Help: "Total number of scrape job attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		admissionConflictsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vibefinder_admission_conflicts_total",
				Help: "Trigger requests rejected because a job was already in flight.",
			},
		)

		reviewsCollectedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibefinder_reviews_collected_total",
				Help: "Total number of reviews persisted, labeled by source.",
			},
			[]string{"source"},
		)

		collectorFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibefinder_collector_failures_total",
				Help: "Collector invocation failures, labeled by source and severity.",
			},
			[]string{"source", "severity"},
		)

		cascadeRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vibefinder_cascade_runs_total",
				Help: "Insight cascade executions, labeled by result.",
			},
			[]string{"result"},
		)

		reviewsScoredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "vibefinder_reviews_scored_total",
				Help: "Reviews scored and marked processed by the cascade.",
			},
		)

		activeWorkers = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "vibefinder_active_workers",
				Help: "Number of workers currently processing a task, labeled by lane.",
			},
			[]string{"lane"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveJob increments the job attempt counter for the given outcome.
func ObserveJob(outcome string) {
	scrapeJobsTotal.WithLabelValues(outcome).Inc()
}

// ObserveAdmissionConflict counts a rejected duplicate trigger.
func ObserveAdmissionConflict() {
	admissionConflictsTotal.Inc()
}

// ObserveReviewsCollected adds persisted review counts for a source.
func ObserveReviewsCollected(source string, n int) {
	if n > 0 {
		reviewsCollectedTotal.WithLabelValues(source).Add(float64(n))
	}
}

// ObserveCollectorFailure counts one collector failure.
func ObserveCollectorFailure(source, severity string) {
	collectorFailuresTotal.WithLabelValues(source, severity).Inc()
}

// ObserveCascade counts one cascade run by result.
func ObserveCascade(result string) {
	cascadeRunsTotal.WithLabelValues(result).Inc()
}

// ObserveReviewsScored adds to the processed review counter.
func ObserveReviewsScored(n int) {
	if n > 0 {
		reviewsScoredTotal.Add(float64(n))
	}
}

// IncActiveWorkers increments the active workers gauge for a lane.
func IncActiveWorkers(lane string) {
	activeWorkers.WithLabelValues(lane).Inc()
}

// DecActiveWorkers decrements the active workers gauge for a lane.
func DecActiveWorkers(lane string) {
	activeWorkers.WithLabelValues(lane).Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
