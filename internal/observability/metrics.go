package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	gradeCommitsTotal      prometheus.Counter
	gradingFinishesTotal   *prometheus.CounterVec
	reconcilerEventsTotal  *prometheus.CounterVec
	realtimeDegradedTotal  prometheus.Counter
	dashboardClientsActive prometheus.Gauge
	escalationsTotal       prometheus.Counter
	moderatorAssignsTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used across the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradesync_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gradesync_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradesync_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		gradeCommitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradesync_grade_commits_total",
			Help: "Total number of grades committed to the store.",
		})

		gradingFinishesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradesync_grading_finishes_total",
			Help: "Total number of grading passes finished, by terminal result.",
		}, []string{"result"})

		reconcilerEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gradesync_reconciler_events_total",
			Help: "Push events handled by the reconciler, by kind and outcome.",
		}, []string{"kind", "outcome"})

		realtimeDegradedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradesync_realtime_degraded_total",
			Help: "Times the push connection exhausted its retries.",
		})

		dashboardClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gradesync_dashboard_clients_active",
			Help: "Currently connected dashboard websocket clients.",
		})

		escalationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradesync_escalations_total",
			Help: "Submissions flagged for a second examiner opinion.",
		})

		moderatorAssignsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gradesync_moderator_assignments_total",
			Help: "Moderators assigned to escalated submissions.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			gradeCommitsTotal,
			gradingFinishesTotal,
			reconcilerEventsTotal,
			realtimeDegradedTotal,
			dashboardClientsActive,
			escalationsTotal,
			moderatorAssignsTotal,
		)
	})
}

// MetricsHandler exposes the Prometheus scrape endpoint via Fiber. It
// registers the collectors first so a scrape before the first request
// still sees every series.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.Handler())
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// GradeCommitsTotal exposes the grade commit counter.
func GradeCommitsTotal() prometheus.Counter {
	RegisterMetrics()
	return gradeCommitsTotal
}

// GradingFinishesTotal exposes the finish counter labelled by result.
func GradingFinishesTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return gradingFinishesTotal
}

// ReconcilerEventsTotal exposes the reconciler event counter.
func ReconcilerEventsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return reconcilerEventsTotal
}

// RealtimeDegradedTotal exposes the degraded-transport counter.
func RealtimeDegradedTotal() prometheus.Counter {
	RegisterMetrics()
	return realtimeDegradedTotal
}

// DashboardClientsActive exposes the connected dashboard client gauge.
func DashboardClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return dashboardClientsActive
}

// EscalationsTotal exposes the escalation counter.
func EscalationsTotal() prometheus.Counter {
	RegisterMetrics()
	return escalationsTotal
}

// ModeratorAssignmentsTotal exposes the moderator assignment counter.
func ModeratorAssignmentsTotal() prometheus.Counter {
	RegisterMetrics()
	return moderatorAssignsTotal
}
