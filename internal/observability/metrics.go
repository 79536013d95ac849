package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	httpRequestsTotal      *prometheus.CounterVec
	httpLatencySeconds     *prometheus.HistogramVec
	httpErrorsTotal        *prometheus.CounterVec
	registrationOpsTotal   *prometheus.CounterVec
	scheduleConflictsTotal *prometheus.CounterVec
	courseCacheTotal       *prometheus.CounterVec
	uploadLatencySeconds   prometheus.Histogram
	uploadRejectedTotal    *prometheus.CounterVec
	assignmentsExpired     prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		registrationOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_operations_total",
			Help: "Cart and payment operations by outcome.",
		}, []string{"operation", "outcome"})

		scheduleConflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "schedule_conflicts_total",
			Help: "Rejected slots by conflict domain.",
		}, []string{"domain"})

		courseCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "course_cache_requests_total",
			Help: "Course detail cache lookups by result.",
		}, []string{"result"})

		uploadLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "upload_latency_seconds",
			Help:    "Time spent validating and storing uploads.",
			Buckets: prometheus.DefBuckets,
		})

		uploadRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "upload_rejected_total",
			Help: "Uploads rejected by reason.",
		}, []string{"reason"})

		assignmentsExpired = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assignments_expired_total",
			Help: "Assignments marked expired by the sweep.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			registrationOpsTotal,
			scheduleConflictsTotal,
			courseCacheTotal,
			uploadLatencySeconds,
			uploadRejectedTotal,
			assignmentsExpired,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// RegistrationOperations counts cart and payment outcomes.
func RegistrationOperations() *prometheus.CounterVec {
	RegisterMetrics()
	return registrationOpsTotal
}

// ScheduleConflicts counts rejected slots.
func ScheduleConflicts() *prometheus.CounterVec {
	RegisterMetrics()
	return scheduleConflictsTotal
}

// CourseCache counts course cache hits and misses.
func CourseCache() *prometheus.CounterVec {
	RegisterMetrics()
	return courseCacheTotal
}

// UploadLatency exposes the upload latency histogram.
func UploadLatency() prometheus.Histogram {
	RegisterMetrics()
	return uploadLatencySeconds
}

// UploadRejected counts rejected uploads.
func UploadRejected() *prometheus.CounterVec {
	RegisterMetrics()
	return uploadRejectedTotal
}

// AssignmentsExpired counts assignments persisted as expired.
func AssignmentsExpired() prometheus.Counter {
	RegisterMetrics()
	return assignmentsExpired
}
