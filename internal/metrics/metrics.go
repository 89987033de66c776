// Package metrics holds the Prometheus collectors. They register with the
// default registry on init and are scraped at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperplane_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "paperplane_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	ideaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperplane_idea_operations_total",
		Help: "Idea writes by operation and result",
	}, []string{"operation", "result"})

	fileUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperplane_file_uploads_total",
		Help: "Blob store uploads by result",
	}, []string{"result"})

	fileUploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paperplane_file_upload_bytes_total",
		Help: "Bytes accepted by the blob store",
	})

	fileAccess = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperplane_file_access_total",
		Help: "File reference requests by decision",
	}, []string{"decision"})

	logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paperplane_logins_total",
		Help: "Kakao logins, split into first-time and returning users",
	}, []string{"kind"})
)

// Label values shared by callers.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultDenied  = "denied"

	DecisionGranted = "granted"
	DecisionDenied  = "denied"

	LoginNew       = "new"
	LoginReturning = "returning"
)

// ObserveHTTPRequest records an HTTP request metric.
func ObserveHTTPRequest(method, route, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// ObserveIdeaOperation counts a create, update or delete with its outcome.
func ObserveIdeaOperation(operation, result string) {
	ideaOperations.WithLabelValues(operation, result).Inc()
}

// ObserveUpload counts a blob store upload; size is only added on success.
func ObserveUpload(result string, size int64) {
	fileUploads.WithLabelValues(result).Inc()
	if result == ResultSuccess && size > 0 {
		fileUploadBytes.Add(float64(size))
	}
}

// ObserveFileAccess counts a file reference request by decision.
func ObserveFileAccess(decision string) {
	fileAccess.WithLabelValues(decision).Inc()
}

// ObserveLogin counts a completed login.
func ObserveLogin(kind string) {
	logins.WithLabelValues(kind).Inc()
}
