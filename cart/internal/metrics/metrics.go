package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	ResultSuccess  = "success"
	ResultNotFound = "not_found"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

var (
	CartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Total number of cart operations by result",
		},
		[]string{"operation", "result"},
	)

	CartCorruptLoadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cart_corrupt_loads_total",
			Help: "Total number of persisted carts discarded because they were malformed",
		},
	)

	CheckoutTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_transitions_total",
			Help: "Total number of checkout transitions by result",
		},
		[]string{"transition", "result"},
	)
)

var (
	StorageOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cart_storage_operation_duration_seconds",
			Help:    "Duration of cart storage operations in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"driver", "operation", "result"},
	)

	StorageBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cart_storage_breaker_state",
			Help: "Circuit breaker state of the cart storage, 0 closed, 1 half-open, 2 open",
		},
		[]string{"name"},
	)
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"handler", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"handler", "method", "status_code"},
	)
)

func ObserveStorage(driver, operation string, start time.Time, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailed
	}
	StorageOperationDuration.WithLabelValues(driver, operation, result).
		Observe(time.Since(start).Seconds())
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// Middleware records request count and latency labelled with the matched route template.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(recorder, r)

		handler := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				handler = tmpl
			}
		}
		statusCode := strconv.Itoa(recorder.statusCode)
		HTTPRequestsTotal.WithLabelValues(handler, r.Method, statusCode).Inc()
		HTTPRequestDuration.WithLabelValues(handler, r.Method, statusCode).
			Observe(time.Since(start).Seconds())
	})
}
