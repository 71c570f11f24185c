// Package metrics provides Prometheus metrics for batch execution and the
// HTTP API.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/warp/timeentry-engine/batch"
)

var (
	UnitsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeentry_batch_units_total",
			Help: "Total number of batch units settled, by kind and final state",
		},
		[]string{"kind", "state"},
	)
	UnitRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeentry_batch_unit_retries_total",
			Help: "Total number of scheduled unit retries",
		},
		[]string{"kind"},
	)
	UnitAttempts = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeentry_batch_unit_attempts",
			Help:    "Attempts needed until a unit settled",
			Buckets: []float64{1, 2, 3, 4, 5, 8},
		},
		[]string{"kind"},
	)
	UnitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeentry_batch_unit_duration_seconds",
			Help:    "Unit duration including retries, in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"kind", "state"},
	)
	RetryDelay = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeentry_batch_retry_delay_seconds",
			Help:    "Backoff delay scheduled before a retry",
			Buckets: []float64{.1, .25, .5, 1, 2, 4, 8, 10},
		},
		[]string{"kind"},
	)
	BatchesRun = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeentry_batches_total",
			Help: "Total number of batches run, by outcome",
		},
		[]string{"kind", "outcome"},
	)
	EntriesComputed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "timeentry_entries_computed_total",
			Help: "Total number of time entries computed",
		},
	)
	PremiumMinutes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeentry_premium_minutes_total",
			Help: "Classified premium minutes, by bucket",
		},
		[]string{"bucket"},
	)
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "timeentry_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "timeentry_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)

// BatchObserver feeds unit events of one batch kind into the counters above.
type BatchObserver struct {
	Kind string
}

var _ batch.Observer = BatchObserver{}

func (o BatchObserver) UnitRetrying(_ string, _ int, delay time.Duration, _ error) {
	UnitRetries.WithLabelValues(o.Kind).Inc()
	RetryDelay.WithLabelValues(o.Kind).Observe(delay.Seconds())
}

func (o BatchObserver) UnitFinished(_ string, state batch.State, attempts int, elapsed time.Duration) {
	UnitsFinished.WithLabelValues(o.Kind, string(state)).Inc()
	UnitAttempts.WithLabelValues(o.Kind).Observe(float64(attempts))
	UnitDuration.WithLabelValues(o.Kind, string(state)).Observe(elapsed.Seconds())
}

func RecordBatch(kind string, success bool) {
	outcome := "success"
	if !success {
		outcome = "partial_failure"
	}
	BatchesRun.WithLabelValues(kind, outcome).Inc()
}

// RecordEntry counts one computed entry and its premium buckets.
func RecordEntry(night, sunday, holiday, nightHoliday, sundayHoliday int) {
	EntriesComputed.Inc()
	PremiumMinutes.WithLabelValues("night").Add(float64(night))
	PremiumMinutes.WithLabelValues("sunday").Add(float64(sunday))
	PremiumMinutes.WithLabelValues("holiday").Add(float64(holiday))
	PremiumMinutes.WithLabelValues("night_holiday").Add(float64(nightHoliday))
	PremiumMinutes.WithLabelValues("sunday_holiday").Add(float64(sundayHoliday))
}

func RecordHTTPRequest(method, endpoint, status string, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}
