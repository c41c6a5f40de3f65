// Package metrics exposes the front desk's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestDuration times calls to the remote attendance API.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "rollcall",
		Name:      "api_request_duration_seconds",
		Help:      "Latency of calls to the attendance API.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "outcome"})

	// AttendanceWrites counts individual per-student status writes.
	AttendanceWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "attendance_writes_total",
		Help:      "Per-student attendance writes by status and outcome.",
	}, []string{"status", "outcome"})

	// Submissions counts confirmed submissions by marking mode and outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "submissions_total",
		Help:      "Attendance submissions by marking mode and outcome.",
	}, []string{"mode", "outcome"})

	// ScheduleResolutions counts resolver outcomes.
	ScheduleResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "schedule_resolutions_total",
		Help:      "Schedule resolver outcomes.",
	}, []string{"outcome"})

	// LedgerMessages counts ledger messages handled by the worker.
	LedgerMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rollcall",
		Name:      "ledger_messages_total",
		Help:      "Submission reports consumed by the ledger worker.",
	}, []string{"outcome"})
)

// Outcome maps an error to the "ok"/"error" label value.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
