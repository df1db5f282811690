// Package metrics exposes Prometheus counters for tracker operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// activityOperations counts session manager operations.
	// Labels:
	//   - operation: add, edit, toggle, delete
	//   - result: ok, invalid, not_found, error
	activityOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_activity_operations_total",
			Help: "Total number of activity operations by result",
		},
		[]string{"operation", "result"},
	)

	// reminders counts reminder scheduling outcomes.
	// Labels:
	//   - outcome: scheduled, no_lead, denied, past, failed
	reminders = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_reminders_total",
			Help: "Total number of reminder scheduling attempts by outcome",
		},
		[]string{"outcome"},
	)

	// remindersDelivered counts reminders sent to users.
	remindersDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracker_reminders_delivered_total",
			Help: "Total number of fired reminders by delivery status",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(activityOperations)
	prometheus.MustRegister(reminders)
	prometheus.MustRegister(remindersDelivered)
}

// RecordOperation records one session manager operation.
func RecordOperation(operation, result string) {
	activityOperations.WithLabelValues(operation, result).Inc()
}

// RecordReminder records the outcome of a reminder scheduling attempt.
func RecordReminder(outcome string) {
	reminders.WithLabelValues(outcome).Inc()
}

// RecordDelivery records a fired reminder; status is "sent" or "failed".
func RecordDelivery(status string) {
	remindersDelivered.WithLabelValues(status).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
