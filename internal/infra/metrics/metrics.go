package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leadsTriaged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_triaged_total",
			Help: "Lead status changes decided by triage",
		},
		[]string{"status"},
	)

	leadStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lead_status_changes_total",
			Help: "Lead status changes outside triage (manual, booking, proposal)",
		},
		[]string{"status"},
	)

	bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_total",
			Help: "Booking attempts by outcome",
		},
		[]string{"outcome"},
	)

	notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notifications by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	remindersSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_reminders_total",
			Help: "24h reminders marked on qualified leads",
		},
	)
)

func RecordLeadTriaged(status string) {
	leadsTriaged.WithLabelValues(status).Inc()
}

func RecordStatusChange(status string) {
	leadStatusChanges.WithLabelValues(status).Inc()
}

func RecordBooking(outcome string) {
	bookings.WithLabelValues(outcome).Inc()
}

func RecordNotification(kind, outcome string) {
	notifications.WithLabelValues(kind, outcome).Inc()
}

func RecordReminders(n int) {
	remindersSent.Add(float64(n))
}
