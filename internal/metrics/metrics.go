// Package metrics holds the prometheus collectors exported by the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "salon"

// Notification results.
const (
	NotificationSent    = "sent"
	NotificationFailed  = "failed"
	NotificationDropped = "dropped"
)

type Metrics struct {
	appointments  *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		appointments: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "appointments_total",
			Help:      "Scheduling operations by action and outcome.",
		}, []string{"action", "outcome"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Appointment notifications by delivery result.",
		}, []string{"result"}),
	}
}

// Appointment records one scheduling operation. A nil receiver is a no-op.
func (m *Metrics) Appointment(action, outcome string) {
	if m == nil {
		return
	}
	m.appointments.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) Notification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}
