// Package metrics holds the application's custom Prometheus collectors. HTTP request
// metrics come from fiberprometheus; these cover notification and push activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Push delivery results
const (
	PushDelivered = "delivered"
	PushRelayed   = "relayed"
	PushOffline   = "offline"
	PushFailed    = "failed"
)

// Metrics is safe to use through a nil pointer, which records nothing
type Metrics struct {
	notifications *prometheus.CounterVec
	pushes        *prometheus.CounterVec
}

// New registers the collectors on reg. connections reports the live push channel count.
func New(reg prometheus.Registerer, connections func() int) *Metrics {
	m := &Metrics{
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gestionale",
			Name:      "notifications_created_total",
			Help:      "Notifications persisted, by notification type.",
		}, []string{"type"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gestionale",
			Name:      "push_deliveries_total",
			Help:      "Push attempts after a notification was persisted, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.notifications, m.pushes)
	if connections != nil {
		reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "gestionale",
			Name:      "push_connections",
			Help:      "Live websocket push channels on this instance.",
		}, func() float64 { return float64(connections()) }))
	}
	return m
}

// NotificationCreated counts a persisted notification
func (m *Metrics) NotificationCreated(notificationType string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(notificationType).Inc()
}

// Push counts a push attempt outcome
func (m *Metrics) Push(result string) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(result).Inc()
}
