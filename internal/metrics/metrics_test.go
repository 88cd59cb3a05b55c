package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, func() int { return 3 })

	m.NotificationCreated("expense_added")
	m.NotificationCreated("expense_added")
	m.Push(PushDelivered)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}

	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[f.GetName()] += metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[f.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}

	if values["gestionale_notifications_created_total"] != 2 {
		t.Errorf("expected 2 notifications, got %v", values["gestionale_notifications_created_total"])
	}
	if values["gestionale_push_deliveries_total"] != 1 {
		t.Errorf("expected 1 push, got %v", values["gestionale_push_deliveries_total"])
	}
	if values["gestionale_push_connections"] != 3 {
		t.Errorf("expected 3 connections, got %v", values["gestionale_push_connections"])
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.NotificationCreated("x")
	m.Push(PushFailed)
}
