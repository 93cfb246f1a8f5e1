package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestSchedulingMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSchedulingMetrics(reg)
	m.ObserveOperation("create", "success")
	m.ObserveOperation("create", "conflict")
	m.ObserveConflict("doctor")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var found bool
	for _, mf := range families {
		if mf.GetName() == "clinic_scheduling_bookings_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, metric := range mf.GetMetric() {
				if metric.GetCounter().GetValue() != 1 {
					t.Fatalf("unexpected counter value: %v", metric.GetCounter().GetValue())
				}
			}
		}
	}
	if !found {
		t.Fatal("bookings counter not registered")
	}
}

func TestDispatchMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDispatchMetrics(reg)
	m.ObserveOutcome("email", "sent")
	m.ObserveSendLatency("email", 0.2)
	m.ObserveCycleDue(4)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	byName := map[string]*dto.MetricFamily{}
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}
	if byName["clinic_reminders_dispatched_total"] == nil {
		t.Fatal("dispatched counter not registered")
	}
	hist := byName["clinic_reminders_send_latency_seconds"]
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 1 {
		t.Fatal("expected one latency observation")
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var s *SchedulingMetrics
	s.ObserveOperation("create", "success")
	s.ObserveConflict("patient")

	var d *DispatchMetrics
	d.ObserveOutcome("sms", "failed")
	d.ObserveSendLatency("sms", 0.1)
	d.ObserveCycleDue(0)
}
