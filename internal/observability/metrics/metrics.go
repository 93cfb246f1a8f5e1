package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for appointment booking flows.
type SchedulingMetrics struct {
	bookingsTotal  *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "bookings_total",
			Help:      "Total appointment operations by outcome",
		}, []string{"operation", "status"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "conflicts_total",
			Help:      "Total booking conflicts by resource kind",
		}, []string{"resource"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.conflictsTotal)
	return m
}

func (m *SchedulingMetrics) ObserveOperation(operation, status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, status).Inc()
}

func (m *SchedulingMetrics) ObserveConflict(resource string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(resource).Inc()
}

// DispatchMetrics exposes counters/histograms for reminder dispatch cycles.
type DispatchMetrics struct {
	remindersTotal *prometheus.CounterVec
	sendLatency    *prometheus.HistogramVec
	cycleDue       prometheus.Histogram
}

func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	m := &DispatchMetrics{
		remindersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "dispatched_total",
			Help:      "Total reminder dispatch outcomes",
		}, []string{"channel", "outcome"}),
		sendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "send_latency_seconds",
			Help:      "Latency of notification sink sends",
			Buckets:   prometheus.DefBuckets,
		}, []string{"channel"}),
		cycleDue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "reminders",
			Name:      "cycle_due_count",
			Help:      "Reminders claimed per dispatch cycle",
			Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.remindersTotal, m.sendLatency, m.cycleDue)
	return m
}

func (m *DispatchMetrics) ObserveOutcome(channel, outcome string) {
	if m == nil {
		return
	}
	m.remindersTotal.WithLabelValues(channel, outcome).Inc()
}

func (m *DispatchMetrics) ObserveSendLatency(channel string, seconds float64) {
	if m == nil {
		return
	}
	m.sendLatency.WithLabelValues(channel).Observe(seconds)
}

func (m *DispatchMetrics) ObserveCycleDue(count int) {
	if m == nil {
		return
	}
	m.cycleDue.Observe(float64(count))
}
