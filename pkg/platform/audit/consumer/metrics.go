package consumer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts archive outcomes per event category.
type Metrics struct {
	Archived     *prometheus.CounterVec
	Skipped      *prometheus.CounterVec
	Failures     *prometheus.CounterVec
	BreakerState prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Archived: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_audit_archived_total",
			Help: "Events written to the audit archive by category",
		}, []string{"category"}),
		Skipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_audit_skipped_total",
			Help: "Events not archived by category and reason (malformed, breaker_open)",
		}, []string{"category", "reason"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "custody_audit_archive_failures_total",
			Help: "Archive write failures by category",
		}, []string{"category"}),
		BreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "custody_audit_ops_breaker_open",
			Help: "1 while best-effort archiving is paused after repeated failures",
		}),
	}
}

func (m *Metrics) archived(category string) {
	if m != nil {
		m.Archived.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) skipped(category, reason string) {
	if m != nil {
		m.Skipped.WithLabelValues(category, reason).Inc()
	}
}

func (m *Metrics) failed(category string) {
	if m != nil {
		m.Failures.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) breaker(open bool) {
	if m == nil {
		return
	}
	if open {
		m.BreakerState.Set(1)
	} else {
		m.BreakerState.Set(0)
	}
}
