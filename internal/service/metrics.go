package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds issuance pipeline collectors.
type Metrics struct {
	issuance       *prometheus.CounterVec
	recordsCreated prometheus.Counter
	renderDuration prometheus.Histogram
}

// NewMetrics registers the issuance collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		issuance: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "certificate_issuance_total",
			Help: "Issuance requests by outcome.",
		}, []string{"outcome"}),
		recordsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "certificate_records_created_total",
			Help: "Certificate records written to the record store.",
		}),
		renderDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "certificate_render_duration_seconds",
			Help:    "Time spent rendering certificate PDFs, including browser start-up.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
	}
	for _, c := range []prometheus.Collector{m.issuance, m.recordsCreated, m.renderDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.issuance.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordCreated() {
	if m == nil {
		return
	}
	m.recordsCreated.Inc()
}

func (m *Metrics) observeRender(seconds float64) {
	if m == nil {
		return
	}
	m.renderDuration.Observe(seconds)
}
