package daemon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/theirongolddev/cbill/internal/model"
)

const namespace = "cbill"

// metrics are registered on a per-service registry so several services can
// coexist in one process.
type metrics struct {
	registry *prometheus.Registry

	records      prometheus.Gauge
	flagged      prometheus.Gauge
	bySeverity   *prometheus.GaugeVec
	businessDays *prometheus.GaugeVec
	polls        prometheus.Counter
	pollErrors   prometheus.Counter
	subscribers  prometheus.Gauge
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		records: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records",
			Help:      "Billing records in the latest report.",
		}),
		flagged: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flagged_records",
			Help:      "Records flagged as anomalous in the latest report.",
		}),
		bySeverity: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "flagged_by_severity",
			Help:      "Flagged records by severity tier.",
		}, []string{"severity"}),
		businessDays: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "business_days",
			Help:      "Business days per analysed month.",
		}, []string{"month"}),
		polls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "polls_total",
			Help:      "Completed data directory polls.",
		}),
		pollErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_errors_total",
			Help:      "Polls that failed to produce a report.",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Connected event stream clients.",
		}),
	}
}

func (m *metrics) observe(rep model.Report) {
	m.records.Set(float64(rep.RecordCount))
	m.flagged.Set(float64(rep.Summary.TotalFlagged))

	for _, sev := range model.Severities {
		m.bySeverity.WithLabelValues(string(sev)).Set(0)
	}
	for _, sc := range rep.Summary.SeverityCounts {
		m.bySeverity.WithLabelValues(string(sc.Severity)).Set(float64(sc.Count))
	}

	m.businessDays.Reset()
	for _, t := range rep.BusinessDays {
		m.businessDays.WithLabelValues(t.Report.Period().String()).Set(float64(t.Report.BusinessDays))
	}
}
