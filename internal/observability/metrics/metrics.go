package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes counters/histograms for the public API surface.
type Metrics struct {
	submissionsTotal *prometheus.CounterVec
	storeDuration    *prometheus.HistogramVec
	uploadsTotal     *prometheus.CounterVec
	uploadBytes      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Contact form submissions by outcome",
		}, []string{"outcome"}),
		storeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "siteapi",
			Subsystem: "leads",
			Name:      "store_op_duration_seconds",
			Help:      "Latency of lead store operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		uploadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "uploads",
			Name:      "total",
			Help:      "File uploads by outcome",
		}, []string{"outcome"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "siteapi",
			Subsystem: "uploads",
			Name:      "bytes_total",
			Help:      "Total bytes accepted by the upload endpoint",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.storeDuration, m.uploadsTotal, m.uploadBytes)
	return m
}

func (m *Metrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStoreOp(operation string, seconds float64) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) ObserveUpload(outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.uploadBytes.Add(float64(bytes))
	}
}
