package pipeline

import (
	"time"

	"glyph-skeleton/internal/results"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	images        prometheus.Counter
	branches      *prometheus.CounterVec
	flushFailures prometheus.Counter
	stageDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		images: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glyphskel",
			Name:      "images_processed_total",
			Help:      "Images that completed the pipeline.",
		}),
		branches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glyphskel",
			Name:      "branches_extracted_total",
			Help:      "Branch records extracted, by branch type.",
		}, []string{"type"}),
		flushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glyphskel",
			Name:      "flush_failures_total",
			Help:      "Failed attempts to persist the branch table.",
		}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "glyphskel",
			Name:      "stage_duration_seconds",
			Help:      "Wall time spent in each pipeline stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"stage"}),
	}

	for _, c := range []prometheus.Collector{m.images, m.branches, m.flushFailures, m.stageDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// StepCompleted satisfies chain.Observer.
func (m *Metrics) StepCompleted(name string, elapsed time.Duration) {
	m.observeStage(name, elapsed)
}

func (m *Metrics) observeStage(name string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

func (m *Metrics) imageProcessed(records results.Table) {
	if m == nil {
		return
	}
	m.images.Inc()
	for kind, n := range records.CountByType() {
		m.branches.WithLabelValues(kind.String()).Add(float64(n))
	}
}

func (m *Metrics) flushFailed() {
	if m == nil {
		return
	}
	m.flushFailures.Inc()
}

// WriteTextfile dumps everything g gathers in the text exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
