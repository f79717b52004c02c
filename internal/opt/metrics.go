package opt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "gorecurrent"

const optimizerSubsystem = "optimizer"

// Metrics holds the Prometheus metrics of an optimizer.
type Metrics struct {
	// UpdatesTotal counts Update calls that changed the parameters.
	UpdatesTotal prometheus.Counter
	// ExamplesTotal counts the examples averaged into updates.
	ExamplesTotal prometheus.Counter
	// ErrorsNorm is the global L2 norm of the averaged errors, before clipping.
	ErrorsNorm prometheus.Histogram
	// ClippedTotal counts updates whose errors were clipped.
	ClippedTotal prometheus.Counter
	// LearningRate is the current learning rate of the update rule.
	LearningRate prometheus.Gauge
}

// NewMetrics creates the metrics and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UpdatesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: optimizerSubsystem,
			Name:      "updates_total",
			Help:      "Number of parameter updates.",
		}),
		ExamplesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: optimizerSubsystem,
			Name:      "examples_total",
			Help:      "Number of examples accumulated into updates.",
		}),
		ErrorsNorm: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: optimizerSubsystem,
			Name:      "errors_norm",
			Help:      "Global L2 norm of the averaged parameter errors.",
			Buckets:   prometheus.ExponentialBuckets(1e-4, 10, 9),
		}),
		ClippedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: optimizerSubsystem,
			Name:      "clipped_total",
			Help:      "Number of updates whose errors were clipped.",
		}),
		LearningRate: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: optimizerSubsystem,
			Name:      "learning_rate",
			Help:      "Current learning rate.",
		}),
	}
}
