package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"fechador/internal/processor"
)

// Recorder collects batch metrics on a private registry so a run can dump
// them as a node_exporter textfile.
type Recorder struct {
	registry *prometheus.Registry

	outcomes     *prometheus.CounterVec
	itemDuration prometheus.Histogram
	workers      prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fechador_outcomes_total",
				Help: "Batch outcomes by result",
			},
			[]string{"result"}, // success, item_failure, fatal
		),
		itemDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "fechador_item_duration_seconds",
			Help:    "Time spent stamping a single image",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		workers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fechador_workers",
			Help: "Workers used by the last batch",
		}),
	}
	r.registry.MustRegister(r.outcomes, r.itemDuration, r.workers)
	return r
}

func (r *Recorder) SetWorkers(n int) {
	r.workers.Set(float64(n))
}

func (r *Recorder) Observe(o processor.Outcome, elapsed time.Duration) {
	r.outcomes.WithLabelValues(o.Kind.String()).Inc()
	if o.Kind != processor.KindFatal && elapsed > 0 {
		r.itemDuration.Observe(elapsed.Seconds())
	}
}

// WriteTextfile writes the current values in Prometheus text format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
