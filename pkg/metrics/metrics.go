// Package metrics exposes scoring activity in Prometheus format.
// Only the risk category and hazard ratio are recorded, never patient values.
package metrics

import (
	"net/http"

	"github.com/mchmarny/coxrisk/pkg/score"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coxrisk"

// Recorder receives scoring events.
type Recorder interface {
	ObserveScore(r score.Result)
	ObserveRejected(field string)
}

// Nop discards everything. Used when metrics are disabled.
type Nop struct{}

func (Nop) ObserveScore(score.Result) {}
func (Nop) ObserveRejected(string)    {}

// Registry holds the collectors of one process.
type Registry struct {
	reg         *prometheus.Registry
	scores      *prometheus.CounterVec
	hazardRatio prometheus.Histogram
	rejected    *prometheus.CounterVec
}

// NewRegistry creates a registry with the scoring collectors and the
// standard Go and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		scores: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scores_total",
			Help:      "Number of computed scores by risk category.",
		}, []string{"category"}),
		hazardRatio: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "hazard_ratio",
			Help:      "Distribution of computed hazard ratios.",
			Buckets:   []float64{0.25, 0.6, 1, 1.5, 2.5, 5, 10},
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_inputs_total",
			Help:      "Number of rejected form fields by field name.",
		}, []string{"field"}),
	}

	r.reg.MustRegister(
		r.scores,
		r.hazardRatio,
		r.rejected,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// pre-create the series so every band shows up at zero
	for _, c := range []score.Category{score.CategoryLow, score.CategoryMedium, score.CategoryHigh} {
		r.scores.WithLabelValues(string(c))
	}

	return r
}

func (r *Registry) ObserveScore(res score.Result) {
	r.scores.WithLabelValues(string(res.Category)).Inc()
	r.hazardRatio.Observe(res.HazardRatio)
}

func (r *Registry) ObserveRejected(field string) {
	r.rejected.WithLabelValues(field).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}
