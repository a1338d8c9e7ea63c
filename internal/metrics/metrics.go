package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the menu engine collectors on a private prometheus registry.
type Registry struct {
	reg *prometheus.Registry

	Recomputations        prometheus.Counter
	RecomputationFailures prometheus.Counter
	RecomputeLatencySec   prometheus.Histogram
	Projections           prometheus.Counter
	ActivationChecks      prometheus.Counter
	ActivationRejections  prometheus.Counter
	CompositionWrites     *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	recomputations := prometheus.NewCounter(prometheus.CounterOpts{Name: "menu_calorie_recomputations_total"})
	failures := prometheus.NewCounter(prometheus.CounterOpts{Name: "menu_calorie_recomputation_failures_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "menu_calorie_recompute_seconds",
		Buckets: prometheus.DefBuckets,
	})
	projections := prometheus.NewCounter(prometheus.CounterOpts{Name: "menu_nutrition_projections_total"})
	checks := prometheus.NewCounter(prometheus.CounterOpts{Name: "menu_activation_checks_total"})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{Name: "menu_activation_rejections_total"})
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "menu_composition_writes_total"}, []string{"op"})

	r.MustRegister(recomputations, failures, latency, projections, checks, rejections, writes)
	return &Registry{
		reg:                   r,
		Recomputations:        recomputations,
		RecomputationFailures: failures,
		RecomputeLatencySec:   latency,
		Projections:           projections,
		ActivationChecks:      checks,
		ActivationRejections:  rejections,
		CompositionWrites:     writes,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }

// Gatherer exposes the underlying registry for tests and custom exporters.
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
