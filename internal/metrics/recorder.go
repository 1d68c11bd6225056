package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Agrid-Dev/heatrecovery/internal/recovery"
)

const namespace = "heatrecovery"

// Recorder exposes solver outcomes as Prometheus metrics.
type Recorder struct {
	solves        *prometheus.CounterVec
	iterations    prometheus.Histogram
	sourceLimited prometheus.Counter
	finalCOP      prometheus.Gauge
}

// NewRecorder creates the collectors and registers them on reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		solves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Balance solves by outcome status.",
		}, []string{"status"}),
		iterations: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solver_iterations",
			Help:      "Iterations used per balance solve.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
		}),
		sourceLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "source_limited_total",
			Help:      "Solves where the flue gas could not carry the sink load.",
		}),
		finalCOP: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "final_cop",
			Help:      "COP of the most recent solve.",
		}),
	}

	for _, c := range []prometheus.Collector{r.solves, r.iterations, r.sourceLimited, r.finalCOP} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return r, nil
}

func (r *Recorder) ObserveSolve(res recovery.SolverResult) {
	r.solves.WithLabelValues(string(res.Status)).Inc()
	r.iterations.Observe(float64(res.Iterations))
	if res.IsSourceLimited {
		r.sourceLimited.Inc()
	}
	r.finalCOP.Set(res.FinalCOP)
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
