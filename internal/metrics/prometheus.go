package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus exposes the wish wall counters for scraping.
type Prometheus struct {
	registry      *prometheus.Registry
	created       prometheus.Counter
	quotaRejected prometheus.Counter
	released      prometheus.Counter
	releaseRuns   *prometheus.CounterVec
}

// NewPrometheus registers the counters on a fresh registry together with the
// Go and process collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		created: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wishwall",
			Name:      "wishes_created_total",
			Help:      "Wishes accepted onto the wall.",
		}),
		quotaRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wishwall",
			Name:      "wishes_quota_rejected_total",
			Help:      "Submissions rejected because the user hit the active wish limit.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wishwall",
			Name:      "wishes_released_total",
			Help:      "Wishes moved from active to released.",
		}),
		releaseRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wishwall",
			Name:      "release_runs_total",
			Help:      "Release runs by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		p.created, p.quotaRejected, p.released, p.releaseRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *Prometheus) WishCreated(context.Context)   { p.created.Inc() }
func (p *Prometheus) QuotaRejected(context.Context) { p.quotaRejected.Inc() }

func (p *Prometheus) WishesReleased(_ context.Context, n int) {
	p.released.Add(float64(n))
	p.releaseRuns.WithLabelValues("ok").Inc()
}

func (p *Prometheus) ReleaseFailed(context.Context) {
	p.releaseRuns.WithLabelValues("failed").Inc()
}
