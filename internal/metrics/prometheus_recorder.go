package metrics

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "ulyssesdeck"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	rebuildDuration prom.Histogram
	rebuildOutcome  *prom.CounterVec
	slides          prom.Gauge
	fragments       prom.Gauge
	changes         *prom.CounterVec
	skipped         *prom.CounterVec
}

// NewPrometheusRecorder constructs the collectors and registers them on reg.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		rebuildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of flatten-and-write passes",
			Buckets:   prom.DefBuckets,
		}),
		rebuildOutcome: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Rebuild passes by outcome",
		}, []string{"outcome"}),
		slides: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "deck_slides",
			Help:      "Slides in the last written deck",
		}),
		fragments: prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "deck_fragments",
			Help:      "Fragments in the last written deck",
		}),
		changes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "changes_total",
			Help:      "Qualifying filesystem changes by kind",
		}, []string{"kind"}),
		skipped: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "skipped_total",
			Help:      "Members or directories that contributed nothing, by reason",
		}, []string{"reason"}),
	}
	reg.MustRegister(pr.rebuildDuration, pr.rebuildOutcome, pr.slides, pr.fragments, pr.changes, pr.skipped)
	return pr
}

func (p *PrometheusRecorder) ObserveRebuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.rebuildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncRebuildOutcome(outcome Outcome) {
	if p == nil {
		return
	}
	p.rebuildOutcome.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) SetDeckSize(slides, fragments int) {
	if p == nil {
		return
	}
	p.slides.Set(float64(slides))
	p.fragments.Set(float64(fragments))
}

func (p *PrometheusRecorder) IncChange(kind string) {
	if p == nil {
		return
	}
	p.changes.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncSkipped(reason SkipReason) {
	if p == nil {
		return
	}
	p.skipped.WithLabelValues(string(reason)).Inc()
}
