// Package metrics records batch-run statistics in Prometheus format.
//
// A Recorder owns its own registry, so several runs in one process (tests
// in particular) do not collide on the global one. Batch jobs have no
// scrape endpoint; WriteToTextfile leaves the numbers for the node
// exporter's textfile collector.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hymao/mxgraph/pkg/owl"
	"github.com/hymao/mxgraph/pkg/propagate"
	"github.com/hymao/mxgraph/pkg/reasoner"
	"github.com/hymao/mxgraph/pkg/specimen"
)

const namespace = "mxgraph"

// Recorder collects the counters of one run.
type Recorder struct {
	reg *prometheus.Registry

	occurrences   *prometheus.CounterVec
	findings      *prometheus.CounterVec
	assertions    prometheus.Counter
	skipped       *prometheus.CounterVec
	suppressed    prometheus.Counter
	queries       *prometheus.CounterVec
	queryErrors   *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	characters    prometheus.Gauge
	lastRun       prometheus.Gauge
}

// New returns a Recorder with a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		occurrences: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_occurrences_total",
			Help:      "Occurrences seen while building the taxon-specimen index, by outcome.",
		}, []string{"outcome"}),
		findings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_findings_total",
			Help:      "Data-quality findings met while building the index, by kind.",
		}, []string{"kind"}),
		assertions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assertions_total",
			Help:      "Phenotype class assertions added to specimens.",
		}),
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assertions_skipped_total",
			Help:      "Character state data or assertions not propagated, by reason.",
		}, []string{"reason"}),
		suppressed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assertions_suppressed_total",
			Help:      "Assertions withheld from non-female specimens of female-only characters.",
		}),
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoner_queries_total",
			Help:      "Reasoner calls, by kind.",
		}, []string{"kind"}),
		queryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reasoner_errors_total",
			Help:      "Reasoner calls that failed, by kind.",
		}, []string{"kind"}),
		queryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reasoner_query_duration_seconds",
			Help:      "Reasoner call latency, by kind.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"kind"}),
		characters: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "characters_retrieved",
			Help:      "Character identifiers returned by the last retrieval.",
		}),
		lastRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the run finished.",
		}),
	}
}

// Registry returns the registry holding the Recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// ObserveIndex records an index build report.
func (r *Recorder) ObserveIndex(rep *specimen.Report) {
	if rep == nil {
		return
	}
	r.occurrences.WithLabelValues("indexed").Add(float64(rep.Indexed))
	r.occurrences.WithLabelValues("skipped").Add(float64(rep.Skipped()))
	for _, f := range rep.Findings {
		r.findings.WithLabelValues(string(f.Kind)).Inc()
	}
}

// ObservePropagation records a propagation result.
func (r *Recorder) ObservePropagation(res *propagate.Result) {
	if res == nil {
		return
	}
	r.assertions.Add(float64(len(res.Assertions)))
	for _, s := range res.Skipped {
		r.skipped.WithLabelValues(string(s.Reason)).Inc()
	}
	r.suppressed.Add(float64(res.Suppressed))
}

// ObserveCharacters records the size of a retrieval result.
func (r *Recorder) ObserveCharacters(n int) {
	r.characters.Set(float64(n))
}

// WriteToTextfile stamps the run time and writes every metric to path in
// the Prometheus text format.
func (r *Recorder) WriteToTextfile(path string) error {
	r.lastRun.SetToCurrentTime()
	return prometheus.WriteToTextfile(path, r.reg)
}

// Reasoner wraps inner so every call is counted and timed.
func (r *Recorder) Reasoner(inner reasoner.Reasoner) reasoner.Reasoner {
	return &instrumented{inner: inner, rec: r}
}

type instrumented struct {
	inner reasoner.Reasoner
	rec   *Recorder
}

func (i *instrumented) observe(kind string, start time.Time, err error) {
	i.rec.queries.WithLabelValues(kind).Inc()
	i.rec.queryDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		i.rec.queryErrors.WithLabelValues(kind).Inc()
	}
}

func (i *instrumented) Classify(ctx context.Context) (err error) {
	defer func(start time.Time) { i.observe(reasoner.KindClassify, start, err) }(time.Now())
	return i.inner.Classify(ctx)
}

func (i *instrumented) SubClasses(ctx context.Context, ce owl.ClassExpression, direct bool) (out []owl.IRI, err error) {
	defer func(start time.Time) { i.observe(reasoner.KindSubClasses, start, err) }(time.Now())
	return i.inner.SubClasses(ctx, ce, direct)
}

func (i *instrumented) Instances(ctx context.Context, ce owl.ClassExpression, direct bool) (out []owl.IRI, err error) {
	defer func(start time.Time) { i.observe(reasoner.KindInstances, start, err) }(time.Now())
	return i.inner.Instances(ctx, ce, direct)
}
