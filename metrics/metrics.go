// Package metrics exposes the counters of a collector run in the Prometheus
// text format. A run is a batch job, so the metrics are written to a
// textfile for the node-exporter collector instead of being served.
package metrics

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"restaurant-collector/models"
)

// Run holds the metrics of one collector run on a private registry.
type Run struct {
	registry *prometheus.Registry

	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	records      *prometheus.GaugeVec
	enrichment   *prometheus.GaugeVec
	duration     prometheus.Gauge
	lastComplete prometheus.Gauge
}

// NewRun creates the metric set for one run.
func NewRun(runID string) *Run {
	reg := prometheus.NewRegistry()
	f := promauto.With(prometheus.WrapRegistererWith(prometheus.Labels{"run_id": runID}, reg))

	return &Run{
		registry: reg,

		// requestsTotal counts upstream request attempts by outcome.
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_upstream_requests_total",
			Help: "Upstream request attempts by source and outcome",
		}, []string{"source", "outcome"}),

		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "collector_upstream_request_duration_seconds",
			Help:    "Upstream request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),

		records: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "collector_records",
			Help: "Records per pipeline stage in the last run",
		}, []string{"stage"}),

		enrichment: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "collector_enrichment",
			Help: "Enrichment calls, matches and failed searches in the last run",
		}, []string{"result"}),

		duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "collector_run_duration_seconds",
			Help: "Wall-clock duration of the last run",
		}),

		lastComplete: f.NewGauge(prometheus.GaugeOpts{
			Name: "collector_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
}

// ObserveRequest implements scraper.Observer.
func (r *Run) ObserveRequest(source, outcome string, latency time.Duration) {
	source = strings.ToLower(source)
	r.requestsTotal.WithLabelValues(source, outcome).Inc()
	r.requestLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// Record copies the final counters of a run into the gauges.
func (r *Run) Record(stats *models.RunStats) {
	r.records.WithLabelValues("source").Set(float64(stats.SourceTotal))
	r.records.WithLabelValues("filtered").Set(float64(stats.Filtered))
	r.records.WithLabelValues("duplicate").Set(float64(stats.Duplicates))
	r.records.WithLabelValues("collected").Set(float64(stats.Collected))
	r.records.WithLabelValues("inserted").Set(float64(stats.Inserted))
	r.records.WithLabelValues("updated").Set(float64(stats.Updated))
	r.records.WithLabelValues("failed").Set(float64(stats.Failed))

	r.enrichment.WithLabelValues("calls").Set(float64(stats.EnrichCalls))
	r.enrichment.WithLabelValues("matched").Set(float64(stats.EnrichSuccess))
	r.enrichment.WithLabelValues("failed").Set(float64(stats.EnrichFailed))

	r.duration.Set(stats.Duration.Seconds())
	r.lastComplete.Set(float64(stats.StartedAt.Add(stats.Duration).Unix()))
}

// WriteTextfile writes every metric of the run to path.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
