// Package prommetrics exports xmatch metrics to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	m := xmatch.New(xmatch.WithMetricsCollector(prommetrics.New(reg)))
//	http.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
package prommetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "xmatch"

// Collector implements xmatch.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency   *prometheus.HistogramVec
	pairs       prometheus.Counter
	detections  *prometheus.CounterVec
	matchRate   prometheus.Gauge
	jobs        *prometheus.CounterVec
	jobDuration prometheus.Histogram
}

// New creates a Collector and registers it with reg. A nil reg uses
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_latency_seconds",
			Help:      "Latency of match and associate operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		pairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pairs_total",
			Help:      "Total matched pairs produced",
		}),
		detections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_total",
			Help:      "Detections processed by association",
		}, []string{"result"}),
		matchRate: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_match_fraction",
			Help:      "Matched fraction of the most recent association",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_total",
			Help:      "Batch jobs by outcome",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of batch jobs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
	}

	reg.MustRegister(c.opLatency, c.pairs, c.detections, c.matchRate, c.jobs, c.jobDuration)
	return c
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordMatch implements xmatch.MetricsCollector.
func (c *Collector) RecordMatch(_, _, pairs int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("match", status(err)).Observe(d.Seconds())
	if err == nil {
		c.pairs.Add(float64(pairs))
	}
}

// RecordAssociate implements xmatch.MetricsCollector.
func (c *Collector) RecordAssociate(matched, total int, d time.Duration, err error) {
	c.opLatency.WithLabelValues("associate", status(err)).Observe(d.Seconds())
	if err != nil {
		return
	}
	c.detections.WithLabelValues("matched").Add(float64(matched))
	c.detections.WithLabelValues("unmatched").Add(float64(total - matched))
	if total > 0 {
		c.matchRate.Set(float64(matched) / float64(total))
	}
}

// RecordJob implements xmatch.MetricsCollector.
func (c *Collector) RecordJob(skipped bool, d time.Duration, err error) {
	switch {
	case err != nil:
		c.jobs.WithLabelValues("error").Inc()
	case skipped:
		c.jobs.WithLabelValues("skipped").Inc()
		return
	default:
		c.jobs.WithLabelValues("success").Inc()
	}
	c.jobDuration.Observe(d.Seconds())
}
