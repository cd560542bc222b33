package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronJobMetrics tracks each cron job run by name.
type CronJobMetrics struct {
	duration    *prometheus.HistogramVec
	runs        *prometheus.CounterVec
	lastSuccess *prometheus.GaugeVec
	now         func() time.Time
}

// NewCronJobMetrics registers the cron collectors on reg. A nil reg yields a
// no-op recorder.
func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	c := &CronJobMetrics{
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cron_job_duration_seconds",
			Help:    "Wall time of cron job runs.",
			Buckets: []float64{.05, .1, .5, 1, 5, 15, 60, 300},
		}, []string{"job"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cron_job_runs_total",
			Help: "Cron job runs by result.",
		}, []string{"job", "result"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cron_job_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job"}),
		now: time.Now,
	}
	reg.MustRegister(c.duration, c.runs, c.lastSuccess)
	return c
}

// Observe records one finished run of job. A nil err counts as success.
func (c *CronJobMetrics) Observe(job string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	job = normalizeLabel(job)
	c.duration.WithLabelValues(job).Observe(elapsed.Seconds())
	if err != nil {
		c.runs.WithLabelValues(job, "failure").Inc()
		return
	}
	c.runs.WithLabelValues(job, "success").Inc()
	c.lastSuccess.WithLabelValues(job).Set(float64(c.now().Unix()))
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
