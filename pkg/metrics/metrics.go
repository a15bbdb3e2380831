package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	newsreel = "newsreel"

	// Pipeline metrics
	jobsCreatedTotal     = "jobs_created_total"
	jobsCompletedTotal   = "jobs_completed_total"
	jobsFailedTotal      = "jobs_failed_total"
	stageDurationSeconds = "stage_duration_seconds"
	jobsReapedTotal      = "jobs_reaped_total"
	jobsPurgedTotal      = "jobs_purged_total"
	publicationsTotal    = "publications_total"

	// Labels
	originLabel = "origin"
	stageLabel  = "stage"
	resultLabel = "result"
)

var jobsCreatedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: newsreel,
		Name:      jobsCreatedTotal,
		Help:      "number of jobs created, by origin (automation or manual)",
	},
	[]string{originLabel},
)

var jobsCompletedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: newsreel,
		Name:      jobsCompletedTotal,
		Help:      "number of jobs that completed the full pipeline",
	},
)

var jobsFailedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: newsreel,
		Name:      jobsFailedTotal,
		Help:      "number of failed jobs, by failing stage",
	},
	[]string{stageLabel},
)

var stageDurationMetric = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Subsystem: newsreel,
		Name:      stageDurationSeconds,
		Help:      "duration of each pipeline stage",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	},
	[]string{stageLabel, resultLabel},
)

var jobsReapedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: newsreel,
		Name:      jobsReapedTotal,
		Help:      "number of running jobs failed by the stuck-job reaper",
	},
)

var jobsPurgedTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: newsreel,
		Name:      jobsPurgedTotal,
		Help:      "number of jobs deleted by the retention sweeper",
	},
)

var publicationsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: newsreel,
		Name:      publicationsTotal,
		Help:      "number of publish attempts, by result",
	},
	[]string{resultLabel},
)

func IncreaseJobsCreatedMetric(origin string) {
	jobsCreatedTotalMetric.With(prometheus.Labels{originLabel: origin}).Inc()
}

func IncreaseJobsCompletedMetric() {
	jobsCompletedTotalMetric.Inc()
}

func IncreaseJobsFailedMetric(stage string) {
	jobsFailedTotalMetric.With(prometheus.Labels{stageLabel: stage}).Inc()
}

func ObserveStageDurationMetric(stage string, d time.Duration, result string) {
	stageDurationMetric.With(prometheus.Labels{stageLabel: stage, resultLabel: result}).Observe(d.Seconds())
}

func IncreaseJobsReapedMetric() {
	jobsReapedTotalMetric.Inc()
}

func AddJobsPurgedMetric(count int64) {
	jobsPurgedTotalMetric.Add(float64(count))
}

func IncreasePublicationsMetric(result string) {
	publicationsTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsCreatedTotalMetric)
	prometheus.MustRegister(jobsCompletedTotalMetric)
	prometheus.MustRegister(jobsFailedTotalMetric)
	prometheus.MustRegister(stageDurationMetric)
	prometheus.MustRegister(jobsReapedTotalMetric)
	prometheus.MustRegister(jobsPurgedTotalMetric)
	prometheus.MustRegister(publicationsTotalMetric)
}
