package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() { register(jobsFinishedTotal, jobDurationSeconds, jobsPurgedTotal) }

var jobsFinishedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "scraping_jobs_finished_total",
		Help: "Total number of scraping jobs finished, labeled by terminal status.",
	},
	[]string{"status"}, // 'completed', 'failed'
)

var jobDurationSeconds = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "scraping_job_duration_seconds",
		Help:    "Wall-clock duration of finished scraping jobs.",
		Buckets: []float64{5, 15, 60, 180, 420, 900, 1800},
	},
)

var jobsPurgedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "scraping_jobs_purged_total",
		Help: "Terminal jobs removed by the retention sweep.",
	},
)

func IncJobFinished(status string) {
	jobsFinishedTotal.WithLabelValues(norm(status)).Inc()
}

func ObserveJobDuration(d time.Duration) {
	jobDurationSeconds.Observe(d.Seconds())
}

func AddJobsPurged(n int) {
	jobsPurgedTotal.Add(float64(n))
}
