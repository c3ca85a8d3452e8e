package pool

import "github.com/prometheus/client_golang/prometheus"

var (
	workersGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ytcipher_workers",
			Help: "Number of solver workers by state.",
		},
		[]string{"state"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ytcipher_queue_depth",
			Help: "Number of jobs waiting for an idle worker.",
		},
	)

	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ytcipher_jobs_total",
			Help: "Total number of settled jobs by status.",
		},
		[]string{"status"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ytcipher_job_duration_seconds",
			Help:    "Time a job spent running on a worker.",
			Buckets: prometheus.DefBuckets,
		},
	)

	jobWait = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ytcipher_job_wait_seconds",
			Help:    "Time a job spent queued before a worker picked it up.",
			Buckets: prometheus.DefBuckets,
		},
	)

	workerRestarts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ytcipher_worker_restarts_total",
			Help: "Total number of solver instances rebuilt after a crash.",
		},
	)
)

func init() {
	prometheus.MustRegister(workersGauge)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(jobsTotal)
	prometheus.MustRegister(jobDuration)
	prometheus.MustRegister(jobWait)
	prometheus.MustRegister(workerRestarts)
}

const (
	stateIdle = "idle"
	stateBusy = "busy"
)
