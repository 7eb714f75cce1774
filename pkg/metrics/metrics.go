package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for taskflow components.
type Registry struct {
	// Task accounting
	TasksInFlight         prometheus.Gauge
	TasksSubmitted        *prometheus.CounterVec
	TasksRejected         *prometheus.CounterVec
	TasksExecuted         *prometheus.CounterVec
	TasksCompleted        *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TasksCancelled        *prometheus.CounterVec
	TaskQueueWait         *prometheus.HistogramVec
	TaskExecutionDuration *prometheus.HistogramVec

	// Worker pools
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolActive *prometheus.GaugeVec
	WorkerPoolQueued *prometheus.GaugeVec

	// Scheduler
	TasksScheduled *prometheus.CounterVec
	ScheduledTasks prometheus.Gauge

	// Shared state
	CacheOperations *prometheus.CounterVec
	QueueOffers     *prometheus.CounterVec
	QueueDepth      prometheus.Gauge
	EventLogSize    prometheus.Gauge
	CounterValue    prometheus.Gauge
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
// A registerer can back only one Registry; use prometheus.NewRegistry() per instance in tests.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		TasksInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "in_flight",
				Help:      "Tasks submitted but not yet finished",
			},
		),

		TasksSubmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "submitted_total",
				Help:      "Total number of tasks accepted by a pool",
			},
			[]string{"pool_name"},
		),

		TasksRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "rejected_total",
				Help:      "Total number of submissions rejected by a closed pool",
			},
			[]string{"pool_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "executed_total",
				Help:      "Total number of tasks executed",
			},
			[]string{"pool_name"},
		),

		TasksCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "completed_total",
				Help:      "Total number of tasks completed successfully",
			},
			[]string{"pool_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "failed_total",
				Help:      "Total number of tasks that returned an error or panicked",
			},
			[]string{"pool_name"},
		),

		TasksCancelled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "cancelled_total",
				Help:      "Total number of tasks that stopped on cancellation",
			},
			[]string{"pool_name"},
		),

		TaskQueueWait: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "queue_wait_seconds",
				Help:      "Time between submission and execution start",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskflow",
				Subsystem: "tasks",
				Name:      "duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"pool_name"},
		),

		WorkerPoolSize: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "workerpool",
				Name:      "size",
				Help:      "Current worker pool size",
			},
			[]string{"pool_name"},
		),

		WorkerPoolActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "workerpool",
				Name:      "active_workers",
				Help:      "Number of active workers",
			},
			[]string{"pool_name"},
		),

		WorkerPoolQueued: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "workerpool",
				Name:      "queued_tasks",
				Help:      "Number of queued tasks",
			},
			[]string{"pool_name"},
		),

		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "scheduler",
				Name:      "tasks_scheduled_total",
				Help:      "Total number of tasks scheduled",
			},
			[]string{"kind"},
		),

		ScheduledTasks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "scheduler",
				Name:      "pending_tasks",
				Help:      "Number of scheduled tasks waiting for their next run",
			},
		),

		CacheOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "state",
				Name:      "cache_operations_total",
				Help:      "Total number of cache operations",
			},
			[]string{"operation", "result"},
		),

		QueueOffers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskflow",
				Subsystem: "state",
				Name:      "queue_offers_total",
				Help:      "Total number of bounded queue offers",
			},
			[]string{"result"},
		),

		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "state",
				Name:      "queue_depth",
				Help:      "Items currently held by the bounded queue",
			},
		),

		EventLogSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "state",
				Name:      "event_log_size",
				Help:      "Number of events in the append-only log",
			},
		),

		CounterValue: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskflow",
				Subsystem: "state",
				Name:      "counter_value",
				Help:      "Current value of the shared counter",
			},
		),
	}
}
