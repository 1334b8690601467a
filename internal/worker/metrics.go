package worker

import "github.com/prometheus/client_golang/prometheus"

var (
	drainsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diary_drains_total",
		Help: "Number of per-user queue drains triggered by timer expiry.",
	})
	messagesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_messages_processed_total",
		Help: "Buffered messages run through the pipeline, by result.",
	}, []string{"result"})
	pipelineDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "diary_pipeline_duration_seconds",
		Help:    "Wall time of one message pipeline.",
		Buckets: prometheus.DefBuckets,
	})
	pipelinesInflight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "diary_pipelines_inflight",
		Help: "Pipelines currently running.",
	})
	listenerRestarts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "diary_listener_restarts_total",
		Help: "Times the expiry subscription was re-established after a failure.",
	})
	notificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diary_notifications_total",
		Help: "Clarification messages handed to the notifier, by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(drainsTotal, messagesProcessed, pipelineDuration,
		pipelinesInflight, listenerRestarts, notificationsTotal)
}
