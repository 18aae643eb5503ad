package queue

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_submitted_total",
			Help: "Lead tasks handed to the broker, by result",
		},
		[]string{"result"},
	)

	processedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leads_processed_total",
			Help: "Lead tasks processed by workers, by outcome",
		},
		[]string{"outcome"},
	)

	retriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lead_retries_total",
			Help: "Lead tasks requeued after a transient failure",
		},
	)

	deadLetteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leads_dead_lettered_total",
			Help: "Lead tasks dropped to the dead-letter queue",
		},
	)
)
