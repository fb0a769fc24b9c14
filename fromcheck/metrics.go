package fromcheck

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricVerdicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fromcheck_verdicts_total",
			Help: "From headers checked, by verdict and reason.",
		},
		[]string{
			"suspicious", // "yes" or "no"
			"reason",
		},
	)
	metricMessages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fromcheck_messages_total",
			Help: "Messages that reached end of message.",
		},
	)
)
