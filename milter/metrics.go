package milter

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricConnections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "milter_connections_total",
			Help: "Connections accepted from the MTA.",
		},
	)
	metricErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "milter_errors_total",
			Help: "Milter connections that ended abnormally, known values: protocol, panic.",
		},
		[]string{
			"error",
		},
	)
)
