package xui

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tondar",
		Subsystem: "xui",
		Name:      "logins_total",
		Help:      "Panel login outcomes by encoding or failure kind.",
	}, []string{"outcome"})

	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tondar",
		Subsystem: "xui",
		Name:      "requests_total",
		Help:      "Panel API requests by method and outcome.",
	}, []string{"method", "outcome"})
)
