package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	metricActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quickaverage_active_rooms",
		Help: "Number of rooms with at least one connection.",
	})

	metricActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quickaverage_active_connections",
		Help: "Number of live websocket connections.",
	})

	metricBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quickaverage_broadcasts_total",
		Help: "Number of room state broadcasts.",
	})

	metricRejectedMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quickaverage_rejected_mutations_total",
		Help: "Number of rejected mutations, by reason.",
	}, []string{"reason"})
)

// metricsHandler exposes Prometheus metrics at /metrics
func metricsHandler() http.Handler {
	return promhttp.Handler()
}
