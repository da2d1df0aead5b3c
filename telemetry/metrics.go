package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gossipsim"

var (
	Registry = prometheus.NewRegistry()

	MessagesRouted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_routed_total",
			Help:      "Messages delivered by the in-memory router, by kind.",
		},
		[]string{"kind"},
	)

	RouteErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "route_errors_total",
			Help:      "Messages the router could not deliver, by reason.",
		},
		[]string{"reason"},
	)

	RoundsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_total",
			Help:      "Barrier releases across all runs.",
		},
	)

	OracleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_duration_seconds",
			Help:      "Time spent in one convergence inspection.",
			// 100µs .. ~3s
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
	)

	RoundsToConverge = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rounds_to_converge",
			Help:      "Round at which a run first converged.",
			Buckets:   prometheus.LinearBuckets(2, 2, 20),
		},
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed simulation runs, by outcome.",
		},
		[]string{"outcome"},
	)

	ActiveParticipants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_participants",
			Help:      "Participants started and not yet terminated.",
		},
	)

	startTime = time.Now()
	uptime    = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Process uptime in seconds.",
		},
		func() float64 { return time.Since(startTime).Seconds() },
	)
)

func init() {
	Registry.MustRegister(
		MessagesRouted,
		RouteErrors,
		RoundsTotal,
		OracleDuration,
		RoundsToConverge,
		RunsTotal,
		ActiveParticipants,
		uptime,
	)
}

// MetricsHandler exposes /metrics. Mount it with mux.Handle("/metrics", telemetry.MetricsHandler()).
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveOracle records one inspection's duration.
func ObserveOracle(d time.Duration) {
	OracleDuration.Observe(d.Seconds())
}
