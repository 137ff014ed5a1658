package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

var (
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_sessions_active",
		Help: "The current number of live sessions.",
	})
	ActiveRooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_rooms_active",
		Help: "The current number of rooms with at least one member.",
	})
	MessagesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_messages_relayed_total",
		Help: "The total number of messages fanned out, by kind.",
	}, []string{"kind"})
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "coordinator_auth_failures_total",
		Help: "The total number of rejected handshakes.",
	}, []string{"reason"})
	PersistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coordinator_persistence_failures_total",
		Help: "The total number of failed best-effort store writes.",
	})
	HeartbeatsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "coordinator_heartbeats_received_total",
		Help: "The total number of application heartbeats received.",
	})
	StaleSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "coordinator_sessions_stale",
		Help: "Sessions whose last heartbeat is older than the stale threshold.",
	})
)

// StartServer exposes the prometheus endpoint on its own listener.
func StartServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	log.Info().Str("module", "metrics").Str("addr", addr).Str("path", path).Msg("metrics server started")

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Str("module", "metrics").Msg("metrics server stopped")
		}
	}()
}
