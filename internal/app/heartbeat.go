package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/metrics"
	"github.com/vsharee/vsharee/internal/protocol"
)

// Monitor tracks application-level liveness per session. It only observes:
// dead sockets are detected and closed by the transport's ping/pong, which
// triggers the disconnect path. An application heartbeat additionally
// confirms the client's event loop is still processing messages.
type Monitor struct {
	registry   *Registry
	staleAfter time.Duration
}

func NewMonitor(registry *Registry, staleAfter time.Duration) *Monitor {
	return &Monitor{registry: registry, staleAfter: staleAfter}
}

// Beat refreshes the session's liveness timestamp and acknowledges to the
// sender only.
func (m *Monitor) Beat(sess *core.Session) error {
	sess.Touch()
	metrics.HeartbeatsReceived.Inc()

	ack, err := protocol.Encode(protocol.HeartbeatAck{Type: protocol.EvtHeartbeatAck})
	if err != nil {
		return fmt.Errorf("encode heartbeat_ack: %w", err)
	}
	return sess.Signal().TrySend(ack)
}

// Stale returns the sessions whose last heartbeat is older than the
// threshold. Read-only; nothing is disconnected here.
func (m *Monitor) Stale(now time.Time) []core.SessionID {
	var out []core.SessionID
	for _, sess := range m.registry.Sessions() {
		if now.Sub(sess.LastHeartbeat()) > m.staleAfter {
			out = append(out, sess.ID)
		}
	}
	return out
}

// Run samples staleness periodically until the context ends. It never
// mutates registry or room state.
func (m *Monitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stale := m.Stale(now)
			metrics.StaleSessions.Set(float64(len(stale)))
			if len(stale) > 0 {
				log.Warn().Str("module", "app.heartbeat").Int("count", len(stale)).Msg("sessions past heartbeat threshold")
			}
		}
	}
}
