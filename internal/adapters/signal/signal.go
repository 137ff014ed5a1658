// Package signal is the WebSocket transport adapter: it owns the
// connection lifecycle and translates wire events into presence and relay
// operations. Session state never lives on the connection object.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/vsharee/vsharee/internal/app"
	"github.com/vsharee/vsharee/internal/config"
	"github.com/vsharee/vsharee/internal/core"
	"github.com/vsharee/vsharee/internal/domain"
	"github.com/vsharee/vsharee/internal/metrics"
)

var ErrBackpressure = errors.New("backpressure")

// Conn wraps one websocket with a bounded outbound queue. TrySend never
// blocks; a full queue drops the frame (best-effort delivery).
type Conn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *Conn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// Controller handles all websocket traffic for the coordinator.
type Controller struct {
	Registry *app.Registry
	Presence *app.Presence
	Relay    *app.Relay
	Monitor  *app.Monitor
	Cfg      *config.WebSocketConfig

	limiter *RateLimiter
}

func NewController(registry *app.Registry, presence *app.Presence, relay *app.Relay, monitor *app.Monitor, cfg *config.WebSocketConfig) *Controller {
	return &Controller{
		Registry: registry,
		Presence: presence,
		Relay:    relay,
		Monitor:  monitor,
		Cfg:      cfg,
		limiter:  NewRateLimiter(cfg.RateLimit, cfg.RateWindow),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades an authenticated request and runs the connection.
// The identity was resolved by the auth middleware before this runs.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	val, exists := c.Get("identity")
	identity, ok := val.(*domain.User)
	if !exists || !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &Conn{
		conn: ws,
		send: make(chan core.Frame, ctl.Cfg.SendBuffer),
	}

	sid := core.SessionID(uuid.NewString())
	sess, err := ctl.Registry.Register(sid, identity, conn)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("register session")
		conn.Close()
		return
	}
	metrics.ActiveSessions.Set(float64(ctl.Registry.SessionCount()))
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("user", string(identity.ID)).Msg("new WS connection")

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, conn)
	go ctl.readPump(ctx, cancel, sess, conn)
}
