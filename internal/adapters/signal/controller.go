// Package signal carries room membership and connection negotiation between
// peers and the hub over websocket.
package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/app/orch"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrClosed       = errors.New("connection closed")
)

const (
	DefaultReadLimit  = 64 << 10
	DefaultPingPeriod = 30 * time.Second
	DefaultSendQueue  = 32
	writeWait         = 5 * time.Second
)

type SignalWSController struct {
	Orch       *orch.Orchestrator
	Limiter    *RoomRateLimiter
	ReadLimit  int64
	PingPeriod time.Duration
	SendQueue  int
}

func NewSignalWSController(o *orch.Orchestrator, limiter *RoomRateLimiter) *SignalWSController {
	return &SignalWSController{
		Orch:       o,
		Limiter:    limiter,
		ReadLimit:  DefaultReadLimit,
		PingPeriod: DefaultPingPeriod,
		SendQueue:  DefaultSendQueue,
	}
}

// WsSignalConn is the hub end of one peer's websocket. Frames are queued and
// written by a single pump goroutine.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, queue int) *WsSignalConn {
	return &WsSignalConn{conn: ws, send: make(chan core.Frame, queue)}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and serves the peer until either side
// hangs up or ctx ends. The peer id comes from ?id= or the client token.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	raw := c.Query("id")
	if raw == "" {
		raw = c.GetString("client_token")
	}
	id, err := domain.ParsePeerID(raw)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejecting ws without peer id")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_peer_id"})
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	log.Info().Str("module", "signal").Str("peer", id.String()).Msg("new WS connection")

	conn := newWsSignalConn(ws, ctl.SendQueue)
	peer := ctl.Orch.Registry.GetOrCreatePeer(id)
	if name := c.Query("name"); name != "" {
		if err := ctl.Orch.Registry.Rename(id, name); err != nil {
			log.Warn().Err(err).Str("module", "signal").Str("peer", id.String()).Msg("ignoring bad name")
		}
	}

	// a reconnect with the same id replaces the old session
	if old, ok := ctl.Orch.Registry.GetSession(id); ok {
		ctl.Orch.Registry.Cancel(id)
		ctl.Orch.OnDisconnect(id, old)
	}

	sess := core.NewMemberSession(domain.NewMember(peer), conn)
	ctx, cancel := context.WithCancel(ctx)
	ctl.Orch.Registry.BindSignal(id, sess, cancel)

	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, id, sess, conn)
}
