package rtc

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

// HandleSignal consumes one negotiation message relayed from peer from.
func (t *Transport) HandleSignal(from domain.PeerID, s core.Signal) {
	switch s.Kind {
	case core.SignalOffer:
		t.onOffer(from, s)
	case core.SignalAnswer:
		t.onAnswer(from, s)
	case core.SignalReject, core.SignalClose:
		t.onRemoteClose(from, s)
	default:
		log.Warn().Str("module", "adapters.rtc").Str("peer", from.String()).Str("kind", string(s.Kind)).Msg("unknown signal")
	}
}

func (t *Transport) onOffer(from domain.PeerID, s core.Signal) {
	t.mu.Lock()
	if _, dup := t.byConnID[s.Conn]; dup || s.Conn == "" {
		t.mu.Unlock()
		log.Debug().Str("module", "adapters.rtc").Str("conn", s.Conn).Msg("ignoring repeated offer")
		return
	}
	if t.closed || t.active == core.InvalidListener {
		t.mu.Unlock()
		log.Info().Str("module", "adapters.rtc").Str("peer", from.String()).Msg("no listener, rejecting offer")
		if err := t.sig.SendSignal(from, core.Signal{Kind: core.SignalReject, Conn: s.Conn}); err != nil {
			log.Warn().Err(err).Str("module", "adapters.rtc").Msg("send reject")
		}
		return
	}
	c := t.newConn(from, s.Conn, false, t.active)
	c.offerSDP = s.SDP
	t.mu.Unlock()
	c.logger.Info().Msg("connection requested")
}

func (t *Transport) onAnswer(from domain.PeerID, s core.Signal) {
	t.mu.Lock()
	h, ok := t.byConnID[s.Conn]
	var c *rtcConn
	if ok {
		c = t.lookup(h, s.Conn)
	}
	if c == nil || !c.outbound || c.remote != from || c.state != core.StateConnecting {
		t.mu.Unlock()
		log.Debug().Str("module", "adapters.rtc").Str("conn", s.Conn).Msg("stale answer")
		return
	}
	pc := c.pc
	t.mu.Unlock()

	if err := pc.applyAnswer(s.SDP); err != nil {
		t.fail(h, s.Conn, err, "apply answer")
	}
}

func (t *Transport) onRemoteClose(from domain.PeerID, s core.Signal) {
	t.mu.Lock()
	h, ok := t.byConnID[s.Conn]
	if !ok {
		t.mu.Unlock()
		return
	}
	c := t.lookup(h, s.Conn)
	if c == nil || c.remote != from {
		t.mu.Unlock()
		return
	}
	t.closedByPeer(c)
	t.mu.Unlock()
}

// closedByPeer marks c closed by the remote side. Must hold t.mu.
func (t *Transport) closedByPeer(c *rtcConn) {
	if c.state == core.StateClosedByPeer || c.state == core.StateProblemDetectedLocally {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	t.enqueue(c, core.StateClosedByPeer)
	c.logger.Info().Msg("closed by peer")
}

func (t *Transport) problem(c *rtcConn, reason string) {
	if c.state == core.StateClosedByPeer || c.state == core.StateProblemDetectedLocally {
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	t.enqueue(c, core.StateProblemDetectedLocally)
	c.logger.Warn().Str("reason", reason).Msg("problem detected locally")
}

func (t *Transport) fail(h core.ConnectionHandle, connID string, err error, op string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.lookup(h, connID)
	if c == nil {
		return
	}
	c.logger.Error().Err(err).Str("op", op).Msg("negotiation failed")
	t.problem(c, op)
}

func (t *Transport) connectTimeout(h core.ConnectionHandle, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.lookup(h, connID)
	if c == nil || c.state != core.StateConnecting {
		return
	}
	t.problem(c, "connect timeout")
}

// hooks routes data channel callbacks of one connection back into the transport.
func (t *Transport) hooks(h core.ConnectionHandle, connID string) connHooks {
	return connHooks{
		onOpen:    func() { t.onOpen(h, connID) },
		onMessage: func(data []byte) { t.onMessage(h, connID, data) },
		onClosed: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c := t.lookup(h, connID); c != nil {
				t.closedByPeer(c)
			}
		},
		onFailed: func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if c := t.lookup(h, connID); c != nil {
				t.problem(c, "peer connection failed")
			}
		},
	}
}

func (t *Transport) onOpen(h core.ConnectionHandle, connID string) {
	t.mu.Lock()
	c := t.lookup(h, connID)
	if c == nil || c.state != core.StateConnecting {
		t.mu.Unlock()
		return
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	c.open = true
	t.enqueue(c, core.StateConnected)
	queued := c.outq
	c.outq, c.outSize = nil, 0
	pc := c.pc
	t.mu.Unlock()

	c.logger.Info().Int("flushed", len(queued)).Msg("connected")
	dc := pc.channel(true)
	for _, data := range queued {
		if err := dc.Send(data); err != nil {
			c.logger.Warn().Err(err).Msg("flush queued message")
			return
		}
	}
}

func (t *Transport) onMessage(h core.ConnectionHandle, connID string, data []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.lookup(h, connID)
	if c == nil {
		return
	}
	if len(c.inbox) >= t.opts.MaxInbound {
		c.logger.Warn().Int("inbox", len(c.inbox)).Msg("inbox full, dropping message")
		return
	}
	c.inbox = append(c.inbox, append([]byte(nil), data...))
}
