// Package rtc implements core.Transport over WebRTC data channels. Offers and
// answers travel through a core.Signaler; ICE gathering completes before a
// description is sent, so no candidate trickling is needed.
package rtc

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

type Options struct {
	ICEServers      []string
	ConnectTimeout  time.Duration
	LingerTimeout   time.Duration
	MaxInbound      int
	MaxBuffered     uint64
	IncludeLoopback bool
}

func DefaultOptions() Options {
	return Options{
		ICEServers:     []string{"stun:stun.l.google.com:19302"},
		ConnectTimeout: 10 * time.Second,
		LingerTimeout:  2 * time.Second,
		MaxInbound:     1024,
		MaxBuffered:    1 << 20,
	}
}

type rtcConn struct {
	handle   core.ConnectionHandle
	remote   domain.PeerID
	connID   string
	listener core.ListenerHandle
	outbound bool
	state    core.ConnState
	accepted bool
	open     bool
	offerSDP string

	pc      *peerConn
	timer   *time.Timer
	inbox   [][]byte
	outq    [][]byte
	outSize uint64
	logger  zerolog.Logger
}

type Transport struct {
	self domain.PeerID
	sig  core.Signaler
	api  *webrtc.API
	cfg  webrtc.Configuration
	opts Options

	mu           sync.Mutex
	conns        map[core.ConnectionHandle]*rtcConn
	byConnID     map[string]core.ConnectionHandle
	listeners    map[core.ListenerHandle]struct{}
	active       core.ListenerHandle
	nextHandle   uint32
	nextListener uint32
	pending      []core.StatusEvent
	closed       bool

	workers conc.WaitGroup
	status    event.Bus[core.StatusEvent]
}

var _ core.Transport = (*Transport)(nil)

func New(self domain.PeerID, sig core.Signaler, opts Options) *Transport {
	se := webrtc.SettingEngine{}
	if opts.IncludeLoopback {
		se.SetIncludeLoopbackCandidate(true)
	}
	cfg := webrtc.Configuration{}
	if len(opts.ICEServers) > 0 {
		cfg.ICEServers = []webrtc.ICEServer{{URLs: opts.ICEServers}}
	}
	if opts.MaxInbound <= 0 {
		opts.MaxInbound = DefaultOptions().MaxInbound
	}
	if opts.MaxBuffered == 0 {
		opts.MaxBuffered = DefaultOptions().MaxBuffered
	}
	return &Transport{
		self:      self,
		sig:       sig,
		api:       webrtc.NewAPI(webrtc.WithSettingEngine(se)),
		cfg:       cfg,
		opts:      opts,
		conns:     make(map[core.ConnectionHandle]*rtcConn),
		byConnID:  make(map[string]core.ConnectionHandle),
		listeners: make(map[core.ListenerHandle]struct{}),
	}
}

func (t *Transport) SubscribeStatus(fn func(core.StatusEvent)) event.ID { return t.status.Subscribe(fn) }
func (t *Transport) UnsubscribeStatus(id event.ID)                     { t.status.Unsubscribe(id) }

// PumpEvents delivers queued status changes on the caller's goroutine.
func (t *Transport) PumpEvents() {
	t.mu.Lock()
	evs := t.pending
	t.pending = nil
	t.mu.Unlock()
	for _, ev := range evs {
		t.status.Publish(ev)
	}
}

func (t *Transport) newConn(remote domain.PeerID, connID string, outbound bool, l core.ListenerHandle) *rtcConn {
	t.nextHandle++
	h := core.ConnectionHandle(t.nextHandle)
	c := &rtcConn{
		handle:   h,
		remote:   remote,
		connID:   connID,
		listener: l,
		outbound: outbound,
		state:    core.StateConnecting,
		logger: log.With().
			Str("module", "adapters.rtc").
			Str("peer", remote.String()).
			Uint32("handle", uint32(h)).
			Str("conn", connID).
			Logger(),
	}
	t.conns[h] = c
	t.byConnID[connID] = h
	t.enqueue(c, core.StateConnecting)
	if t.opts.ConnectTimeout > 0 {
		c.timer = time.AfterFunc(t.opts.ConnectTimeout, func() { t.connectTimeout(h, connID) })
	}
	return c
}

// enqueue records a state change of c. Must hold t.mu.
func (t *Transport) enqueue(c *rtcConn, s core.ConnState) {
	old := c.state
	if s == core.StateConnecting {
		old = core.StateNone
	}
	c.state = s
	t.pending = append(t.pending, core.StatusEvent{
		Handle:   c.handle,
		Listener: c.listener,
		Remote:   c.remote,
		State:    s,
		OldState: old,
	})
}

// lookup returns the live connection h if it still belongs to connID. Must hold t.mu.
func (t *Transport) lookup(h core.ConnectionHandle, connID string) *rtcConn {
	c, ok := t.conns[h]
	if !ok || c.connID != connID {
		return nil
	}
	return c
}

func (t *Transport) forget(c *rtcConn) {
	delete(t.conns, c.handle)
	delete(t.byConnID, c.connID)
	if c.timer != nil {
		c.timer.Stop()
	}
}

// Connect starts an outbound attempt. The offer is produced in the background.
func (t *Transport) Connect(remote domain.PeerID) core.ConnectionHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || remote == "" || remote == t.self {
		return core.InvalidConnection
	}
	h, connID := core.ConnectionHandle(t.nextHandle+1), uuid.NewString()
	pc, err := newPeerConn(t.api, t.cfg, t.hooks(h, connID), log.With().Str("module", "adapters.rtc").Logger())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.rtc").Str("peer", remote.String()).Msg("new peer connection")
		return core.InvalidConnection
	}
	c := t.newConn(remote, connID, true, core.InvalidListener)
	pc.logger = c.logger
	c.pc = pc
	t.workers.Go(func() { t.sendOffer(h, connID, remote, pc) })
	c.logger.Info().Msg("connecting")
	return h
}

func (t *Transport) sendOffer(h core.ConnectionHandle, connID string, remote domain.PeerID, pc *peerConn) {
	if err := pc.createChannels(); err != nil {
		t.fail(h, connID, err, "create data channels")
		return
	}
	sdp, err := pc.offer()
	if err != nil {
		t.fail(h, connID, err, "create offer")
		return
	}
	if err := t.sig.SendSignal(remote, core.Signal{Kind: core.SignalOffer, Conn: connID, SDP: sdp}); err != nil {
		t.fail(h, connID, err, "send offer")
	}
}

func (t *Transport) CreateListener() core.ListenerHandle {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return core.InvalidListener
	}
	t.nextListener++
	l := core.ListenerHandle(t.nextListener)
	t.listeners[l] = struct{}{}
	t.active = l
	log.Info().Str("module", "adapters.rtc").Uint32("listener", uint32(l)).Msg("listening")
	return l
}

func (t *Transport) CloseListener(l core.ListenerHandle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.listeners[l]; !ok {
		return false
	}
	delete(t.listeners, l)
	if t.active == l {
		t.active = core.InvalidListener
	}
	return true
}

// AcceptPending answers the stored offer of an inbound request.
func (t *Transport) AcceptPending(h core.ConnectionHandle) core.Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[h]
	if !ok {
		return core.ResultInvalidParam
	}
	if c.outbound || c.accepted || c.state != core.StateConnecting {
		return core.ResultInvalidState
	}
	pc, err := newPeerConn(t.api, t.cfg, t.hooks(c.handle, c.connID), c.logger)
	if err != nil {
		c.logger.Error().Err(err).Msg("new peer connection")
		return core.ResultNoConnection
	}
	c.pc = pc
	c.accepted = true
	connID, remote, offer := c.connID, c.remote, c.offerSDP
	t.workers.Go(func() { t.sendAnswer(h, connID, remote, offer, pc) })
	c.logger.Info().Msg("accepting")
	return core.ResultOK
}

func (t *Transport) sendAnswer(h core.ConnectionHandle, connID string, remote domain.PeerID, offer string, pc *peerConn) {
	sdp, err := pc.answer(offer)
	if err != nil {
		t.fail(h, connID, err, "create answer")
		return
	}
	if err := t.sig.SendSignal(remote, core.Signal{Kind: core.SignalAnswer, Conn: connID, SDP: sdp}); err != nil {
		t.fail(h, connID, err, "send answer")
	}
}

// Close releases h. With linger, queued data gets up to LingerTimeout to drain.
func (t *Transport) Close(h core.ConnectionHandle, linger bool) bool {
	t.mu.Lock()
	c, ok := t.conns[h]
	if !ok {
		t.mu.Unlock()
		return false
	}
	t.forget(c)
	kind := core.SignalClose
	if !c.outbound && !c.accepted {
		kind = core.SignalReject
	}
	notify := c.state != core.StateClosedByPeer
	drain := linger && c.open
	t.mu.Unlock()

	c.logger.Info().Bool("linger", linger).Msg("closing")
	t.workers.Go(func() {
		if drain && !c.pc.drain(t.opts.LingerTimeout) {
			c.logger.Warn().Msg("linger timeout, dropping unsent data")
		}
		if notify {
			if err := t.sig.SendSignal(c.remote, core.Signal{Kind: kind, Conn: c.connID}); err != nil {
				c.logger.Warn().Err(err).Msg("send close signal")
			}
		}
		if c.pc != nil {
			c.pc.close()
		}
	})
	return true
}

func (t *Transport) Send(h core.ConnectionHandle, data []byte, flags core.SendFlags) core.Result {
	t.mu.Lock()
	c, ok := t.conns[h]
	if !ok {
		t.mu.Unlock()
		return core.ResultNoConnection
	}
	switch {
	case c.state == core.StateConnected && c.open:
	case c.state == core.StateConnecting && c.accepted:
		// accepted but channels not open yet: hold until they are
		if c.outSize+uint64(len(data)) > t.opts.MaxBuffered {
			t.mu.Unlock()
			return core.ResultLimitExceeded
		}
		c.outq = append(c.outq, append([]byte(nil), data...))
		c.outSize += uint64(len(data))
		t.mu.Unlock()
		return core.ResultOK
	case c.state == core.StateConnecting:
		t.mu.Unlock()
		return core.ResultInvalidState
	default:
		t.mu.Unlock()
		return core.ResultNoConnection
	}
	pc := c.pc
	t.mu.Unlock()

	dc := pc.channel(flags.Reliable())
	if dc == nil {
		return core.ResultNoConnection
	}
	if dc.BufferedAmount()+uint64(len(data)) > t.opts.MaxBuffered {
		return core.ResultLimitExceeded
	}
	if err := dc.Send(append([]byte(nil), data...)); err != nil {
		c.logger.Warn().Err(err).Msg("data channel send")
		return core.ResultNoConnection
	}
	return core.ResultOK
}

func (t *Transport) PollIncoming(h core.ConnectionHandle, maxBatch int) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.conns[h]
	if !ok || maxBatch <= 0 || len(c.inbox) == 0 {
		return nil
	}
	n := min(maxBatch, len(c.inbox))
	out := c.inbox[:n:n]
	c.inbox = c.inbox[n:]
	return out
}

// Shutdown abandons every connection and waits for background work to finish.
func (t *Transport) Shutdown() {
	t.mu.Lock()
	t.closed = true
	handles := make([]core.ConnectionHandle, 0, len(t.conns))
	for h := range t.conns {
		handles = append(handles, h)
	}
	t.mu.Unlock()

	for _, h := range handles {
		t.Close(h, false)
	}
	t.workers.Wait()
	log.Info().Str("module", "adapters.rtc").Msg("transport shut down")
}
