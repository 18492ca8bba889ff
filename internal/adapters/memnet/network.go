// Package memnet is an in-process core.Transport for tests and single-process demos.
// Endpoints created from one Network reach each other by PeerID; every
// status change is queued on the affected endpoint and delivered by its PumpEvents.
package memnet

import (
	"sync"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

const DefaultMaxInbound = 1024

type Network struct {
	mu           sync.Mutex
	endpoints    map[domain.PeerID]*Endpoint
	nextHandle   core.ConnectionHandle
	nextListener core.ListenerHandle
	maxInbound   int
}

type Option func(*Network)

// WithMaxInbound bounds every per-connection inbound queue.
func WithMaxInbound(n int) Option {
	return func(net *Network) {
		if n > 0 {
			net.maxInbound = n
		}
	}
}

func NewNetwork(opts ...Option) *Network {
	n := &Network{
		endpoints:  make(map[domain.PeerID]*Endpoint),
		maxInbound: DefaultMaxInbound,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Endpoint returns the transport of peer id, creating it on first use.
func (n *Network) Endpoint(id domain.PeerID) *Endpoint {
	n.mu.Lock()
	defer n.mu.Unlock()
	if e, ok := n.endpoints[id]; ok {
		return e
	}
	e := &Endpoint{
		net:   n,
		id:    id,
		conns: make(map[core.ConnectionHandle]*conn),
	}
	n.endpoints[id] = e
	return e
}

// CloseRecord remembers one Close call for assertions.
type CloseRecord struct {
	Handle core.ConnectionHandle
	Remote domain.PeerID
	Linger bool
}

type conn struct {
	handle     core.ConnectionHandle
	remote     domain.PeerID
	listener   core.ListenerHandle
	state      core.ConnState
	peer       *Endpoint
	peerHandle core.ConnectionHandle
	inbox      [][]byte
}

func (c *conn) alive() bool {
	return c.state == core.StateConnecting || c.state == core.StateConnected
}

// Endpoint implements core.Transport for one peer.
type Endpoint struct {
	net      *Network
	id       domain.PeerID
	listener core.ListenerHandle
	conns    map[core.ConnectionHandle]*conn
	queue    []core.StatusEvent
	status   event.Bus[core.StatusEvent]
	closes   []CloseRecord

	failConnect       bool
	failListen        bool
	failCloseListener bool
	failClose         bool
	acceptResult      core.Result
	sendResult        core.Result
}

var _ core.Transport = (*Endpoint)(nil)

func (e *Endpoint) Self() domain.PeerID { return e.id }

func (e *Endpoint) Connect(remote domain.PeerID) core.ConnectionHandle {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	if e.failConnect {
		return core.InvalidConnection
	}

	h := e.net.allocHandle()
	c := &conn{handle: h, remote: remote, state: core.StateConnecting}
	e.conns[h] = c
	e.enqueue(c, core.StateNone)

	target, ok := e.net.endpoints[remote]
	if !ok || target.listener == core.InvalidListener {
		c.state = core.StateClosedByPeer
		e.enqueue(c, core.StateConnecting)
		return h
	}

	hb := e.net.allocHandle()
	in := &conn{
		handle:     hb,
		remote:     e.id,
		listener:   target.listener,
		state:      core.StateConnecting,
		peer:       e,
		peerHandle: h,
	}
	target.conns[hb] = in
	target.enqueue(in, core.StateNone)
	c.peer = target
	c.peerHandle = hb
	return h
}

func (e *Endpoint) CreateListener() core.ListenerHandle {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	if e.failListen {
		return core.InvalidListener
	}
	e.net.nextListener++
	e.listener = e.net.nextListener
	return e.listener
}

func (e *Endpoint) CloseListener(l core.ListenerHandle) bool {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	if l == core.InvalidListener || l != e.listener {
		return false
	}
	e.listener = core.InvalidListener
	return !e.failCloseListener
}

func (e *Endpoint) AcceptPending(h core.ConnectionHandle) core.Result {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	c, ok := e.conns[h]
	if !ok {
		return core.ResultInvalidParam
	}
	if c.listener == core.InvalidListener || c.state != core.StateConnecting {
		return core.ResultInvalidState
	}
	if e.acceptResult != core.ResultOK {
		return e.acceptResult
	}

	c.state = core.StateConnected
	e.enqueue(c, core.StateConnecting)
	if pc := c.peerConn(); pc != nil && pc.state == core.StateConnecting {
		pc.state = core.StateConnected
		c.peer.enqueue(pc, core.StateConnecting)
	}
	return core.ResultOK
}

func (e *Endpoint) Close(h core.ConnectionHandle, linger bool) bool {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	c, ok := e.conns[h]
	if !ok {
		return false
	}
	delete(e.conns, h)
	e.closes = append(e.closes, CloseRecord{Handle: h, Remote: c.remote, Linger: linger})

	if pc := c.peerConn(); pc != nil && pc.alive() {
		old := pc.state
		pc.state = core.StateClosedByPeer
		c.peer.enqueue(pc, old)
	}
	return !e.failClose
}

func (e *Endpoint) Send(h core.ConnectionHandle, data []byte, flags core.SendFlags) core.Result {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	if e.sendResult != core.ResultOK {
		return e.sendResult
	}
	c, ok := e.conns[h]
	if !ok {
		return core.ResultNoConnection
	}
	if c.state != core.StateConnected {
		return core.ResultInvalidState
	}
	pc := c.peerConn()
	if pc == nil || pc.state != core.StateConnected {
		return core.ResultNoConnection
	}
	if len(pc.inbox) >= e.net.maxInbound {
		return core.ResultLimitExceeded
	}
	msg := make([]byte, len(data))
	copy(msg, data)
	pc.inbox = append(pc.inbox, msg)
	return core.ResultOK
}

func (e *Endpoint) PollIncoming(h core.ConnectionHandle, maxBatch int) [][]byte {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	c, ok := e.conns[h]
	if !ok || maxBatch <= 0 {
		return nil
	}
	n := min(maxBatch, len(c.inbox))
	out := make([][]byte, n)
	copy(out, c.inbox[:n])
	c.inbox = c.inbox[n:]
	return out
}

// PumpEvents publishes every queued status change, outside the network lock.
func (e *Endpoint) PumpEvents() {
	e.net.mu.Lock()
	queue := e.queue
	e.queue = nil
	e.net.mu.Unlock()

	for _, ev := range queue {
		e.status.Publish(ev)
	}
}

func (e *Endpoint) SubscribeStatus(fn func(core.StatusEvent)) event.ID {
	return e.status.Subscribe(fn)
}

func (e *Endpoint) UnsubscribeStatus(id event.ID) { e.status.Unsubscribe(id) }

func (e *Endpoint) enqueue(c *conn, old core.ConnState) {
	e.queue = append(e.queue, core.StatusEvent{
		Handle:   c.handle,
		Listener: c.listener,
		Remote:   c.remote,
		State:    c.state,
		OldState: old,
	})
}

func (c *conn) peerConn() *conn {
	if c.peer == nil {
		return nil
	}
	return c.peer.conns[c.peerHandle]
}

func (n *Network) allocHandle() core.ConnectionHandle {
	n.nextHandle++
	return n.nextHandle
}
