// Package link holds the per-connection pieces of the session engine:
// the Connection state machine, the Closer and the Message Channel.
package link

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

var (
	ErrConnectFailed     = errors.New("link: transport refused to connect")
	ErrInvalidTransition = errors.New("link: invalid state transition")
)

type Role int

const (
	Outbound Role = iota + 1
	Inbound
)

func (r Role) String() string {
	switch r {
	case Outbound:
		return "outbound"
	case Inbound:
		return "inbound"
	default:
		return "unknown"
	}
}

type State int

const (
	Connecting State = iota + 1
	Connected
	Rejected
	ClosedByLocal
	ClosedByRemote
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Rejected:
		return "rejected"
	case ClosedByLocal:
		return "closed_by_local"
	case ClosedByRemote:
		return "closed_by_remote"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can leave s.
func (s State) Terminal() bool {
	return s == Rejected || s == ClosedByLocal || s == ClosedByRemote
}

type EventKind int

const (
	EventAccepted EventKind = iota + 1
	EventRejected
	EventClosedByLocal
	EventClosedByRemote
)

func (k EventKind) String() string {
	switch k {
	case EventAccepted:
		return "accepted"
	case EventRejected:
		return "rejected"
	case EventClosedByLocal:
		return "closed_by_local"
	case EventClosedByRemote:
		return "closed_by_remote"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind   EventKind
	Remote domain.PeerID
	Handle core.ConnectionHandle
}

// Connection tracks one transport connection from request to its single terminal state.
// It listens to the transport only while live and detaches on the first terminal transition.
type Connection struct {
	t        core.Transport
	remote   domain.PeerID
	handle   core.ConnectionHandle
	listener core.ListenerHandle
	role     Role
	state    State

	statusSub event.ID
	attached  bool
	events    event.Bus[Event]
	logger    zerolog.Logger
}

// Initiate asks the transport for an outbound connection to remote.
func Initiate(t core.Transport, remote domain.PeerID) (*Connection, error) {
	h := t.Connect(remote)
	if h == core.InvalidConnection {
		log.Warn().Str("module", "app.link").Str("peer", remote.String()).Msg("connect refused by transport")
		return nil, fmt.Errorf("%w: %s", ErrConnectFailed, remote)
	}
	c := newConnection(t, Outbound, remote, h, core.InvalidListener)
	c.logger.Debug().Msg("connection initiated")
	return c, nil
}

// Accept wraps an inbound connection request reported by the transport.
func Accept(t core.Transport, ev core.StatusEvent) *Connection {
	c := newConnection(t, Inbound, ev.Remote, ev.Handle, ev.Listener)
	c.logger.Debug().Msg("connection requested")
	return c
}

func newConnection(t core.Transport, role Role, remote domain.PeerID, h core.ConnectionHandle, l core.ListenerHandle) *Connection {
	c := &Connection{
		t:        t,
		remote:   remote,
		handle:   h,
		listener: l,
		role:     role,
		state:    Connecting,
		logger: log.With().
			Str("module", "app.link").
			Str("peer", remote.String()).
			Uint32("handle", uint32(h)).
			Str("role", role.String()).
			Logger(),
	}
	c.statusSub = t.SubscribeStatus(func(ev core.StatusEvent) { c.HandleStatus(ev) })
	c.attached = true
	return c
}

func (c *Connection) Remote() domain.PeerID         { return c.remote }
func (c *Connection) Handle() core.ConnectionHandle { return c.handle }
func (c *Connection) Listener() core.ListenerHandle { return c.listener }
func (c *Connection) Role() Role                    { return c.role }
func (c *Connection) State() State                  { return c.state }
func (c *Connection) Live() bool                    { return !c.state.Terminal() }

func (c *Connection) Subscribe(fn func(Event)) event.ID { return c.events.Subscribe(fn) }
func (c *Connection) Unsubscribe(id event.ID)           { c.events.Unsubscribe(id) }

// HandleStatus consumes one transport notification. It reports false when the
// notification is addressed to another connection or listener.
func (c *Connection) HandleStatus(ev core.StatusEvent) bool {
	if ev.Handle != c.handle {
		return false
	}
	if c.role == Inbound && ev.Listener != c.listener {
		return false
	}
	if c.state.Terminal() {
		c.logger.Debug().Stringer("state", c.state).Stringer("event", ev.State).Msg("ignoring event after terminal state")
		return true
	}

	switch c.state {
	case Connecting:
		c.onConnecting(ev.State)
	case Connected:
		c.onConnected(ev.State)
	}
	return true
}

func (c *Connection) onConnecting(s core.ConnState) {
	switch s {
	case core.StateConnected:
		// inbound acceptance is decided by the pool through MarkConnected
		if c.role == Outbound {
			c.state = Connected
			c.logger.Info().Msg("connection accepted")
			c.events.Publish(c.event(EventAccepted))
		}
	case core.StateClosedByPeer:
		if c.role == Outbound {
			c.finish(Rejected, EventRejected)
			return
		}
		c.finish(ClosedByRemote, EventClosedByRemote)
	case core.StateProblemDetectedLocally:
		if c.role == Outbound {
			c.finish(Rejected, EventRejected)
			return
		}
		c.finish(ClosedByLocal, EventClosedByLocal)
	}
}

func (c *Connection) onConnected(s core.ConnState) {
	switch s {
	case core.StateClosedByPeer:
		c.finish(ClosedByRemote, EventClosedByRemote)
	case core.StateProblemDetectedLocally:
		c.finish(ClosedByLocal, EventClosedByLocal)
	}
}

// MarkConnected records a successful accept of an inbound request.
func (c *Connection) MarkConnected() error {
	if c.role != Inbound || c.state != Connecting {
		return fmt.Errorf("%w: mark connected from %s %s", ErrInvalidTransition, c.role, c.state)
	}
	c.state = Connected
	c.logger.Debug().Msg("inbound connection accepted")
	return nil
}

// Terminate moves the connection into a terminal state decided locally, without emitting.
func (c *Connection) Terminate(s State) error {
	if !s.Terminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidTransition, s)
	}
	if c.state.Terminal() {
		return fmt.Errorf("%w: already %s", ErrInvalidTransition, c.state)
	}
	c.state = s
	c.detach()
	c.events.Clear()
	c.logger.Debug().Stringer("state", s).Msg("connection terminated")
	return nil
}

func (c *Connection) finish(s State, kind EventKind) {
	c.state = s
	c.detach()
	c.logger.Info().Stringer("state", s).Msg("connection finished")
	c.events.Publish(c.event(kind))
	c.events.Clear()
}

func (c *Connection) detach() {
	if !c.attached {
		return
	}
	c.t.UnsubscribeStatus(c.statusSub)
	c.attached = false
}

func (c *Connection) event(kind EventKind) Event {
	return Event{Kind: kind, Remote: c.remote, Handle: c.handle}
}
