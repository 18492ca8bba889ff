// Package session holds the application-facing sessions of the engine:
// Client for room members, Server for the room owner and Relay on top of it.
package session

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

var (
	ErrAlreadyConnecting = errors.New("session: connection request already pending")
	ErrAlreadyConnected  = errors.New("session: already connected")
	ErrNotConnected      = errors.New("session: not connected")
	ErrNotInRoom         = errors.New("session: not in a room")
	ErrNoOwner           = errors.New("session: room owner unknown")
	ErrSelfOwner         = errors.New("session: local peer owns the room")
)

type ClientState int

const (
	Idle ClientState = iota
	Connecting
	Connected
)

func (s ClientState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

type ClientEventKind int

const (
	RequestAccepted ClientEventKind = iota + 1
	RequestRejected
	ClosedByClient
	ClosedByServer
)

func (k ClientEventKind) String() string {
	switch k {
	case RequestAccepted:
		return "request_accepted"
	case RequestRejected:
		return "request_rejected"
	case ClosedByClient:
		return "closed_by_client"
	case ClosedByServer:
		return "closed_by_server"
	default:
		return "unknown"
	}
}

type ClientEvent struct {
	Kind   ClientEventKind
	Server domain.PeerID
}

// Client holds at most one outbound connection, to the owner of the joined room.
type Client struct {
	t       core.Transport
	roster  core.Roster
	closer  link.Closer
	channel *link.Channel

	state     ClientState
	conn      *link.Connection
	connSub   event.ID
	rosterSub event.ID

	events event.Bus[ClientEvent]
	logger zerolog.Logger
}

func NewClient(t core.Transport, roster core.Roster, opts link.ChannelOptions) *Client {
	return &Client{
		t:       t,
		roster:  roster,
		closer:  link.NewCloser(t),
		channel: link.NewChannel(t, opts),
		logger:  log.With().Str("module", "app.session.client").Logger(),
	}
}

func (c *Client) State() ClientState { return c.state }
func (c *Client) IsConnected() bool  { return c.state == Connected }

// Server returns the peer the client is connecting or connected to.
func (c *Client) Server() domain.PeerID {
	if c.conn == nil {
		return ""
	}
	return c.conn.Remote()
}

func (c *Client) Subscribe(fn func(ClientEvent)) event.ID { return c.events.Subscribe(fn) }
func (c *Client) Unsubscribe(id event.ID)                 { c.events.Unsubscribe(id) }

// Connect requests a connection to the room owner. The outcome arrives as
// RequestAccepted or RequestRejected from a later transport pump.
func (c *Client) Connect() error {
	switch c.state {
	case Connecting:
		c.logger.Warn().Msg("connect while a request is pending")
		return ErrAlreadyConnecting
	case Connected:
		c.logger.Warn().Msg("connect while connected")
		return ErrAlreadyConnected
	}
	if !c.roster.IsInRoom() {
		c.logger.Warn().Msg("connect before joining a room")
		return ErrNotInRoom
	}
	owner := c.roster.OwnerID()
	if owner == "" {
		c.logger.Warn().Msg("connect without a known room owner")
		return ErrNoOwner
	}
	if owner == c.roster.Self() {
		c.logger.Warn().Msg("connect to self")
		return ErrSelfOwner
	}

	conn, err := link.Initiate(c.t, owner)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", owner, err)
	}
	c.conn = conn
	c.connSub = conn.Subscribe(c.onConnection)
	c.rosterSub = c.roster.SubscribeRoster(c.onRoster)
	c.state = Connecting
	c.logger.Info().Str("server", owner.String()).Msg("connection requested")
	return nil
}

// Disconnect gracefully closes an established connection and emits ClosedByClient.
func (c *Client) Disconnect() error {
	if c.state != Connected {
		c.logger.Warn().Stringer("state", c.state).Msg("disconnect without a connection")
		return ErrNotConnected
	}
	conn := c.conn
	conn.Unsubscribe(c.connSub)
	_ = conn.Terminate(link.ClosedByLocal)
	err := c.closer.Graceful(conn)
	c.reset()
	c.logger.Info().Str("server", conn.Remote().String()).Msg("disconnected")
	c.events.Publish(ClientEvent{Kind: ClosedByClient, Server: conn.Remote()})
	return err
}

func (c *Client) Send(data []byte) error {
	if c.state != Connected {
		c.logger.Warn().Msg("send without a connection")
		return ErrNotConnected
	}
	return c.channel.Send(c.conn.Handle(), data)
}

// Poll drains one batch of messages from the server.
func (c *Client) Poll() ([][]byte, error) {
	if c.state != Connected {
		c.logger.Warn().Msg("poll without a connection")
		return nil, ErrNotConnected
	}
	return c.channel.Receive(c.conn.Handle()), nil
}

func (c *Client) onConnection(ev link.Event) {
	switch ev.Kind {
	case link.EventAccepted:
		c.state = Connected
		c.logger.Info().Str("server", ev.Remote.String()).Msg("connection request accepted")
		c.events.Publish(ClientEvent{Kind: RequestAccepted, Server: ev.Remote})
	case link.EventRejected:
		_ = c.closer.Abandon(c.conn)
		c.reset()
		c.logger.Info().Str("server", ev.Remote.String()).Msg("connection request rejected")
		c.events.Publish(ClientEvent{Kind: RequestRejected, Server: ev.Remote})
	case link.EventClosedByRemote:
		_ = c.closer.Abandon(c.conn)
		c.reset()
		c.logger.Info().Str("server", ev.Remote.String()).Msg("connection closed by server")
		c.events.Publish(ClientEvent{Kind: ClosedByServer, Server: ev.Remote})
	case link.EventClosedByLocal:
		_ = c.closer.Graceful(c.conn)
		c.reset()
		c.logger.Info().Str("server", ev.Remote.String()).Msg("connection lost locally")
		c.events.Publish(ClientEvent{Kind: ClosedByClient, Server: ev.Remote})
	}
}

func (c *Client) onRoster(ev core.RosterEvent) {
	if c.state != Connected {
		c.logger.Debug().Stringer("event", ev.Kind).Stringer("state", c.state).Msg("roster event ignored")
		return
	}
	c.logger.Debug().Stringer("event", ev.Kind).Msg("room left, disconnecting")
	_ = c.Disconnect()
}

func (c *Client) reset() {
	if c.conn != nil {
		c.conn.Unsubscribe(c.connSub)
	}
	c.roster.UnsubscribeRoster(c.rosterSub)
	c.conn = nil
	c.state = Idle
}
