package signal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

var ErrHubGone = errors.New("signal: hub connection lost")

// Incoming is a negotiation message relayed by the hub.
type Incoming struct {
	From   domain.PeerID
	Signal core.Signal
}

// Client is the peer end of the hub connection. It is the local core.Roster
// and the core.Signaler of the transport.
//
// Frames are read on a background goroutine and only queued; room state is
// applied and events are published from PumpEvents on the caller's goroutine.
type Client struct {
	self   domain.PeerID
	conn   *websocket.Conn
	logger zerolog.Logger

	writeMu sync.Mutex

	mu      sync.Mutex
	inbox   []core.Frame
	lost    bool
	room    domain.RoomName
	owner   domain.PeerID
	members []domain.PeerID

	done chan struct{}

	roster  event.Bus[core.RosterEvent]
	signals event.Bus[Incoming]
	states  event.Bus[core.RoomStateMessage]
	errs    event.Bus[string]
}

var (
	_ core.Roster   = (*Client)(nil)
	_ core.Signaler = (*Client)(nil)
)

// Dial connects to the hub websocket at rawURL as self.
func Dial(ctx context.Context, rawURL string, self domain.PeerID, name string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse signal url: %w", err)
	}
	q := u.Query()
	q.Set("id", self.String())
	if name != "" {
		q.Set("name", name)
	}
	u.RawQuery = q.Encode()

	ws, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	c := &Client{
		self:   self,
		conn:   ws,
		done:   make(chan struct{}),
		logger: log.With().Str("module", "signal.client").Str("peer", self.String()).Logger(),
	}
	go c.readLoop()
	c.logger.Info().Str("url", u.Redacted()).Msg("connected to hub")
	return c, nil
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error().Err(err).Msg("hub read error")
			}
			c.mu.Lock()
			c.lost = true
			c.mu.Unlock()
			return
		}
		c.mu.Lock()
		c.inbox = append(c.inbox, data)
		c.mu.Unlock()
	}
}

// Close hangs up and waits for the reader to stop.
func (c *Client) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	c.writeMu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) write(v any) error {
	c.mu.Lock()
	lost := c.lost
	c.mu.Unlock()
	if lost {
		return ErrHubGone
	}
	b, err := core.EncodeFrame(v)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

func (c *Client) Join(room domain.RoomName) error {
	return c.write(core.JoinMessage{Type: core.MsgJoin, Room: string(room)})
}

func (c *Client) Leave() error {
	return c.write(core.Envelope{Type: core.MsgLeave})
}

func (c *Client) Kick(target domain.PeerID) error {
	return c.write(core.KickMessage{Type: core.MsgKick, Peer: target})
}

func (c *Client) Rename(name string) error {
	return c.write(core.RenameMessage{Type: core.MsgRename, Name: name})
}

func (c *Client) SendSignal(to domain.PeerID, s core.Signal) error {
	return c.write(core.SignalMessage{Type: core.MsgSignal, To: to, Signal: s})
}

func (c *Client) SubscribeSignal(fn func(Incoming)) event.ID { return c.signals.Subscribe(fn) }
func (c *Client) UnsubscribeSignal(id event.ID)            { c.signals.Unsubscribe(id) }

func (c *Client) SubscribeState(fn func(core.RoomStateMessage)) event.ID {
	return c.states.Subscribe(fn)
}
func (c *Client) UnsubscribeState(id event.ID) { c.states.Unsubscribe(id) }

// SubscribeErrors reports error codes sent by the hub.
func (c *Client) SubscribeErrors(fn func(string)) event.ID { return c.errs.Subscribe(fn) }

func (c *Client) Self() domain.PeerID { return c.self }

func (c *Client) IsInRoom() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room != ""
}

func (c *Client) Room() domain.RoomName {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

func (c *Client) OwnerID() domain.PeerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

func (c *Client) Members() []domain.PeerID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.members)
}

func (c *Client) SubscribeRoster(fn func(core.RosterEvent)) event.ID { return c.roster.Subscribe(fn) }
func (c *Client) UnsubscribeRoster(id event.ID)                     { c.roster.Unsubscribe(id) }

// PumpEvents applies every frame received since the last call and publishes
// the resulting events.
func (c *Client) PumpEvents() {
	c.mu.Lock()
	frames := c.inbox
	c.inbox = nil
	c.mu.Unlock()

	for _, f := range frames {
		c.apply(f)
	}

	c.mu.Lock()
	gone := c.lost && c.room != ""
	c.mu.Unlock()
	if gone {
		c.logger.Warn().Msg("hub connection lost while in room")
		c.leaveRoom(core.RosterLeft)
	}
}

func (c *Client) apply(f core.Frame) {
	var env core.Envelope
	if err := json.Unmarshal(f, &env); err != nil {
		c.logger.Error().Err(err).Msg("bad frame from hub")
		return
	}
	switch env.Type {
	case core.MsgRoomState:
		var st core.RoomStateMessage
		if err := json.Unmarshal(f, &st); err != nil {
			c.logger.Error().Err(err).Msg("bad room_state")
			return
		}
		c.applyState(st)
	case core.MsgLeft:
		c.leaveRoom(core.RosterLeft)
	case core.MsgKicked:
		c.leaveRoom(core.RosterRemovedByOwner)
	case core.MsgSignal:
		var m core.SignalMessage
		if err := json.Unmarshal(f, &m); err != nil {
			c.logger.Error().Err(err).Msg("bad signal")
			return
		}
		c.signals.Publish(Incoming{From: m.From, Signal: m.Signal})
	case core.MsgError:
		var m core.ErrorMessage
		_ = json.Unmarshal(f, &m)
		c.logger.Warn().Str("error", m.Error).Msg("hub reported error")
		c.errs.Publish(m.Error)
	default:
		c.logger.Debug().Str("type", env.Type).Msg("hub frame")
	}
}

func (c *Client) applyState(st core.RoomStateMessage) {
	members := make([]domain.PeerID, 0, len(st.Members))
	for _, m := range st.Members {
		members = append(members, m.ID)
	}
	c.mu.Lock()
	if !slices.Contains(members, c.self) {
		c.mu.Unlock()
		c.logger.Debug().Str("room", string(st.Room)).Msg("stale room_state")
		return
	}
	prev := c.room
	c.room = st.Room
	c.owner = st.Owner
	c.members = members
	c.mu.Unlock()
	if prev != "" && prev != st.Room {
		c.logger.Info().Str("room", string(prev)).Msg("moved to another room")
		c.roster.Publish(core.RosterEvent{Kind: core.RosterLeft, Room: prev})
	}
	c.logger.Debug().Str("room", string(st.Room)).Str("owner", st.Owner.String()).Int("members", len(members)).Msg("room state")
	c.states.Publish(st)
}

func (c *Client) leaveRoom(kind core.RosterEventKind) {
	c.mu.Lock()
	room := c.room
	c.room, c.owner, c.members = "", "", nil
	c.mu.Unlock()
	if room == "" {
		return
	}
	c.logger.Info().Str("room", string(room)).Stringer("event", kind).Msg("left room")
	c.roster.Publish(core.RosterEvent{Kind: kind, Room: room})
}
