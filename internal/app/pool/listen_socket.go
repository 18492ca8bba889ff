// Package pool is the hosting side of the session engine: one listen socket
// holding inbound connections as pending (awaiting a decision) or open (accepted).
package pool

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

var (
	ErrAlreadyOpen     = errors.New("pool: listen socket already open")
	ErrNotOpen         = errors.New("pool: listen socket not open")
	ErrListenerRefused = errors.New("pool: transport refused to create a listener")
	ErrUnknownPeer     = errors.New("pool: unknown peer")
)

type EventKind int

const (
	ConnectionRequested EventKind = iota + 1
	ConnectionAccepted
	ConnectionRejected
	ConnectionClosedByLocalHost
	ConnectionClosedByRemoteHost
)

func (k EventKind) String() string {
	switch k {
	case ConnectionRequested:
		return "requested"
	case ConnectionAccepted:
		return "accepted"
	case ConnectionRejected:
		return "rejected"
	case ConnectionClosedByLocalHost:
		return "closed_by_local_host"
	case ConnectionClosedByRemoteHost:
		return "closed_by_remote_host"
	default:
		return "unknown"
	}
}

type Event struct {
	Kind EventKind
	Peer domain.PeerID
}

type entry struct {
	conn *link.Connection
	sub  event.ID
}

// ListenSocket owns every inbound connection it created. A peer is in at most one
// of pending and open, and leaves its set in the same call that ends its connection.
type ListenSocket struct {
	t       core.Transport
	closer  link.Closer
	channel *link.Channel

	listener  core.ListenerHandle
	statusSub event.ID
	pending   map[domain.PeerID]*entry
	open      map[domain.PeerID]*entry

	events event.Bus[Event]
	logger zerolog.Logger
}

func NewListenSocket(t core.Transport, opts link.ChannelOptions) *ListenSocket {
	return &ListenSocket{
		t:       t,
		closer:  link.NewCloser(t),
		channel: link.NewChannel(t, opts),
		pending: make(map[domain.PeerID]*entry),
		open:    make(map[domain.PeerID]*entry),
		logger:  log.With().Str("module", "app.pool").Logger(),
	}
}

func (s *ListenSocket) IsOpen() bool                  { return s.listener != core.InvalidListener }
func (s *ListenSocket) Listener() core.ListenerHandle { return s.listener }

func (s *ListenSocket) Subscribe(fn func(Event)) event.ID { return s.events.Subscribe(fn) }
func (s *ListenSocket) Unsubscribe(id event.ID)           { s.events.Unsubscribe(id) }

// PendingPeers returns the peers awaiting a decision, sorted.
func (s *ListenSocket) PendingPeers() []domain.PeerID { return slices.Sorted(maps.Keys(s.pending)) }

// OpenPeers returns the accepted peers, sorted.
func (s *ListenSocket) OpenPeers() []domain.PeerID { return slices.Sorted(maps.Keys(s.open)) }

// State reports the connection state of id, if the socket holds it.
func (s *ListenSocket) State(id domain.PeerID) (link.State, bool) {
	if e, ok := s.pending[id]; ok {
		return e.conn.State(), true
	}
	if e, ok := s.open[id]; ok {
		return e.conn.State(), true
	}
	return 0, false
}

func (s *ListenSocket) Open() error {
	if s.IsOpen() {
		s.logger.Warn().Uint32("listener", uint32(s.listener)).Msg("open on an open listen socket")
		return ErrAlreadyOpen
	}
	l := s.t.CreateListener()
	if l == core.InvalidListener {
		s.logger.Error().Msg("failed to create listener")
		return ErrListenerRefused
	}
	s.listener = l
	s.statusSub = s.t.SubscribeStatus(s.onStatus)
	s.logger.Info().Uint32("listener", uint32(l)).Msg("listen socket opened")
	return nil
}

// Close abandons pending connections, gracefully closes open ones and releases the listener.
// Every connection it drops is reported as ConnectionClosedByLocalHost.
// Bookkeeping completes even when the returned error reports failed transport closes.
func (s *ListenSocket) Close() error {
	if !s.IsOpen() {
		s.logger.Warn().Msg("close on a closed listen socket")
		return ErrNotOpen
	}
	l := s.listener
	pending, open := s.pending, s.open
	s.pending = make(map[domain.PeerID]*entry)
	s.open = make(map[domain.PeerID]*entry)
	s.t.UnsubscribeStatus(s.statusSub)
	s.listener = core.InvalidListener

	var errs []error
	for _, id := range slices.Sorted(maps.Keys(open)) {
		e := open[id]
		s.release(e, link.ClosedByLocal)
		errs = append(errs, s.closer.Graceful(e.conn))
		s.events.Publish(Event{Kind: ConnectionClosedByLocalHost, Peer: id})
	}
	for _, id := range slices.Sorted(maps.Keys(pending)) {
		e := pending[id]
		s.release(e, link.ClosedByLocal)
		errs = append(errs, s.closer.Abandon(e.conn))
		s.events.Publish(Event{Kind: ConnectionClosedByLocalHost, Peer: id})
	}

	if !s.t.CloseListener(l) {
		s.logger.Warn().Uint32("listener", uint32(l)).Msg("failed to close listener")
		errs = append(errs, fmt.Errorf("close listener %d: %w", l, link.ErrCloseFailed))
	}
	s.logger.Info().Uint32("listener", uint32(l)).Msg("listen socket closed")
	return errors.Join(errs...)
}

// Accept accepts the pending request from id. On a transport refusal the request
// is dropped and reported as ConnectionClosedByLocalHost.
func (s *ListenSocket) Accept(id domain.PeerID) error {
	e, ok := s.pending[id]
	if !ok {
		s.logger.Warn().Str("peer", id.String()).Msg("accept for a peer without a pending request")
		return fmt.Errorf("accept %s: %w", id, ErrUnknownPeer)
	}
	delete(s.pending, id)

	res := s.t.AcceptPending(e.conn.Handle())
	if err := res.Err(); err != nil {
		s.logger.Warn().Str("peer", id.String()).Stringer("result", res).Msg("transport refused accept")
		s.release(e, link.ClosedByLocal)
		_ = s.closer.Abandon(e.conn)
		s.events.Publish(Event{Kind: ConnectionClosedByLocalHost, Peer: id})
		return fmt.Errorf("accept %s: %w", id, err)
	}

	if err := e.conn.MarkConnected(); err != nil {
		s.release(e, link.ClosedByLocal)
		return err
	}
	s.open[id] = e
	s.logger.Info().Str("peer", id.String()).Msg("connection accepted")
	s.events.Publish(Event{Kind: ConnectionAccepted, Peer: id})
	return nil
}

func (s *ListenSocket) Reject(id domain.PeerID) error {
	e, ok := s.pending[id]
	if !ok {
		s.logger.Warn().Str("peer", id.String()).Msg("reject for a peer without a pending request")
		return fmt.Errorf("reject %s: %w", id, ErrUnknownPeer)
	}
	delete(s.pending, id)
	s.release(e, link.Rejected)
	err := s.closer.Abandon(e.conn)
	s.logger.Info().Str("peer", id.String()).Msg("connection rejected")
	s.events.Publish(Event{Kind: ConnectionRejected, Peer: id})
	return err
}

// CloseConnection gracefully closes the open connection to id.
func (s *ListenSocket) CloseConnection(id domain.PeerID) error {
	e, ok := s.open[id]
	if !ok {
		s.logger.Warn().Str("peer", id.String()).Msg("close for a peer without an open connection")
		return fmt.Errorf("close %s: %w", id, ErrUnknownPeer)
	}
	delete(s.open, id)
	s.release(e, link.ClosedByLocal)
	err := s.closer.Graceful(e.conn)
	s.logger.Info().Str("peer", id.String()).Msg("connection closed by local host")
	s.events.Publish(Event{Kind: ConnectionClosedByLocalHost, Peer: id})
	return err
}

func (s *ListenSocket) SendMessage(id domain.PeerID, data []byte) error {
	e, ok := s.open[id]
	if !ok {
		s.logger.Warn().Str("peer", id.String()).Msg("send to a peer without an open connection")
		return fmt.Errorf("send to %s: %w", id, ErrUnknownPeer)
	}
	return s.channel.Send(e.conn.Handle(), data)
}

// PollMessages drains one batch of messages from id.
func (s *ListenSocket) PollMessages(id domain.PeerID) ([][]byte, error) {
	e, ok := s.open[id]
	if !ok {
		s.logger.Warn().Str("peer", id.String()).Msg("poll from a peer without an open connection")
		return nil, fmt.Errorf("poll %s: %w", id, ErrUnknownPeer)
	}
	return s.channel.Receive(e.conn.Handle()), nil
}

func (s *ListenSocket) onStatus(ev core.StatusEvent) {
	if !s.IsOpen() || ev.Listener != s.listener || ev.State != core.StateConnecting {
		return
	}
	if s.owns(ev.Handle) {
		return
	}

	l := s.logger.With().Str("peer", ev.Remote.String()).Uint32("handle", uint32(ev.Handle)).Logger()
	if _, ok := s.open[ev.Remote]; ok {
		l.Warn().Msg("connected peer sent another request")
		_ = s.closer.AbandonHandle(ev.Handle, ev.Remote)
		return
	}
	if _, ok := s.pending[ev.Remote]; ok {
		l.Warn().Msg("pending peer sent another request")
		_ = s.closer.AbandonHandle(ev.Handle, ev.Remote)
		return
	}

	conn := link.Accept(s.t, ev)
	e := &entry{conn: conn}
	e.sub = conn.Subscribe(func(le link.Event) { s.onConnection(e, le) })
	s.pending[ev.Remote] = e
	l.Info().Msg("connection requested")
	s.events.Publish(Event{Kind: ConnectionRequested, Peer: ev.Remote})
}

// onConnection handles terminal transitions the transport drove on a held connection.
func (s *ListenSocket) onConnection(e *entry, le link.Event) {
	var kind EventKind
	switch le.Kind {
	case link.EventClosedByLocal:
		kind = ConnectionClosedByLocalHost
	case link.EventClosedByRemote:
		kind = ConnectionClosedByRemoteHost
	default:
		return
	}

	id := le.Remote
	switch {
	case s.pending[id] == e:
		delete(s.pending, id)
	case s.open[id] == e:
		delete(s.open, id)
	default:
		s.logger.Debug().Str("peer", id.String()).Msg("event for a released connection")
		return
	}
	e.conn.Unsubscribe(e.sub)
	_ = s.closer.Abandon(e.conn)
	s.logger.Info().Str("peer", id.String()).Stringer("event", le.Kind).Msg("connection ended")
	s.events.Publish(Event{Kind: kind, Peer: id})
}

func (s *ListenSocket) release(e *entry, state link.State) {
	e.conn.Unsubscribe(e.sub)
	_ = e.conn.Terminate(state)
}

func (s *ListenSocket) owns(h core.ConnectionHandle) bool {
	for _, e := range s.pending {
		if e.conn.Handle() == h {
			return true
		}
	}
	for _, e := range s.open {
		if e.conn.Handle() == h {
			return true
		}
	}
	return false
}
