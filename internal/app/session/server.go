package session

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/app/pool"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

var (
	ErrNotOwner       = errors.New("session: local peer does not own the room")
	ErrAlreadyRunning = errors.New("session: server already running")
	ErrNotRunning     = errors.New("session: server not running")
	ErrListenFailed   = errors.New("session: failed to open listen socket")
)

type ServerEventKind int

const (
	Started ServerEventKind = iota + 1
	Updated
	Stopped
	ClientConnectionRequested
	ClientConnectionAccepted
	ClientConnectionRejected
	ClientConnectionClosedByServer
	ClientConnectionClosedByClient
	MessagesReceived
)

func (k ServerEventKind) String() string {
	switch k {
	case Started:
		return "started"
	case Updated:
		return "updated"
	case Stopped:
		return "stopped"
	case ClientConnectionRequested:
		return "client_requested"
	case ClientConnectionAccepted:
		return "client_accepted"
	case ClientConnectionRejected:
		return "client_rejected"
	case ClientConnectionClosedByServer:
		return "client_closed_by_server"
	case ClientConnectionClosedByClient:
		return "client_closed_by_client"
	case MessagesReceived:
		return "messages_received"
	default:
		return "unknown"
	}
}

// ServerEvent carries Peer for client events and Messages for MessagesReceived.
type ServerEvent struct {
	Kind     ServerEventKind
	Peer     domain.PeerID
	Messages [][]byte
}

// Server hosts the room owner's listen socket. Applications extend it by
// embedding *Server and subscribing to its events.
type Server struct {
	roster core.Roster
	socket *pool.ListenSocket

	running   bool
	clients   map[domain.PeerID]struct{}
	socketSub event.ID
	rosterSub event.ID

	events event.Bus[ServerEvent]
	logger zerolog.Logger
}

func NewServer(t core.Transport, roster core.Roster, opts link.ChannelOptions) *Server {
	return &Server{
		roster:  roster,
		socket:  pool.NewListenSocket(t, opts),
		clients: make(map[domain.PeerID]struct{}),
		logger:  log.With().Str("module", "app.session.server").Logger(),
	}
}

func (s *Server) IsRunning() bool { return s.running }

// Clients returns the accepted peers, sorted.
func (s *Server) Clients() []domain.PeerID { return slices.Sorted(maps.Keys(s.clients)) }

func (s *Server) HasClient(id domain.PeerID) bool {
	_, ok := s.clients[id]
	return ok
}

// PendingRequests returns the peers awaiting a decision, sorted.
func (s *Server) PendingRequests() []domain.PeerID { return s.socket.PendingPeers() }

func (s *Server) Roster() core.Roster { return s.roster }

func (s *Server) Subscribe(fn func(ServerEvent)) event.ID { return s.events.Subscribe(fn) }
func (s *Server) Unsubscribe(id event.ID)                 { s.events.Unsubscribe(id) }

// Start opens the listen socket. Only the room owner may run a server.
func (s *Server) Start() error {
	if !s.roster.IsInRoom() {
		s.logger.Warn().Msg("start before joining a room")
		return ErrNotInRoom
	}
	if s.roster.OwnerID() != s.roster.Self() {
		s.logger.Warn().Str("owner", s.roster.OwnerID().String()).Msg("start without owning the room")
		return ErrNotOwner
	}
	if s.running {
		s.logger.Warn().Msg("start on a running server")
		return ErrAlreadyRunning
	}
	if err := s.socket.Open(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to open listen socket")
		return fmt.Errorf("%w: %w", ErrListenFailed, err)
	}

	s.socketSub = s.socket.Subscribe(s.onSocket)
	s.rosterSub = s.roster.SubscribeRoster(s.onRoster)
	s.running = true
	s.logger.Info().Msg("server started")
	s.events.Publish(ServerEvent{Kind: Started})
	return nil
}

// Stop emits Stopped while clients are still reachable, then closes every connection.
func (s *Server) Stop() error {
	if !s.running {
		s.logger.Warn().Msg("stop on a stopped server")
		return ErrNotRunning
	}
	s.events.Publish(ServerEvent{Kind: Stopped})
	s.running = false

	err := s.socket.Close()
	s.socket.Unsubscribe(s.socketSub)
	s.roster.UnsubscribeRoster(s.rosterSub)
	clear(s.clients)
	s.logger.Info().Msg("server stopped")
	return err
}

// Update closes every client that is no longer in the room, then polls each
// remaining client once. Intended to run once per tick.
func (s *Server) Update() error {
	if !s.running {
		s.logger.Warn().Msg("update on a stopped server")
		return ErrNotRunning
	}
	s.reconcile()
	s.poll()
	s.events.Publish(ServerEvent{Kind: Updated})
	return nil
}

func (s *Server) reconcile() {
	members := core.MemberSet(s.roster)
	for _, id := range s.Clients() {
		if _, ok := members[id]; ok {
			continue
		}
		s.logger.Warn().Str("peer", id.String()).Msg("closing connection to a peer outside the room")
		_ = s.socket.CloseConnection(id)
	}
}

func (s *Server) poll() {
	for _, id := range s.Clients() {
		if !s.HasClient(id) {
			continue
		}
		msgs, err := s.socket.PollMessages(id)
		if err != nil || len(msgs) == 0 {
			continue
		}
		s.events.Publish(ServerEvent{Kind: MessagesReceived, Peer: id, Messages: msgs})
	}
}

func (s *Server) AcceptConnectionRequest(id domain.PeerID) error {
	if !s.running {
		s.logger.Warn().Str("peer", id.String()).Msg("accept on a stopped server")
		return ErrNotRunning
	}
	return s.socket.Accept(id)
}

func (s *Server) RejectConnectionRequest(id domain.PeerID) error {
	if !s.running {
		s.logger.Warn().Str("peer", id.String()).Msg("reject on a stopped server")
		return ErrNotRunning
	}
	return s.socket.Reject(id)
}

// CloseConnection gracefully closes a client. Send a goodbye first so the
// client can tell it apart from a timeout.
func (s *Server) CloseConnection(id domain.PeerID) error {
	if !s.running {
		s.logger.Warn().Str("peer", id.String()).Msg("close on a stopped server")
		return ErrNotRunning
	}
	return s.socket.CloseConnection(id)
}

func (s *Server) SendMessage(id domain.PeerID, data []byte) error {
	if !s.running {
		s.logger.Warn().Str("peer", id.String()).Msg("send on a stopped server")
		return ErrNotRunning
	}
	return s.socket.SendMessage(id, data)
}

// BroadcastMessage sends data to every client not listed in except.
func (s *Server) BroadcastMessage(data []byte, except ...domain.PeerID) (core.PublishResult, error) {
	var res core.PublishResult
	if !s.running {
		s.logger.Warn().Msg("broadcast on a stopped server")
		return res, ErrNotRunning
	}
	for _, id := range s.Clients() {
		if slices.Contains(except, id) {
			continue
		}
		if err := s.socket.SendMessage(id, data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	return res, nil
}

func (s *Server) onSocket(ev pool.Event) {
	var kind ServerEventKind
	switch ev.Kind {
	case pool.ConnectionRequested:
		kind = ClientConnectionRequested
	case pool.ConnectionAccepted:
		s.clients[ev.Peer] = struct{}{}
		kind = ClientConnectionAccepted
	case pool.ConnectionRejected:
		kind = ClientConnectionRejected
	case pool.ConnectionClosedByLocalHost:
		delete(s.clients, ev.Peer)
		kind = ClientConnectionClosedByServer
	case pool.ConnectionClosedByRemoteHost:
		delete(s.clients, ev.Peer)
		kind = ClientConnectionClosedByClient
	default:
		return
	}
	s.events.Publish(ServerEvent{Kind: kind, Peer: ev.Peer})
}

func (s *Server) onRoster(ev core.RosterEvent) {
	if !s.running {
		return
	}
	s.logger.Debug().Stringer("event", ev.Kind).Msg("room left, stopping server")
	_ = s.Stop()
}
