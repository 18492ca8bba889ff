package session

import (
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

type forgetter interface {
	Forget(client domain.PeerID)
}

type RelayOption func(*Relay)

// WithAutoAccept accepts requests from room members and rejects everyone else.
func WithAutoAccept() RelayOption {
	return func(r *Relay) { r.autoAccept = true }
}

func WithPolicy(p Policy) RelayOption {
	return func(r *Relay) { r.policy = p }
}

// Relay is a Server that forwards every message it receives to all other clients.
type Relay struct {
	*Server

	policy     Policy
	autoAccept bool
	sub        event.ID
	slow       map[domain.PeerID]struct{}
	logger     zerolog.Logger
}

func NewRelay(t core.Transport, roster core.Roster, opts link.ChannelOptions, ropts ...RelayOption) *Relay {
	r := &Relay{
		Server: NewServer(t, roster, opts),
		policy: SimplePolicy{},
		slow:   make(map[domain.PeerID]struct{}),
		logger: log.With().Str("module", "app.session.relay").Logger(),
	}
	for _, opt := range ropts {
		opt(r)
	}
	r.sub = r.Server.Subscribe(r.onServer)
	return r
}

// Close detaches the relay from its server. The server itself is not stopped.
func (r *Relay) Close() {
	r.Server.Unsubscribe(r.sub)
}

func (r *Relay) onServer(ev ServerEvent) {
	switch ev.Kind {
	case ClientConnectionRequested:
		if r.autoAccept {
			r.decide(ev.Peer)
		}
	case MessagesReceived:
		clear(r.slow)
		for _, msg := range ev.Messages {
			r.forward(ev.Peer, msg)
		}
	case ClientConnectionClosedByServer, ClientConnectionClosedByClient:
		delete(r.slow, ev.Peer)
		if f, ok := r.policy.(forgetter); ok {
			f.Forget(ev.Peer)
		}
	}
}

func (r *Relay) decide(id domain.PeerID) {
	if _, ok := core.MemberSet(r.Roster())[id]; ok {
		_ = r.AcceptConnectionRequest(id)
		return
	}
	r.logger.Warn().Str("peer", id.String()).Msg("rejecting a peer outside the room")
	_ = r.RejectConnectionRequest(id)
}

func (r *Relay) forward(from domain.PeerID, msg []byte) {
	for _, id := range r.Clients() {
		if id == from || !r.HasClient(id) {
			continue
		}
		if _, slow := r.slow[id]; slow {
			continue
		}
		err := r.SendMessage(id, msg)
		if err == nil || !errors.Is(err, core.ErrLimitExceeded) {
			continue
		}

		action := r.policy.OnBackPressure(id)
		r.logger.Warn().Str("peer", id.String()).Stringer("action", action).Msg("client congested")
		switch action {
		case KickClient:
			_ = r.CloseConnection(id)
		case MarkSlow:
			r.slow[id] = struct{}{}
		case DropMessage, NoAction:
		}
	}
}
