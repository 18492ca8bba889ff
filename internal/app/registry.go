package app

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

type sessionEntry struct {
	Room    domain.RoomName
	Session core.MemberSession
	Cancel  context.CancelFunc
}

// Registry tracks every peer connected to the hub and the room it sits in.
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.PeerID]*sessionEntry
	peers    map[domain.PeerID]*domain.Peer
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.PeerID]*sessionEntry),
		peers:    make(map[domain.PeerID]*domain.Peer),
	}
}

func (r *Registry) GetOrCreatePeer(id domain.PeerID) *domain.Peer {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.peers[id]; ok {
		return p
	}
	p := &domain.Peer{ID: id, Name: "guest"}
	r.peers[id] = p
	log.Info().Str("module", "app.registry").Str("peer", id.String()).Msg("created new peer")
	return p
}

func (r *Registry) Rename(id domain.PeerID, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.peers[id]
	if !ok {
		return domain.ErrPeerNotFound
	}
	if err := p.SetName(name); err != nil {
		return err
	}
	log.Info().Str("module", "app.registry").Str("peer", id.String()).Str("name", name).Msg("renamed peer")
	return nil
}

// BindSignal registers the signalling session of id. cancel tears the session down.
func (r *Registry) BindSignal(id domain.PeerID, sess core.MemberSession, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &sessionEntry{Session: sess, Cancel: cancel}
	log.Info().Str("module", "app.registry").Str("peer", id.String()).Msg("bound signal")
}

func (r *Registry) GetSession(id domain.PeerID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[id]; ok {
		return e.Session, true
	}
	return nil, false
}

// Unbind forgets the session of id if it is still sess. A reconnect that
// already replaced it is left alone.
func (r *Registry) Unbind(id domain.PeerID, sess core.MemberSession) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok || e.Session != sess {
		return false
	}
	delete(r.sessions, id)
	log.Info().Str("module", "app.registry").Str("peer", id.String()).Msg("unbind session")
	return true
}

func (r *Registry) RoomOf(id domain.PeerID) (domain.RoomName, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok || e.Room == "" {
		return "", nil, false
	}
	return e.Room, e.Session, true
}

func (r *Registry) UpdateRoom(id domain.PeerID, room domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	e.Room = room
	log.Info().Str("module", "app.registry").Str("peer", id.String()).Str("room", string(room)).Msg("updated room")
	return true
}

func (r *Registry) RemoveRoom(id domain.PeerID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		e.Room = ""
	}
	log.Info().Str("module", "app.registry").Str("peer", id.String()).Msg("removed room association")
}

type RegSnap struct {
	ID      domain.PeerID
	Session core.MemberSession
}

func (r *Registry) MembersOfRoom(name domain.RoomName) []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegSnap, 0, len(r.sessions))
	for id, e := range r.sessions {
		if e.Room == name {
			out = append(out, RegSnap{ID: id, Session: e.Session})
		}
	}
	return out
}

func (r *Registry) Cancel(id domain.PeerID) bool {
	r.mu.RLock()
	e, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("peer", id.String()).Msg("canceled session")
	return true
}
