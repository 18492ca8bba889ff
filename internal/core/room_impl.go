package core

import (
	"errors"
	"sync"

	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotOwner  = errors.New("room: only the owner may do this")
	ErrNotMember = errors.New("room: peer is not a member")
)

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room    *domain.Room
	mu      sync.RWMutex
	byPeer  map[domain.PeerID]MemberSession
	order   []domain.PeerID
	owner   domain.PeerID
	changes event.Bus[RoomChange]
}

func NewRoomService(room *domain.Room) RoomService {
	return &roomImpl{
		room:   room,
		byPeer: make(map[domain.PeerID]MemberSession),
	}
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) Owner() domain.PeerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

func (r *roomImpl) Members() []domain.PeerID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.PeerID, len(r.order))
	copy(out, r.order)
	return out
}

func (r *roomImpl) Has(id domain.PeerID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byPeer[id]
	return ok
}

func (r *roomImpl) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPeer)
}

// AddMember seats the first member as owner. Re-adding a member replaces its session.
func (r *roomImpl) AddMember(ms MemberSession) {
	id := ms.Meta().Peer.ID
	r.mu.Lock()
	_, existed := r.byPeer[id]
	r.byPeer[id] = ms
	if !existed {
		r.order = append(r.order, id)
	}
	becameOwner := false
	if r.owner == "" {
		r.owner = id
		becameOwner = true
	}
	ms.Meta().Owner = r.owner == id
	r.mu.Unlock()

	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("peer", string(id)).Bool("owner", becameOwner).Msg("member added")
	if !existed {
		r.changes.Publish(RoomChange{Kind: MemberJoined, Room: r.room.Name, Peer: id})
	}
	if becameOwner {
		r.changes.Publish(RoomChange{Kind: OwnerChanged, Room: r.room.Name, Peer: id})
	}
}

func (r *roomImpl) RemoveMember(id domain.PeerID) bool {
	newOwner, ok := r.remove(id)
	if !ok {
		return false
	}
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("peer", string(id)).Msg("member removed")
	r.changes.Publish(RoomChange{Kind: MemberLeft, Room: r.room.Name, Peer: id})
	if newOwner != "" {
		r.changes.Publish(RoomChange{Kind: OwnerChanged, Room: r.room.Name, Peer: newOwner})
	}
	return true
}

func (r *roomImpl) Kick(by, target domain.PeerID) error {
	if r.Owner() != by {
		return ErrNotOwner
	}
	if by == target {
		return ErrNotOwner
	}
	newOwner, ok := r.remove(target)
	if !ok {
		return ErrNotMember
	}
	log.Info().Str("module", "core.room").Str("room", string(r.room.Name)).Str("peer", string(target)).Str("by", string(by)).Msg("member kicked")
	r.changes.Publish(RoomChange{Kind: MemberKicked, Room: r.room.Name, Peer: target})
	if newOwner != "" {
		r.changes.Publish(RoomChange{Kind: OwnerChanged, Room: r.room.Name, Peer: newOwner})
	}
	return nil
}

// remove drops id and hands the owner seat to the earliest remaining member if needed.
func (r *roomImpl) remove(id domain.PeerID) (newOwner domain.PeerID, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok = r.byPeer[id]; !ok {
		return "", false
	}
	delete(r.byPeer, id)
	for i, p := range r.order {
		if p == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	if r.owner != id {
		return "", true
	}
	r.owner = ""
	if len(r.order) > 0 {
		r.owner = r.order[0]
		r.byPeer[r.owner].Meta().Owner = true
		newOwner = r.owner
	}
	return newOwner, true
}

func (r *roomImpl) Broadcast(from domain.PeerID, data Frame) PublishResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := PublishResult{}
	for id, m := range r.byPeer {
		if id == from || m.Signal() == nil {
			continue
		}
		if err := m.Signal().TrySend(data); err != nil {
			res.Dropped = append(res.Dropped, id)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

func (r *roomImpl) MembersSnapshot() []MemberDTO {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]MemberDTO, 0, len(r.order))
	for _, id := range r.order {
		p := r.byPeer[id].Meta().Peer
		out = append(out, MemberDTO{ID: p.ID, Name: p.Name, Owner: id == r.owner})
	}
	return out
}

func (r *roomImpl) Subscribe(fn func(RoomChange)) event.ID { return r.changes.Subscribe(fn) }
func (r *roomImpl) Unsubscribe(id event.ID)                { r.changes.Unsubscribe(id) }
