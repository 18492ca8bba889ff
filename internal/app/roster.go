package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

// RosterView is the core.Roster of one peer over an in-process room.
// It reports the peer leaving or being kicked and then forgets the room.
type RosterView struct {
	self domain.PeerID

	mu      sync.Mutex
	room    core.RoomService
	roomSub event.ID

	events event.Bus[core.RosterEvent]
}

var _ core.Roster = (*RosterView)(nil)

func NewRosterView(self domain.PeerID) *RosterView {
	return &RosterView{self: self}
}

// Attach follows room. The peer is expected to be a member already.
func (v *RosterView) Attach(room core.RoomService) {
	v.Detach()
	v.mu.Lock()
	v.room = room
	v.roomSub = room.Subscribe(v.onChange)
	v.mu.Unlock()
	log.Debug().Str("module", "app.roster").Str("peer", v.self.String()).Str("room", string(room.Room().Name)).Msg("roster attached")
}

// Detach stops following the current room without publishing anything.
func (v *RosterView) Detach() {
	v.mu.Lock()
	room, sub := v.room, v.roomSub
	v.room = nil
	v.mu.Unlock()
	if room != nil {
		room.Unsubscribe(sub)
	}
}

func (v *RosterView) Self() domain.PeerID { return v.self }

func (v *RosterView) IsInRoom() bool {
	room := v.current()
	return room != nil && room.Has(v.self)
}

func (v *RosterView) OwnerID() domain.PeerID {
	if room := v.current(); room != nil {
		return room.Owner()
	}
	return ""
}

func (v *RosterView) Members() []domain.PeerID {
	if room := v.current(); room != nil {
		return room.Members()
	}
	return nil
}

func (v *RosterView) SubscribeRoster(fn func(core.RosterEvent)) event.ID {
	return v.events.Subscribe(fn)
}

func (v *RosterView) UnsubscribeRoster(id event.ID) { v.events.Unsubscribe(id) }

func (v *RosterView) current() core.RoomService {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.room
}

func (v *RosterView) onChange(ch core.RoomChange) {
	if ch.Peer != v.self {
		return
	}
	var kind core.RosterEventKind
	switch ch.Kind {
	case core.MemberLeft:
		kind = core.RosterLeft
	case core.MemberKicked:
		kind = core.RosterRemovedByOwner
	default:
		return
	}
	v.Detach()
	log.Info().Str("module", "app.roster").Str("peer", v.self.String()).Stringer("event", kind).Msg("left room")
	v.events.Publish(core.RosterEvent{Kind: kind, Room: ch.Room})
}
