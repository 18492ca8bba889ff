package core

import (
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

type RosterEventKind int

const (
	// RosterLeft fires when the local peer left the room.
	RosterLeft RosterEventKind = iota + 1
	// RosterRemovedByOwner fires when the owner kicked the local peer.
	RosterRemovedByOwner
)

func (k RosterEventKind) String() string {
	switch k {
	case RosterLeft:
		return "left"
	case RosterRemovedByOwner:
		return "removed_by_owner"
	default:
		return "unknown"
	}
}

type RosterEvent struct {
	Kind RosterEventKind
	Room domain.RoomName
}

// Roster is the read-only view of room membership as seen by the local peer.
type Roster interface {
	Self() domain.PeerID
	IsInRoom() bool
	OwnerID() domain.PeerID
	Members() []domain.PeerID

	SubscribeRoster(fn func(RosterEvent)) event.ID
	UnsubscribeRoster(id event.ID)
}

// MemberSet turns a roster snapshot into a lookup set.
func MemberSet(r Roster) map[domain.PeerID]struct{} {
	members := r.Members()
	set := make(map[domain.PeerID]struct{}, len(members))
	for _, id := range members {
		set[id] = struct{}{}
	}
	return set
}
