package core

import (
	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

// MemberSession binds domain.Member and its signalling endpoint.
// This is what a room stores and fans out to. Signal may be nil for
// members that live in the same process.
type MemberSession interface {
	Meta() *domain.Member
	Signal() SignalConnection
}

// PublishResult reports delivery stats/backpressure to the caller.
type PublishResult struct {
	SendTo  int
	Dropped []domain.PeerID
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ID    domain.PeerID `json:"id"`
	Name  string        `json:"name"`
	Owner bool          `json:"owner"`
}

type RoomChangeKind int

const (
	MemberJoined RoomChangeKind = iota + 1
	MemberLeft
	MemberKicked
	OwnerChanged
)

type RoomChange struct {
	Kind RoomChangeKind
	Room domain.RoomName
	Peer domain.PeerID
}

// RoomService is the core-facing API of a room.
// It owns the membership set and the owner seat but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	Owner() domain.PeerID
	Members() []domain.PeerID
	Has(id domain.PeerID) bool
	MemberCount() int
	MembersSnapshot() []MemberDTO

	AddMember(ms MemberSession)
	RemoveMember(id domain.PeerID) bool
	Kick(by, target domain.PeerID) error
	Broadcast(from domain.PeerID, data Frame) PublishResult

	Subscribe(fn func(RoomChange)) event.ID
	Unsubscribe(id event.ID)
}

type RoomInfo struct {
	Name        domain.RoomName `json:"name"`
	Owner       domain.PeerID   `json:"owner"`
	MemberCount int             `json:"client_count"`
}

type RoomManager interface {
	GetOrCreate(name domain.RoomName) RoomService
	GetRoom(name domain.RoomName) (RoomService, bool)
	List() []RoomInfo
	StopRoom(name domain.RoomName)
	// DropIfEmpty removes name when it has no members left.
	DropIfEmpty(name domain.RoomName) bool
}
