package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

// Join moves id into roomName, leaving any previous room first.
// The first member of a room owns it.
func (o *Orchestrator) Join(id domain.PeerID, roomName domain.RoomName) (core.RoomService, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	sess, ok := o.Registry.GetSession(id)
	if !ok {
		return nil, ErrNoSession
	}
	if cur, _, ok := o.Registry.RoomOf(id); ok {
		if cur == roomName {
			if room, ok := o.Rooms.GetRoom(cur); ok {
				o.send(sess, core.NewRoomState(room))
				return room, nil
			}
		}
		o.leaveLocked(id, cur)
		log.Info().Str("module", "app.orch").Str("peer", id.String()).Str("from_room", string(cur)).Msg("left previous room")
	}

	room := o.Rooms.GetOrCreate(roomName)
	room.AddMember(sess)
	o.Registry.UpdateRoom(id, roomName)
	log.Info().Str("module", "app.orch").Str("peer", id.String()).Str("room", string(roomName)).Msg("added to room")
	o.pushState(room)
	return room, nil
}

func (o *Orchestrator) Leave(id domain.PeerID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	roomName, sess, ok := o.Registry.RoomOf(id)
	if !ok {
		return ErrNotInRoom
	}
	o.leaveLocked(id, roomName)
	o.send(sess, core.RoomMessage{Type: core.MsgLeft, Room: roomName})
	return nil
}

// Kick lets the room owner remove target.
func (o *Orchestrator) Kick(by, target domain.PeerID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	roomName, _, ok := o.Registry.RoomOf(by)
	if !ok {
		return ErrNotInRoom
	}
	room, ok := o.Rooms.GetRoom(roomName)
	if !ok {
		return ErrNotInRoom
	}
	if err := room.Kick(by, target); err != nil {
		return err
	}
	o.Registry.RemoveRoom(target)
	if sess, ok := o.Registry.GetSession(target); ok {
		o.send(sess, core.RoomMessage{Type: core.MsgKicked, Room: roomName})
	}
	log.Info().Str("module", "app.orch").Str("peer", target.String()).Str("by", by.String()).Msg("kicked from room")
	o.pushState(room)
	return nil
}

// OnDisconnect drops id from its room and forgets sess.
func (o *Orchestrator) OnDisconnect(id domain.PeerID, sess core.MemberSession) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if cur, ok := o.Registry.GetSession(id); !ok || cur != sess {
		return
	}
	if roomName, _, ok := o.Registry.RoomOf(id); ok {
		o.leaveLocked(id, roomName)
	}
	o.Registry.Unbind(id, sess)
}

// EvictRoom removes every member of name and drops the room.
func (o *Orchestrator) EvictRoom(name domain.RoomName) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	room, ok := o.Rooms.GetRoom(name)
	if !ok {
		return false
	}
	for _, snap := range o.Registry.MembersOfRoom(name) {
		room.RemoveMember(snap.ID)
		o.Registry.RemoveRoom(snap.ID)
		o.send(snap.Session, core.RoomMessage{Type: core.MsgKicked, Room: name})
	}
	o.Rooms.StopRoom(name)
	log.Info().Str("module", "app.orch").Str("room", string(name)).Msg("room evicted")
	return true
}

func (o *Orchestrator) leaveLocked(id domain.PeerID, roomName domain.RoomName) {
	o.Registry.RemoveRoom(id)
	room, ok := o.Rooms.GetRoom(roomName)
	if !ok {
		return
	}
	room.RemoveMember(id)
	if o.Rooms.DropIfEmpty(roomName) {
		log.Info().Str("module", "app.orch").Str("room", string(roomName)).Msg("dropped empty room")
		return
	}
	o.pushState(room)
}
