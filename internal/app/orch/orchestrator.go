// Package orch drives hub-side room membership and relays negotiation
// signals between peers that share a room.
package orch

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/app"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

var (
	ErrNoSession    = errors.New("orch: peer has no signalling session")
	ErrNotInRoom    = errors.New("orch: peer is not in a room")
	ErrNotRoommates = errors.New("orch: peers do not share a room")
)

type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager

	// mu serialises membership changes so room_state pushes follow the change order.
	mu sync.Mutex
}

func New(reg *app.Registry, rooms core.RoomManager) *Orchestrator {
	return &Orchestrator{Registry: reg, Rooms: rooms}
}

// pushState sends the current room_state to every member. Members whose
// signalling queue is full are disconnected.
func (o *Orchestrator) pushState(room core.RoomService) {
	frame, err := core.EncodeFrame(core.NewRoomState(room))
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("encode room state")
		return
	}
	res := room.Broadcast("", frame)
	for _, slow := range res.Dropped {
		log.Warn().Str("module", "app.orch").Str("peer", slow.String()).Msg("signal backpressure, dropping peer")
		o.Registry.Cancel(slow)
	}
}

func (o *Orchestrator) send(sess core.MemberSession, v any) {
	if sess == nil || sess.Signal() == nil {
		return
	}
	frame, err := core.EncodeFrame(v)
	if err != nil {
		log.Error().Err(err).Str("module", "app.orch").Msg("encode frame")
		return
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("peer", sess.Meta().Peer.ID.String()).Msg("send frame")
	}
}

// Send delivers v to the signalling session of id, if any.
func (o *Orchestrator) Send(id domain.PeerID, v any) {
	if sess, ok := o.Registry.GetSession(id); ok {
		o.send(sess, v)
	}
}

func (o *Orchestrator) WhoAmI(id domain.PeerID) core.WhoAmIMessage {
	p := o.Registry.GetOrCreatePeer(id)
	resp := core.WhoAmIMessage{Type: core.MsgWhoAmI, ID: p.ID, Name: p.Name}
	if room, _, ok := o.Registry.RoomOf(id); ok {
		resp.Room = room
	}
	return resp
}

func (o *Orchestrator) Rename(id domain.PeerID, name string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.Registry.Rename(id, name); err != nil {
		return err
	}
	if roomName, _, ok := o.Registry.RoomOf(id); ok {
		if room, ok := o.Rooms.GetRoom(roomName); ok {
			o.pushState(room)
		}
	}
	return nil
}
