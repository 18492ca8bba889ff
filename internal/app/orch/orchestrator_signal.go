package orch

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

// RouteSignal forwards a negotiation message from one peer to a roommate.
func (o *Orchestrator) RouteSignal(from, to domain.PeerID, s core.Signal) error {
	fromRoom, _, ok := o.Registry.RoomOf(from)
	if !ok {
		return ErrNotInRoom
	}
	toRoom, sess, ok := o.Registry.RoomOf(to)
	if !ok || toRoom != fromRoom {
		return ErrNotRoommates
	}
	frame, err := core.EncodeFrame(core.SignalMessage{Type: core.MsgSignal, From: from, Signal: s})
	if err != nil {
		return err
	}
	if err := sess.Signal().TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "app.orch").Str("from", from.String()).Str("to", to.String()).Msg("route signal")
		return err
	}
	log.Debug().Str("module", "app.orch").Str("from", from.String()).Str("to", to.String()).Str("kind", string(s.Kind)).Msg("routed signal")
	return nil
}
