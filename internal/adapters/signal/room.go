package signal

import (
	"encoding/json"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/app/orch"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

// errorCode maps orchestrator failures onto the codes sent in error frames.
func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrNotOwner):
		return "not_owner"
	case errors.Is(err, core.ErrNotMember):
		return "not_member"
	case errors.Is(err, orch.ErrNotInRoom):
		return "not_in_room"
	case errors.Is(err, orch.ErrNotRoommates):
		return "not_roommates"
	case errors.Is(err, ErrBackpressure), errors.Is(err, ErrClosed):
		return "peer_unreachable"
	case errors.Is(err, orch.ErrNoSession):
		return "no_session"
	case errors.Is(err, domain.ErrNameEmpty), errors.Is(err, domain.ErrNameTooLong):
		return "invalid_name"
	default:
		return "internal"
	}
}

func (ctl *SignalWSController) handleJoin(id domain.PeerID, conn *WsSignalConn, data []byte) {
	var p core.JoinMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad join payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if p.Room == "" {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if ctl.Limiter != nil && !ctl.Limiter.Allow(id) {
		log.Warn().Str("module", "signal").Str("peer", id.String()).Msg("join rate limited")
		ctl.sendError(conn, "rate_limited")
		return
	}
	if p.Name != "" {
		if err := ctl.Orch.Registry.Rename(id, p.Name); err != nil {
			ctl.sendError(conn, errorCode(err))
			return
		}
		log.Info().Str("module", "signal").Str("peer", id.String()).Str("name", p.Name).Msg("rename on join")
	}

	log.Info().Str("module", "signal").Str("peer", id.String()).Str("room", p.Room).Msg("join")
	if _, err := ctl.Orch.Join(id, domain.NormalizeRoomName(p.Room)); err != nil {
		ctl.sendError(conn, errorCode(err))
	}
}

// handleLeave leaves the current room; the websocket stays open.
func (ctl *SignalWSController) handleLeave(id domain.PeerID, conn *WsSignalConn) {
	log.Info().Str("module", "signal").Str("peer", id.String()).Msg("leave")
	if err := ctl.Orch.Leave(id); err != nil {
		ctl.sendError(conn, errorCode(err))
	}
}

func (ctl *SignalWSController) handleKick(id domain.PeerID, conn *WsSignalConn, data []byte) {
	var p core.KickMessage
	if err := json.Unmarshal(data, &p); err != nil || p.Peer == "" {
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.Kick(id, p.Peer); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("peer", id.String()).Str("target", p.Peer.String()).Msg("kick refused")
		ctl.sendError(conn, errorCode(err))
	}
}
