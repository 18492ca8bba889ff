package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

// handleSignal forwards a connection negotiation message to a roommate.
func (ctl *SignalWSController) handleSignal(id domain.PeerID, conn *WsSignalConn, data []byte) {
	var p core.SignalMessage
	if err := json.Unmarshal(data, &p); err != nil || p.To == "" {
		log.Error().Err(err).Str("module", "signal").Msg("bad signal payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.RouteSignal(id, p.To, p.Signal); err != nil {
		ctl.sendError(conn, errorCode(err))
	}
}
