package signal

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

func (ctl *SignalWSController) handleRename(id domain.PeerID, conn *WsSignalConn, data []byte) {
	var p core.RenameMessage
	if err := json.Unmarshal(data, &p); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad rename payload")
		ctl.sendError(conn, "bad_payload")
		return
	}
	if err := ctl.Orch.Rename(id, p.Name); err != nil {
		ctl.sendError(conn, errorCode(err))
		return
	}
	log.Info().Str("module", "signal").Str("peer", id.String()).Str("name", p.Name).Msg("rename")
	ctl.handleWhoAmI(id, conn)
}

func (ctl *SignalWSController) handleWhoAmI(id domain.PeerID, conn *WsSignalConn) {
	ctl.sendJSON(conn, ctl.Orch.WhoAmI(id))
}

func (ctl *SignalWSController) handlePing(conn *WsSignalConn) {
	ctl.sendJSON(conn, core.Envelope{Type: core.MsgPong})
}
