package signal

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

func TestHandleSignalRequiresPeerID(t *testing.T) {
	h := newTestHub(t, nil)
	resp, err := http.Get(h.srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPingWhoAmIRename(t *testing.T) {
	h := newTestHub(t, nil)
	ws := h.dialRaw(t, "alice")

	writeJSON(t, ws, core.Envelope{Type: core.MsgPing})
	readUntil(t, ws, core.MsgPong)

	writeJSON(t, ws, core.RenameMessage{Type: core.MsgRename, Name: "Alice"})
	var who core.WhoAmIMessage
	require.NoError(t, json.Unmarshal(readUntil(t, ws, core.MsgWhoAmI), &who))
	assert.Equal(t, domain.PeerID("alice"), who.ID)
	assert.Equal(t, "Alice", who.Name)

	writeJSON(t, ws, core.RenameMessage{Type: core.MsgRename, Name: ""})
	assert.Equal(t, "invalid_name", readError(t, ws))
}

func TestProtocolErrors(t *testing.T) {
	h := newTestHub(t, nil)
	ws := h.dialRaw(t, "alice")

	cases := []struct {
		name string
		msg  any
		code string
	}{
		{"unknown type", core.Envelope{Type: "dance"}, "unknown_type"},
		{"join without room", core.JoinMessage{Type: core.MsgJoin}, "bad_payload"},
		{"leave outside room", core.Envelope{Type: core.MsgLeave}, "not_in_room"},
		{"kick outside room", core.KickMessage{Type: core.MsgKick, Peer: "bob"}, "not_in_room"},
		{"signal outside room", core.SignalMessage{Type: core.MsgSignal, To: "bob"}, "not_in_room"},
		{"signal without target", core.SignalMessage{Type: core.MsgSignal}, "bad_payload"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			writeJSON(t, ws, tc.msg)
			assert.Equal(t, tc.code, readError(t, ws))
		})
	}

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, "bad_payload", readError(t, ws))
}

func TestSignalToOtherRoomRefused(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dialRaw(t, "alice")
	bob := h.dialRaw(t, "bob")
	writeJSON(t, alice, core.JoinMessage{Type: core.MsgJoin, Room: "a"})
	readUntil(t, alice, core.MsgRoomState)
	writeJSON(t, bob, core.JoinMessage{Type: core.MsgJoin, Room: "b"})
	readUntil(t, bob, core.MsgRoomState)

	writeJSON(t, bob, core.SignalMessage{Type: core.MsgSignal, To: "alice", Signal: core.Signal{Kind: core.SignalOffer, Conn: "x"}})
	assert.Equal(t, "not_roommates", readError(t, bob))
}

func TestJoinRateLimited(t *testing.T) {
	h := newTestHub(t, NewRoomRateLimiter(1, time.Minute))
	ws := h.dialRaw(t, "alice")

	writeJSON(t, ws, core.JoinMessage{Type: core.MsgJoin, Room: "a", Name: "Alice"})
	var st core.RoomStateMessage
	require.NoError(t, json.Unmarshal(readUntil(t, ws, core.MsgRoomState), &st))
	assert.Equal(t, "Alice", st.Members[0].Name)

	writeJSON(t, ws, core.JoinMessage{Type: core.MsgJoin, Room: "b"})
	assert.Equal(t, "rate_limited", readError(t, ws))
}

func TestDisconnectLeavesRoom(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dialRaw(t, "alice")
	bob := h.dialRaw(t, "bob")
	writeJSON(t, alice, core.JoinMessage{Type: core.MsgJoin, Room: "lobby"})
	readUntil(t, alice, core.MsgRoomState)
	writeJSON(t, bob, core.JoinMessage{Type: core.MsgJoin, Room: "lobby"})
	readUntil(t, alice, core.MsgRoomState)

	require.NoError(t, alice.Close())

	var st core.RoomStateMessage
	require.NoError(t, json.Unmarshal(readUntil(t, bob, core.MsgRoomState), &st))
	for st.Owner != "bob" {
		require.NoError(t, json.Unmarshal(readUntil(t, bob, core.MsgRoomState), &st))
	}
	assert.Len(t, st.Members, 1)
}

func TestReconnectReplacesSession(t *testing.T) {
	h := newTestHub(t, nil)
	first := h.dialRaw(t, "alice")
	writeJSON(t, first, core.JoinMessage{Type: core.MsgJoin, Room: "lobby"})
	readUntil(t, first, core.MsgRoomState)

	second := h.dialRaw(t, "alice")
	writeJSON(t, second, core.Envelope{Type: core.MsgWhoAmI})
	var who core.WhoAmIMessage
	require.NoError(t, json.Unmarshal(readUntil(t, second, core.MsgWhoAmI), &who))
	assert.Empty(t, who.Room)
	assert.Empty(t, h.ctl.Orch.Rooms.List())
}
