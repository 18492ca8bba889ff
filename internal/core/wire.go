package core

import (
	"encoding/json"

	"github.com/dkeye/peerlink/internal/domain"
)

// Message types of the hub protocol. Every frame is a JSON object with a "type" field.
const (
	MsgJoin      = "join"
	MsgLeave     = "leave"
	MsgKick      = "kick"
	MsgRename    = "rename"
	MsgWhoAmI    = "whoami"
	MsgPing      = "ping"
	MsgPong      = "pong"
	MsgSignal    = "signal"
	MsgRoomState = "room_state"
	MsgLeft      = "left"
	MsgKicked    = "kicked"
	MsgError     = "error"
)

type Envelope struct {
	Type string `json:"type"`
}

type JoinMessage struct {
	Type string `json:"type"`
	Room string `json:"room"`
	Name string `json:"name,omitempty"`
}

type KickMessage struct {
	Type string        `json:"type"`
	Peer domain.PeerID `json:"peer"`
}

type RenameMessage struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

// SignalMessage travels client→hub with To set and hub→client with From set.
type SignalMessage struct {
	Type   string        `json:"type"`
	To     domain.PeerID `json:"to,omitempty"`
	From   domain.PeerID `json:"from,omitempty"`
	Signal Signal        `json:"signal"`
}

type RoomStateMessage struct {
	Type    string          `json:"type"`
	Room    domain.RoomName `json:"room"`
	Owner   domain.PeerID   `json:"owner"`
	Members []MemberDTO     `json:"members"`
}

// RoomMessage is used for left and kicked notifications.
type RoomMessage struct {
	Type string          `json:"type"`
	Room domain.RoomName `json:"room"`
}

type WhoAmIMessage struct {
	Type string          `json:"type"`
	ID   domain.PeerID   `json:"id"`
	Name string          `json:"name"`
	Room domain.RoomName `json:"room,omitempty"`
}

type ErrorMessage struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

func EncodeFrame(v any) (Frame, error) {
	return json.Marshal(v)
}

// NewRoomState snapshots room for the wire.
func NewRoomState(room RoomService) RoomStateMessage {
	return RoomStateMessage{
		Type:    MsgRoomState,
		Room:    room.Room().Name,
		Owner:   room.Owner(),
		Members: room.MembersSnapshot(),
	}
}
