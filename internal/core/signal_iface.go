package core

import "github.com/dkeye/peerlink/internal/domain"

// Frame is a raw binary payload.
type Frame []byte

// SignalConnection abstracts for a system messaging transport
// Owned by the adapter; the adapter must Close() it.
type SignalConnection interface {
	TrySend(Frame) error
	Close()
}

type SignalKind string

const (
	SignalOffer  SignalKind = "offer"
	SignalAnswer SignalKind = "answer"
	SignalReject SignalKind = "reject"
	SignalClose  SignalKind = "close"
)

// Signal is one negotiation message exchanged between two transports through the hub.
// Conn correlates all signals of one connection attempt.
type Signal struct {
	Kind SignalKind `json:"kind"`
	Conn string     `json:"conn"`
	SDP  string     `json:"sdp,omitempty"`
}

// Signaler delivers negotiation messages to a remote peer.
type Signaler interface {
	SendSignal(to domain.PeerID, s Signal) error
}
