package core

import (
	"errors"

	"github.com/dkeye/peerlink/internal/domain"
	"github.com/dkeye/peerlink/internal/event"
)

// ConnectionHandle is an opaque transport identifier. InvalidConnection is never live.
type ConnectionHandle uint32

const InvalidConnection ConnectionHandle = 0

// ListenerHandle identifies a listen socket created by the transport.
type ListenerHandle uint32

const InvalidListener ListenerHandle = 0

// ConnState is the transport-level state carried by status notifications.
type ConnState int

const (
	StateNone ConnState = iota
	StateConnecting
	StateFindingRoute
	StateConnected
	StateClosedByPeer
	StateProblemDetectedLocally
)

func (s ConnState) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateConnecting:
		return "connecting"
	case StateFindingRoute:
		return "finding_route"
	case StateConnected:
		return "connected"
	case StateClosedByPeer:
		return "closed_by_peer"
	case StateProblemDetectedLocally:
		return "problem_detected_locally"
	default:
		return "unknown"
	}
}

// StatusEvent is one status-change notification produced by PumpEvents.
// Listener is set only for connections that arrived through a listen socket.
type StatusEvent struct {
	Handle   ConnectionHandle
	Listener ListenerHandle
	Remote   domain.PeerID
	State    ConnState
	OldState ConnState
}

// Result is the outcome code of accept and send calls.
type Result int

const (
	ResultOK Result = iota
	ResultInvalidParam
	ResultInvalidState
	ResultNoConnection
	ResultIgnored
	ResultLimitExceeded
)

var (
	ErrInvalidParam  = errors.New("transport: invalid param")
	ErrInvalidState  = errors.New("transport: invalid state")
	ErrNoConnection  = errors.New("transport: no connection")
	ErrIgnored       = errors.New("transport: ignored")
	ErrLimitExceeded = errors.New("transport: limit exceeded")
)

// Err maps a result code onto a sentinel error; ResultOK maps to nil.
func (r Result) Err() error {
	switch r {
	case ResultOK:
		return nil
	case ResultInvalidParam:
		return ErrInvalidParam
	case ResultInvalidState:
		return ErrInvalidState
	case ResultNoConnection:
		return ErrNoConnection
	case ResultIgnored:
		return ErrIgnored
	case ResultLimitExceeded:
		return ErrLimitExceeded
	default:
		return ErrInvalidParam
	}
}

func (r Result) String() string {
	if r == ResultOK {
		return "ok"
	}
	return r.Err().Error()
}

// SendFlags selects delivery guarantees for one message.
type SendFlags int

const (
	SendUnreliable SendFlags = 0
	SendNoNagle    SendFlags = 1
	SendNoDelay    SendFlags = 4
	SendReliable   SendFlags = 8
)

func (f SendFlags) Reliable() bool { return f&SendReliable != 0 }

// ParseSendMode maps config values onto flags. Unknown modes fall back to reliable.
func ParseSendMode(mode string) SendFlags {
	switch mode {
	case "unreliable":
		return SendUnreliable
	case "unreliable_nodelay":
		return SendUnreliable | SendNoDelay
	case "reliable_nonagle":
		return SendReliable | SendNoNagle
	default:
		return SendReliable
	}
}

// Transport abstracts the relay primitive the session engine runs on.
// Status notifications are queued by the adapter and delivered synchronously,
// in production order, to status subscribers from within PumpEvents.
// Send must not retain data after it returns.
type Transport interface {
	Connect(remote domain.PeerID) ConnectionHandle
	CreateListener() ListenerHandle
	CloseListener(l ListenerHandle) bool
	AcceptPending(h ConnectionHandle) Result
	Close(h ConnectionHandle, linger bool) bool
	Send(h ConnectionHandle, data []byte, flags SendFlags) Result
	PollIncoming(h ConnectionHandle, maxBatch int) [][]byte
	PumpEvents()

	SubscribeStatus(fn func(StatusEvent)) event.ID
	UnsubscribeStatus(id event.ID)
}
