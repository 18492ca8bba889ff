package session

import "github.com/dkeye/peerlink/internal/domain"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	MarkSlow
	KickClient
	DropMessage
)

func (a BackpressureAction) String() string {
	switch a {
	case NoAction:
		return "no_action"
	case MarkSlow:
		return "mark_slow"
	case KickClient:
		return "kick_client"
	case DropMessage:
		return "drop_message"
	default:
		return "unknown"
	}
}

// Policy decides what happens to a client whose transport queue is full.
type Policy interface {
	OnBackPressure(client domain.PeerID) BackpressureAction
}

type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.PeerID) BackpressureAction {
	return KickClient
}

// StrikePolicy marks a client slow until it has been congested Max times, then kicks it.
type StrikePolicy struct {
	Max     int
	strikes map[domain.PeerID]int
}

func NewStrikePolicy(max int) *StrikePolicy {
	return &StrikePolicy{Max: max, strikes: make(map[domain.PeerID]int)}
}

func (p *StrikePolicy) OnBackPressure(client domain.PeerID) BackpressureAction {
	p.strikes[client]++
	if p.strikes[client] >= p.Max {
		delete(p.strikes, client)
		return KickClient
	}
	return MarkSlow
}

// Forget drops the strikes of a client that went away.
func (p *StrikePolicy) Forget(client domain.PeerID) {
	delete(p.strikes, client)
}
