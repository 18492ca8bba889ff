// Package domain contains entity without logic, just meta-data
package domain

import (
	"errors"

	"github.com/google/uuid"
)

const (
	MaxPeerIDLen = 36
	MaxNameLen   = 36
)

var (
	ErrNameTooLong   = errors.New("name too long")
	ErrNameEmpty     = errors.New("name empty")
	ErrPeerIDTooLong = errors.New("peer id too long")
	ErrPeerNotFound  = errors.New("peer not found")
)

// PeerID identifies one participant across rooms and connections.
type PeerID string

func (id PeerID) String() string { return string(id) }

// NewPeerID returns a fresh random identity.
func NewPeerID() PeerID {
	return PeerID(uuid.NewString())
}

// ParsePeerID accepts identities handed in from the outside (query params, config).
func ParsePeerID(raw string) (PeerID, error) {
	if raw == "" {
		return "", ErrNameEmpty
	}
	if len(raw) > MaxPeerIDLen {
		return "", ErrPeerIDTooLong
	}
	return PeerID(raw), nil
}

type Peer struct {
	ID   PeerID `json:"id"`
	Name string `json:"name"`
}

// NewPeer is a tiny helper to avoid ad-hoc struct literals in adapters.
func NewPeer(id PeerID, name string) (*Peer, error) {
	p := &Peer{ID: id}
	if err := p.SetName(name); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Peer) SetName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxNameLen {
		return ErrNameTooLong
	}
	p.Name = name
	return nil
}
