package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPeer(t *testing.T) {
	id := NewPeerID()
	p, err := NewPeer(id, "alice")
	require.NoError(t, err)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, "alice", p.Name)

	_, err = NewPeer(id, "")
	assert.ErrorIs(t, err, ErrNameEmpty)

	_, err = NewPeer(id, strings.Repeat("x", MaxNameLen+1))
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestParsePeerID(t *testing.T) {
	id, err := ParsePeerID("b")
	require.NoError(t, err)
	assert.Equal(t, PeerID("b"), id)

	_, err = ParsePeerID("")
	assert.Error(t, err)

	_, err = ParsePeerID(strings.Repeat("x", MaxPeerIDLen+1))
	assert.ErrorIs(t, err, ErrPeerIDTooLong)

	assert.Len(t, NewPeerID().String(), 36)
}

func TestNormalizeRoomName(t *testing.T) {
	assert.Equal(t, RoomName("main"), NormalizeRoomName("main"))
	assert.Len(t, string(NormalizeRoomName(strings.Repeat("r", 50))), MaxRoomNameLen)
}
