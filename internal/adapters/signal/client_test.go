package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

func TestClientFollowsRoomState(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dial(t, "alice")
	bob := h.dial(t, "bob")

	require.NoError(t, alice.Join("lobby"))
	settle(t, alice.IsInRoom, alice)
	assert.Equal(t, domain.PeerID("alice"), alice.OwnerID())

	require.NoError(t, bob.Join("lobby"))
	settle(t, func() bool { return len(alice.Members()) == 2 && bob.IsInRoom() }, alice, bob)
	assert.Equal(t, []domain.PeerID{"alice", "bob"}, bob.Members())
	assert.Equal(t, domain.PeerID("alice"), bob.OwnerID())
	assert.Equal(t, domain.RoomName("lobby"), bob.Room())
}

func TestClientRelaysSignals(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dial(t, "alice")
	bob := h.dial(t, "bob")
	require.NoError(t, alice.Join("lobby"))
	require.NoError(t, bob.Join("lobby"))
	settle(t, func() bool { return len(alice.Members()) == 2 && bob.IsInRoom() }, alice, bob)

	var got []Incoming
	alice.SubscribeSignal(func(in Incoming) { got = append(got, in) })
	offer := core.Signal{Kind: core.SignalOffer, Conn: "c1", SDP: "v=0"}
	require.NoError(t, bob.SendSignal("alice", offer))

	settle(t, func() bool { return len(got) == 1 }, alice)
	assert.Equal(t, Incoming{From: "bob", Signal: offer}, got[0])
}

func TestClientKickedByOwner(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dial(t, "alice")
	bob := h.dial(t, "bob")
	require.NoError(t, alice.Join("lobby"))
	settle(t, alice.IsInRoom, alice)
	require.NoError(t, bob.Join("lobby"))
	settle(t, bob.IsInRoom, bob)

	var events []core.RosterEvent
	bob.SubscribeRoster(func(ev core.RosterEvent) { events = append(events, ev) })

	var errs []string
	bob.SubscribeErrors(func(code string) { errs = append(errs, code) })
	require.NoError(t, bob.Kick("alice"))
	settle(t, func() bool { return len(errs) == 1 }, bob)
	assert.Equal(t, "not_owner", errs[0])

	require.NoError(t, alice.Kick("bob"))
	settle(t, func() bool { return len(events) == 1 }, bob)
	assert.Equal(t, core.RosterEvent{Kind: core.RosterRemovedByOwner, Room: "lobby"}, events[0])
	assert.False(t, bob.IsInRoom())
	assert.Empty(t, bob.Members())
}

func TestClientLeave(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dial(t, "alice")
	require.NoError(t, alice.Join("lobby"))
	settle(t, alice.IsInRoom, alice)

	var events []core.RosterEvent
	alice.SubscribeRoster(func(ev core.RosterEvent) { events = append(events, ev) })
	require.NoError(t, alice.Leave())
	settle(t, func() bool { return len(events) == 1 }, alice)
	assert.Equal(t, core.RosterLeft, events[0].Kind)
	assert.Empty(t, h.ctl.Orch.Rooms.List())
}

func TestClientMovingRoomsLeavesOld(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dial(t, "alice")
	require.NoError(t, alice.Join("a"))
	settle(t, alice.IsInRoom, alice)

	var events []core.RosterEvent
	alice.SubscribeRoster(func(ev core.RosterEvent) { events = append(events, ev) })
	require.NoError(t, alice.Join("b"))
	settle(t, func() bool { return alice.Room() == "b" }, alice)
	require.Len(t, events, 1)
	assert.Equal(t, core.RosterEvent{Kind: core.RosterLeft, Room: "a"}, events[0])
}

func TestClientHubLost(t *testing.T) {
	h := newTestHub(t, nil)
	alice := h.dial(t, "alice")
	require.NoError(t, alice.Join("lobby"))
	settle(t, alice.IsInRoom, alice)

	var events []core.RosterEvent
	alice.SubscribeRoster(func(ev core.RosterEvent) { events = append(events, ev) })
	require.True(t, h.ctl.Orch.Registry.Cancel("alice"))

	settle(t, func() bool { return len(events) == 1 }, alice)
	assert.Equal(t, core.RosterLeft, events[0].Kind)
	assert.ErrorIs(t, alice.Join("lobby"), ErrHubGone)
}
