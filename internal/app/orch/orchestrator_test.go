package orch

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerlink/internal/app"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

var errFull = errors.New("full")

type recordingSignal struct {
	mu     sync.Mutex
	frames []core.Frame
	full   bool
}

func (r *recordingSignal) TrySend(f core.Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return errFull
	}
	r.frames = append(r.frames, f)
	return nil
}

func (r *recordingSignal) Close() {}

func (r *recordingSignal) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.frames))
	for _, f := range r.frames {
		var env core.Envelope
		if err := json.Unmarshal(f, &env); err == nil {
			out = append(out, env.Type)
		}
	}
	return out
}

func (r *recordingSignal) last(t *testing.T, v any) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.frames)
	require.NoError(t, json.Unmarshal(r.frames[len(r.frames)-1], v))
}

type hub struct {
	orch      *Orchestrator
	signals   map[domain.PeerID]*recordingSignal
	cancelled map[domain.PeerID]int
}

func newHub() *hub {
	return &hub{
		orch:      New(app.NewRegistry(), app.NewRoomManager()),
		signals:   map[domain.PeerID]*recordingSignal{},
		cancelled: map[domain.PeerID]int{},
	}
}

func (h *hub) connect(id domain.PeerID) core.MemberSession {
	sig := &recordingSignal{}
	h.signals[id] = sig
	peer := h.orch.Registry.GetOrCreatePeer(id)
	sess := core.NewMemberSession(domain.NewMember(peer), sig)
	h.orch.Registry.BindSignal(id, sess, func() { h.cancelled[id]++ })
	return sess
}

func TestJoinFirstMemberOwnsRoom(t *testing.T) {
	h := newHub()
	h.connect("alice")
	h.connect("bob")

	_, err := h.orch.Join("alice", "lobby")
	require.NoError(t, err)
	_, err = h.orch.Join("bob", "lobby")
	require.NoError(t, err)

	var st core.RoomStateMessage
	h.signals["alice"].last(t, &st)
	assert.Equal(t, domain.PeerID("alice"), st.Owner)
	require.Len(t, st.Members, 2)
	assert.True(t, st.Members[0].Owner)
	assert.Equal(t, []string{core.MsgRoomState}, h.signals["bob"].types())
}

func TestJoinWithoutSession(t *testing.T) {
	h := newHub()
	_, err := h.orch.Join("ghost", "lobby")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestJoinMovesBetweenRooms(t *testing.T) {
	h := newHub()
	h.connect("alice")

	_, err := h.orch.Join("alice", "a")
	require.NoError(t, err)
	_, err = h.orch.Join("alice", "b")
	require.NoError(t, err)

	_, ok := h.orch.Rooms.GetRoom("a")
	assert.False(t, ok, "empty room is dropped")
	room, _, ok := h.orch.Registry.RoomOf("alice")
	require.True(t, ok)
	assert.Equal(t, domain.RoomName("b"), room)
}

func TestLeaveTransfersOwnership(t *testing.T) {
	h := newHub()
	h.connect("alice")
	h.connect("bob")
	_, _ = h.orch.Join("alice", "lobby")
	_, _ = h.orch.Join("bob", "lobby")

	require.NoError(t, h.orch.Leave("alice"))

	var left core.RoomMessage
	h.signals["alice"].last(t, &left)
	assert.Equal(t, core.MsgLeft, left.Type)

	var st core.RoomStateMessage
	h.signals["bob"].last(t, &st)
	assert.Equal(t, domain.PeerID("bob"), st.Owner)
	assert.Len(t, st.Members, 1)

	assert.ErrorIs(t, h.orch.Leave("alice"), ErrNotInRoom)
}

func TestKick(t *testing.T) {
	h := newHub()
	h.connect("alice")
	h.connect("bob")
	_, _ = h.orch.Join("alice", "lobby")
	_, _ = h.orch.Join("bob", "lobby")

	assert.ErrorIs(t, h.orch.Kick("bob", "alice"), core.ErrNotOwner)
	require.NoError(t, h.orch.Kick("alice", "bob"))

	var kicked core.RoomMessage
	h.signals["bob"].last(t, &kicked)
	assert.Equal(t, core.MsgKicked, kicked.Type)
	assert.Equal(t, domain.RoomName("lobby"), kicked.Room)
	_, _, ok := h.orch.Registry.RoomOf("bob")
	assert.False(t, ok)

	var st core.RoomStateMessage
	h.signals["alice"].last(t, &st)
	assert.Len(t, st.Members, 1)
}

func TestOnDisconnectIgnoresReplacedSession(t *testing.T) {
	h := newHub()
	old := h.connect("alice")
	h.connect("alice")
	_, _ = h.orch.Join("alice", "lobby")

	h.orch.OnDisconnect("alice", old)
	_, _, ok := h.orch.Registry.RoomOf("alice")
	assert.True(t, ok)

	cur, _ := h.orch.Registry.GetSession("alice")
	h.orch.OnDisconnect("alice", cur)
	_, ok = h.orch.Rooms.GetRoom("lobby")
	assert.False(t, ok)
	_, ok = h.orch.Registry.GetSession("alice")
	assert.False(t, ok)
}

func TestEvictRoom(t *testing.T) {
	h := newHub()
	h.connect("alice")
	h.connect("bob")
	_, _ = h.orch.Join("alice", "lobby")
	_, _ = h.orch.Join("bob", "lobby")

	assert.True(t, h.orch.EvictRoom("lobby"))
	assert.False(t, h.orch.EvictRoom("lobby"))
	for _, id := range []domain.PeerID{"alice", "bob"} {
		var kicked core.RoomMessage
		h.signals[id].last(t, &kicked)
		assert.Equal(t, core.MsgKicked, kicked.Type)
	}
	assert.Empty(t, h.orch.Rooms.List())
}

func TestRouteSignal(t *testing.T) {
	h := newHub()
	h.connect("alice")
	h.connect("bob")
	h.connect("carol")
	_, _ = h.orch.Join("alice", "lobby")
	_, _ = h.orch.Join("bob", "lobby")
	_, _ = h.orch.Join("carol", "elsewhere")

	offer := core.Signal{Kind: core.SignalOffer, Conn: "c1", SDP: "v=0"}
	require.NoError(t, h.orch.RouteSignal("bob", "alice", offer))

	var msg core.SignalMessage
	h.signals["alice"].last(t, &msg)
	assert.Equal(t, domain.PeerID("bob"), msg.From)
	assert.Equal(t, offer, msg.Signal)

	assert.ErrorIs(t, h.orch.RouteSignal("bob", "carol", offer), ErrNotRoommates)
	assert.ErrorIs(t, h.orch.RouteSignal("dave", "alice", offer), ErrNotInRoom)
}

func TestRoomStateBackpressureCancelsPeer(t *testing.T) {
	h := newHub()
	h.connect("alice")
	h.connect("bob")
	_, _ = h.orch.Join("alice", "lobby")
	h.signals["alice"].full = true

	_, err := h.orch.Join("bob", "lobby")
	require.NoError(t, err)
	assert.Equal(t, 1, h.cancelled["alice"])
	assert.Zero(t, h.cancelled["bob"])
}

func TestRenamePushesState(t *testing.T) {
	h := newHub()
	h.connect("alice")
	_, _ = h.orch.Join("alice", "lobby")

	require.NoError(t, h.orch.Rename("alice", "Alice"))
	var st core.RoomStateMessage
	h.signals["alice"].last(t, &st)
	assert.Equal(t, "Alice", st.Members[0].Name)

	assert.ErrorIs(t, h.orch.Rename("alice", ""), domain.ErrNameEmpty)
	who := h.orch.WhoAmI("alice")
	assert.Equal(t, "Alice", who.Name)
	assert.Equal(t, domain.RoomName("lobby"), who.Room)
}
