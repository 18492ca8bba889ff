package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/domain"
)

func TestOwnerAcceptsMember(t *testing.T) {
	w := newWorld(t)
	a, rosterA := w.join("a")
	b, rosterB := w.join("b")

	srv := NewServer(a, rosterA, testOpts)
	slog := watchServer(srv)
	require.NoError(t, srv.Start())
	assert.Equal(t, []ServerEventKind{Started}, slog.kinds())

	cli := NewClient(b, rosterB, testOpts)
	clog := watchClient(cli)
	require.NoError(t, cli.Connect())
	assert.Equal(t, Connecting, cli.State())
	assert.Equal(t, domain.PeerID("a"), cli.Server())

	pump(a)
	assert.Equal(t, ServerEvent{Kind: ClientConnectionRequested, Peer: "b"}, slog.last())
	assert.Equal(t, []domain.PeerID{"b"}, srv.PendingRequests())

	require.NoError(t, srv.AcceptConnectionRequest("b"))
	assert.Equal(t, ServerEvent{Kind: ClientConnectionAccepted, Peer: "b"}, slog.last())
	assert.Equal(t, []domain.PeerID{"b"}, srv.Clients())

	pump(b, a)
	assert.True(t, cli.IsConnected())
	assert.Equal(t, []ClientEventKind{RequestAccepted}, clog.kinds())

	require.NoError(t, cli.Send([]byte("hello")))
	require.NoError(t, srv.Update())
	require.Len(t, slog.events, 5)
	got := slog.events[3]
	assert.Equal(t, MessagesReceived, got.Kind)
	assert.Equal(t, domain.PeerID("b"), got.Peer)
	assert.Equal(t, [][]byte{[]byte("hello")}, got.Messages)
	assert.Equal(t, Updated, slog.last().Kind)

	require.NoError(t, srv.SendMessage("b", []byte("welcome")))
	msgs, err := cli.Poll()
	require.NoError(t, err)
	assert.Equal(t, [][]byte{[]byte("welcome")}, msgs)
}

func TestOwnerRejectsMember(t *testing.T) {
	w := newWorld(t)
	a, rosterA := w.join("a")
	b, rosterB := w.join("b")

	srv := NewServer(a, rosterA, testOpts)
	slog := watchServer(srv)
	require.NoError(t, srv.Start())

	cli := NewClient(b, rosterB, testOpts)
	clog := watchClient(cli)
	require.NoError(t, cli.Connect())
	pump(a)

	require.NoError(t, srv.RejectConnectionRequest("b"))
	assert.Equal(t, ServerEvent{Kind: ClientConnectionRejected, Peer: "b"}, slog.last())
	assert.Empty(t, srv.PendingRequests())
	assert.Empty(t, srv.Clients())

	pump(b)
	assert.Equal(t, []ClientEventKind{RequestRejected}, clog.kinds())
	assert.Equal(t, Idle, cli.State())

	closes := b.Closes()
	require.Len(t, closes, 1)
	assert.False(t, closes[0].Linger)

	// a rejected client may ask again
	require.NoError(t, cli.Connect())
	pump(a)
	assert.Equal(t, []domain.PeerID{"b"}, srv.PendingRequests())
}

func TestMemberLeavesWhileConnected(t *testing.T) {
	w := newWorld(t)
	srv, a, clients, eps := w.connected("a", "b")
	slog := watchServer(srv)
	clog := watchClient(clients["b"])

	require.True(t, w.room.RemoveMember("b"))

	assert.Equal(t, []ClientEventKind{ClosedByClient}, clog.kinds())
	assert.Equal(t, Idle, clients["b"].State())
	closes := eps["b"].Closes()
	require.Len(t, closes, 1)
	assert.True(t, closes[0].Linger)

	require.NoError(t, srv.Update())
	assert.Equal(t, 1, slog.count(ClientConnectionClosedByServer, "b"))
	assert.Empty(t, srv.Clients())

	pump(a)
	require.NoError(t, srv.Update())
	assert.Equal(t, 1, slog.count(ClientConnectionClosedByServer, "b"))
	assert.Zero(t, slog.count(ClientConnectionClosedByClient, "b"))
}

func TestUpdateClosesExactlyDepartedClients(t *testing.T) {
	w := newWorld(t)
	srv, _, clients, _ := w.connected("a", "b", "c", "d")
	slog := watchServer(srv)

	require.NoError(t, w.room.Kick("a", "c"))
	require.True(t, w.room.RemoveMember("d"))
	assert.Equal(t, Idle, clients["c"].State())
	assert.Equal(t, Idle, clients["d"].State())

	require.NoError(t, srv.Update())

	assert.Equal(t, []domain.PeerID{"b"}, srv.Clients())
	assert.Equal(t, 1, slog.count(ClientConnectionClosedByServer, "c"))
	assert.Equal(t, 1, slog.count(ClientConnectionClosedByServer, "d"))
	assert.Zero(t, slog.count(ClientConnectionClosedByServer, "b"))

	members := map[domain.PeerID]bool{}
	for _, id := range srv.Roster().Members() {
		members[id] = true
	}
	for _, id := range srv.Clients() {
		assert.True(t, members[id])
	}
}

func TestOversizedPayloadLeavesStateAlone(t *testing.T) {
	w := newWorld(t)
	srv, _, clients, _ := w.connected("a", "b")
	big := make([]byte, 70000)

	assert.ErrorIs(t, srv.SendMessage("b", big), link.ErrMessageTooLarge)
	assert.ErrorIs(t, clients["b"].Send(big), link.ErrMessageTooLarge)

	assert.True(t, clients["b"].IsConnected())
	assert.Equal(t, []domain.PeerID{"b"}, srv.Clients())
	require.NoError(t, srv.SendMessage("b", []byte("still fine")))
}

func TestServerPollsOneBatchPerTick(t *testing.T) {
	w := newWorld(t)
	srv, _, clients, _ := w.connected("a", "b")
	slog := watchServer(srv)

	for i := 0; i < 20; i++ {
		require.NoError(t, clients["b"].Send([]byte{byte(i)}))
	}

	var batches []int
	for i := 0; i < 3; i++ {
		require.NoError(t, srv.Update())
	}
	for _, ev := range slog.events {
		if ev.Kind == MessagesReceived {
			batches = append(batches, len(ev.Messages))
		}
	}
	assert.Equal(t, []int{16, 4}, batches)
}

func TestOwnerLeavingStopsServer(t *testing.T) {
	w := newWorld(t)
	srv, _, clients, eps := w.connected("a", "b")
	slog := watchServer(srv)
	clog := watchClient(clients["b"])

	require.True(t, w.room.RemoveMember("a"))

	assert.False(t, srv.IsRunning())
	assert.Equal(t, []ServerEventKind{Stopped, ClientConnectionClosedByServer}, slog.kinds())

	pump(eps["b"])
	assert.Equal(t, []ClientEventKind{ClosedByServer}, clog.kinds())
}
