package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerlink/internal/adapters/memnet"
	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/domain"
)

type relayWorld struct {
	*world
	relay   *Relay
	host    *memnet.Endpoint
	clients map[domain.PeerID]*Client
	eps     map[domain.PeerID]*memnet.Endpoint
}

func newRelayWorld(t *testing.T, ropts []RelayOption, netOpts ...memnet.Option) *relayWorld {
	w := &relayWorld{
		world:   newWorld(t, netOpts...),
		clients: make(map[domain.PeerID]*Client),
		eps:     make(map[domain.PeerID]*memnet.Endpoint),
	}
	host, roster := w.join("a")
	w.host = host
	w.relay = NewRelay(host, roster, testOpts, append([]RelayOption{WithAutoAccept()}, ropts...)...)
	require.NoError(t, w.relay.Start())
	return w
}

func (w *relayWorld) connect(id domain.PeerID) *Client {
	w.t.Helper()
	ep, roster := w.join(id)
	c := NewClient(ep, roster, testOpts)
	require.NoError(w.t, c.Connect())
	pump(w.host, ep)
	require.True(w.t, c.IsConnected())
	w.clients[id] = c
	w.eps[id] = ep
	return c
}

func TestRelayForwardsToOthers(t *testing.T) {
	w := newRelayWorld(t, nil)
	b := w.connect("b")
	c := w.connect("c")
	d := w.connect("d")

	require.NoError(t, b.Send([]byte("ping")))
	require.NoError(t, w.relay.Update())

	fromB, err := b.Poll()
	require.NoError(t, err)
	assert.Empty(t, fromB)
	for _, cli := range []*Client{c, d} {
		msgs, err := cli.Poll()
		require.NoError(t, err)
		assert.Equal(t, [][]byte{[]byte("ping")}, msgs)
	}
}

func TestRelayRejectsStrangers(t *testing.T) {
	w := newRelayWorld(t, nil)
	slog := watchServer(w.relay.Server)

	stranger := w.net.Endpoint("z")
	conn, err := link.Initiate(stranger, "a")
	require.NoError(t, err)
	pump(w.host, stranger)

	assert.Equal(t, 1, slog.count(ClientConnectionRejected, "z"))
	assert.Equal(t, link.Rejected, conn.State())
	assert.Empty(t, w.relay.Clients())
}

func TestRelayKicksCongestedClient(t *testing.T) {
	w := newRelayWorld(t, nil, memnet.WithMaxInbound(1))
	slog := watchServer(w.relay.Server)
	b := w.connect("b")
	w.connect("c")

	require.NoError(t, b.Send([]byte("1")))
	require.NoError(t, w.relay.Update())
	require.NoError(t, b.Send([]byte("2")))
	require.NoError(t, w.relay.Update())

	assert.Equal(t, 1, slog.count(ClientConnectionClosedByServer, "c"))
	assert.Equal(t, []domain.PeerID{"b"}, w.relay.Clients())
}

func TestRelayStrikePolicyMarksSlowFirst(t *testing.T) {
	policy := NewStrikePolicy(2)
	w := newRelayWorld(t, []RelayOption{WithPolicy(policy)}, memnet.WithMaxInbound(1))
	slog := watchServer(w.relay.Server)
	b := w.connect("b")
	w.connect("c")

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Send([]byte{byte(i)}))
		require.NoError(t, w.relay.Update())
	}
	assert.Zero(t, slog.count(ClientConnectionClosedByServer, "c"))

	require.NoError(t, b.Send([]byte("3")))
	require.NoError(t, w.relay.Update())
	assert.Equal(t, 1, slog.count(ClientConnectionClosedByServer, "c"))
}

func TestRelayCloseDetaches(t *testing.T) {
	w := newRelayWorld(t, nil)
	b := w.connect("b")
	c := w.connect("c")
	w.relay.Close()

	require.NoError(t, b.Send([]byte("ping")))
	require.NoError(t, w.relay.Update())

	msgs, err := c.Poll()
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
