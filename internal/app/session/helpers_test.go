package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerlink/internal/adapters/memnet"
	"github.com/dkeye/peerlink/internal/app"
	"github.com/dkeye/peerlink/internal/app/link"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

type world struct {
	t    *testing.T
	net  *memnet.Network
	room core.RoomService
}

func newWorld(t *testing.T, opts ...memnet.Option) *world {
	return &world{
		t:    t,
		net:  memnet.NewNetwork(opts...),
		room: core.NewRoomService(&domain.Room{Name: "lobby"}),
	}
}

// join seats id in the room. The first peer to join owns it.
func (w *world) join(id domain.PeerID) (*memnet.Endpoint, *app.RosterView) {
	w.t.Helper()
	p, err := domain.NewPeer(id, string(id))
	require.NoError(w.t, err)
	w.room.AddMember(core.NewMemberSession(domain.NewMember(p), nil))
	v := app.NewRosterView(id)
	v.Attach(w.room)
	return w.net.Endpoint(id), v
}

func pump(eps ...*memnet.Endpoint) {
	for _, e := range eps {
		e.PumpEvents()
	}
}

type serverLog struct {
	events []ServerEvent
}

func watchServer(s *Server) *serverLog {
	l := &serverLog{}
	s.Subscribe(func(ev ServerEvent) { l.events = append(l.events, ev) })
	return l
}

func (l *serverLog) kinds() []ServerEventKind {
	out := make([]ServerEventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (l *serverLog) last() ServerEvent { return l.events[len(l.events)-1] }

func (l *serverLog) count(kind ServerEventKind, peer domain.PeerID) int {
	n := 0
	for _, ev := range l.events {
		if ev.Kind == kind && ev.Peer == peer {
			n++
		}
	}
	return n
}

type clientLog struct {
	events []ClientEvent
}

func watchClient(c *Client) *clientLog {
	l := &clientLog{}
	c.Subscribe(func(ev ClientEvent) { l.events = append(l.events, ev) })
	return l
}

func (l *clientLog) kinds() []ClientEventKind {
	out := make([]ClientEventKind, 0, len(l.events))
	for _, ev := range l.events {
		out = append(out, ev.Kind)
	}
	return out
}

var testOpts = link.DefaultChannelOptions()

// connected brings up a server on owner and one connected client per member.
func (w *world) connected(owner domain.PeerID, members ...domain.PeerID) (*Server, *memnet.Endpoint, map[domain.PeerID]*Client, map[domain.PeerID]*memnet.Endpoint) {
	w.t.Helper()
	hostEP, hostRoster := w.join(owner)
	srv := NewServer(hostEP, hostRoster, testOpts)
	require.NoError(w.t, srv.Start())

	clients := make(map[domain.PeerID]*Client)
	eps := make(map[domain.PeerID]*memnet.Endpoint)
	for _, id := range members {
		ep, r := w.join(id)
		c := NewClient(ep, r, testOpts)
		require.NoError(w.t, c.Connect())
		pump(hostEP)
		require.NoError(w.t, srv.AcceptConnectionRequest(id))
		pump(ep, hostEP)
		require.True(w.t, c.IsConnected())
		clients[id] = c
		eps[id] = ep
	}
	return srv, hostEP, clients, eps
}
