package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/peerlink/internal/app"
	"github.com/dkeye/peerlink/internal/app/orch"
	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

const waitFor = 2 * time.Second

type testHub struct {
	ctl *SignalWSController
	srv *httptest.Server
	url string
}

func newTestHub(t *testing.T, limiter *RoomRateLimiter) *testHub {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	ctl := NewSignalWSController(orch.New(app.NewRegistry(), app.NewRoomManager()), limiter)
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return &testHub{ctl: ctl, srv: srv, url: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"}
}

func (h *testHub) dial(t *testing.T, id domain.PeerID) *Client {
	t.Helper()
	c, err := Dial(context.Background(), h.url, id, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func (h *testHub) dialRaw(t *testing.T, id domain.PeerID) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(h.url+"?id="+id.String(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func writeJSON(t *testing.T, ws *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(v))
}

// readUntil returns the raw body of the next frame of type typ, skipping others.
func readUntil(t *testing.T, ws *websocket.Conn, typ string) []byte {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(waitFor)))
	for {
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var env core.Envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == typ {
			return data
		}
	}
}

func readError(t *testing.T, ws *websocket.Conn) string {
	t.Helper()
	var m core.ErrorMessage
	require.NoError(t, json.Unmarshal(readUntil(t, ws, core.MsgError), &m))
	return m.Error
}

// settle pumps every client until cond holds.
func settle(t *testing.T, cond func() bool, clients ...*Client) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, c := range clients {
			c.PumpEvents()
		}
		return cond()
	}, waitFor, 5*time.Millisecond)
}
