package link

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/domain"
)

var ErrCloseFailed = errors.New("link: transport failed to close connection")

// Closer releases connection handles. Graceful closes linger so the peer can
// drain data already sent; abandoned closes drop the handle immediately.
// A failed close is reported and never retried.
type Closer struct {
	t core.Transport
}

func NewCloser(t core.Transport) Closer {
	return Closer{t: t}
}

// Graceful closes a connection that reached Connected.
func (c Closer) Graceful(conn *Connection) error {
	return c.close(conn.Handle(), conn.Remote(), true)
}

// Abandon closes a connection that never reached Connected.
func (c Closer) Abandon(conn *Connection) error {
	return c.close(conn.Handle(), conn.Remote(), false)
}

// AbandonHandle closes a handle no Connection was built for.
func (c Closer) AbandonHandle(h core.ConnectionHandle, remote domain.PeerID) error {
	return c.close(h, remote, false)
}

func (c Closer) close(h core.ConnectionHandle, remote domain.PeerID, linger bool) error {
	if h == core.InvalidConnection || !c.t.Close(h, linger) {
		log.Warn().
			Str("module", "app.link").
			Str("peer", remote.String()).
			Uint32("handle", uint32(h)).
			Bool("linger", linger).
			Msg("close failed")
		return fmt.Errorf("%w: handle %d", ErrCloseFailed, h)
	}
	log.Debug().
		Str("module", "app.link").
		Str("peer", remote.String()).
		Uint32("handle", uint32(h)).
		Bool("linger", linger).
		Msg("connection closed")
	return nil
}
