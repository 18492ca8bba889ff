package link

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/peerlink/internal/core"
)

const (
	DefaultReceiveBatch   = 16
	DefaultMaxMessageSize = 65536
)

var ErrMessageTooLarge = errors.New("link: message exceeds send buffer")

type ChannelOptions struct {
	ReceiveBatch   int
	MaxMessageSize int
	Flags          core.SendFlags
}

func DefaultChannelOptions() ChannelOptions {
	return ChannelOptions{
		ReceiveBatch:   DefaultReceiveBatch,
		MaxMessageSize: DefaultMaxMessageSize,
		Flags:          core.SendReliable,
	}
}

// Channel moves opaque payloads over transport handles.
// Sends go through one reusable staging buffer; receives drain one bounded batch per call.
type Channel struct {
	t       core.Transport
	opts    ChannelOptions
	staging []byte
}

func NewChannel(t core.Transport, opts ChannelOptions) *Channel {
	if opts.ReceiveBatch <= 0 {
		opts.ReceiveBatch = DefaultReceiveBatch
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = DefaultMaxMessageSize
	}
	return &Channel{
		t:       t,
		opts:    opts,
		staging: make([]byte, opts.MaxMessageSize),
	}
}

func (ch *Channel) Options() ChannelOptions { return ch.opts }

// Send submits data once. Transport refusals are returned, never retried.
func (ch *Channel) Send(h core.ConnectionHandle, data []byte) error {
	if len(data) > ch.opts.MaxMessageSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrMessageTooLarge, len(data), ch.opts.MaxMessageSize)
	}
	n := copy(ch.staging, data)
	res := ch.t.Send(h, ch.staging[:n], ch.opts.Flags)
	if err := res.Err(); err != nil {
		log.Warn().
			Str("module", "app.link").
			Uint32("handle", uint32(h)).
			Int("size", n).
			Stringer("result", res).
			Msg("send refused by transport")
		return fmt.Errorf("send on handle %d: %w", h, err)
	}
	return nil
}

// Receive returns at most ReceiveBatch buffered messages, each copied out.
// An empty result means nothing is pending.
func (ch *Channel) Receive(h core.ConnectionHandle) [][]byte {
	msgs := ch.t.PollIncoming(h, ch.opts.ReceiveBatch)
	if len(msgs) > ch.opts.ReceiveBatch {
		msgs = msgs[:ch.opts.ReceiveBatch]
	}
	out := make([][]byte, 0, len(msgs))
	for _, m := range msgs {
		buf := make([]byte, len(m))
		copy(buf, m)
		out = append(out, buf)
	}
	return out
}
