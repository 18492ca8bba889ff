package link

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dkeye/peerlink/internal/core"
	"github.com/dkeye/peerlink/internal/core/mocks"
)

func TestChannelDefaults(t *testing.T) {
	ch := NewChannel(nil, ChannelOptions{})
	assert.Equal(t, DefaultReceiveBatch, ch.Options().ReceiveBatch)
	assert.Equal(t, DefaultMaxMessageSize, ch.Options().MaxMessageSize)
	assert.Equal(t, core.SendReliable, DefaultChannelOptions().Flags)
}

func TestChannelSendOversizedNeverReachesTransport(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	ch := NewChannel(tr, DefaultChannelOptions())
	err := ch.Send(1, make([]byte, 70000))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}

func TestChannelSendUsesFlagsAndCopies(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)
	payload := bytes.Repeat([]byte{0xAB}, DefaultMaxMessageSize)

	tr.EXPECT().Send(core.ConnectionHandle(2), gomock.Any(), core.SendReliable).
		DoAndReturn(func(_ core.ConnectionHandle, data []byte, _ core.SendFlags) core.Result {
			assert.Equal(t, payload, data)
			return core.ResultOK
		})

	ch := NewChannel(tr, DefaultChannelOptions())
	require.NoError(t, ch.Send(2, payload))
}

func TestChannelSendMapsResults(t *testing.T) {
	cases := []struct {
		res core.Result
		err error
	}{
		{core.ResultInvalidState, core.ErrInvalidState},
		{core.ResultNoConnection, core.ErrNoConnection},
		{core.ResultLimitExceeded, core.ErrLimitExceeded},
		{core.ResultIgnored, core.ErrIgnored},
		{core.ResultInvalidParam, core.ErrInvalidParam},
	}
	for _, tc := range cases {
		t.Run(tc.res.String(), func(t *testing.T) {
			ctrl := gomock.NewController(t)
			tr := mocks.NewMockTransport(ctrl)
			tr.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(tc.res).Times(1)

			ch := NewChannel(tr, ChannelOptions{Flags: core.SendUnreliable})
			assert.ErrorIs(t, ch.Send(1, []byte("x")), tc.err)
		})
	}
}

func TestChannelReceiveIsBounded(t *testing.T) {
	ctrl := gomock.NewController(t)
	tr := mocks.NewMockTransport(ctrl)

	backlog := make([][]byte, 20)
	for i := range backlog {
		backlog[i] = []byte{byte(i)}
	}
	gomock.InOrder(
		tr.EXPECT().PollIncoming(core.ConnectionHandle(1), 16).Return(backlog),
		tr.EXPECT().PollIncoming(core.ConnectionHandle(1), 16).Return(nil),
	)

	ch := NewChannel(tr, DefaultChannelOptions())
	got := ch.Receive(1)
	require.Len(t, got, 16)
	backlog[0][0] = 0xFF
	assert.Equal(t, byte(0), got[0][0])

	empty := ch.Receive(1)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
