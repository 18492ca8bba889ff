package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResultErr(t *testing.T) {
	tests := []struct {
		result Result
		want   error
	}{
		{ResultOK, nil},
		{ResultInvalidParam, ErrInvalidParam},
		{ResultInvalidState, ErrInvalidState},
		{ResultNoConnection, ErrNoConnection},
		{ResultIgnored, ErrIgnored},
		{ResultLimitExceeded, ErrLimitExceeded},
		{Result(99), ErrInvalidParam},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.result.Err())
	}
	assert.Equal(t, "ok", ResultOK.String())
}

func TestParseSendMode(t *testing.T) {
	assert.Equal(t, SendReliable, ParseSendMode("reliable"))
	assert.Equal(t, SendReliable, ParseSendMode("bogus"))
	assert.Equal(t, SendUnreliable, ParseSendMode("unreliable"))
	assert.False(t, ParseSendMode("unreliable_nodelay").Reliable())
	assert.True(t, ParseSendMode("reliable_nonagle").Reliable())
}

func TestConnStateString(t *testing.T) {
	assert.Equal(t, "closed_by_peer", StateClosedByPeer.String())
	assert.Equal(t, "unknown", ConnState(42).String())
}
