package rtc

import (
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
)

const (
	reliableLabel   = "peerlink-reliable"
	unreliableLabel = "peerlink-unreliable"
)

type connHooks struct {
	onOpen    func()
	onMessage func([]byte)
	onClosed  func()
	onFailed  func()
}

// peerConn is one PeerConnection carrying a reliable ordered data channel and
// an unordered one without retransmits.
type peerConn struct {
	pc     *webrtc.PeerConnection
	hooks  connHooks
	logger zerolog.Logger

	mu         sync.Mutex
	reliable   *webrtc.DataChannel
	unreliable *webrtc.DataChannel
	opened     int
}

func newPeerConn(api *webrtc.API, cfg webrtc.Configuration, hooks connHooks, logger zerolog.Logger) (*peerConn, error) {
	pc, err := api.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	c := &peerConn{pc: pc, hooks: hooks, logger: logger}

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.logger.Debug().Str("peer_connection_state", s.String()).Msg("peer state")
		if s == webrtc.PeerConnectionStateFailed {
			c.hooks.onFailed()
		}
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		switch dc.Label() {
		case reliableLabel:
			c.bind(dc, true)
		case unreliableLabel:
			c.bind(dc, false)
		default:
			c.logger.Warn().Str("label", dc.Label()).Msg("unexpected data channel")
		}
	})
	return c, nil
}

// createChannels is called on the offering side only.
func (c *peerConn) createChannels() error {
	ordered := true
	rel, err := c.pc.CreateDataChannel(reliableLabel, &webrtc.DataChannelInit{Ordered: &ordered})
	if err != nil {
		return err
	}
	unordered := false
	var retransmits uint16
	unrel, err := c.pc.CreateDataChannel(unreliableLabel, &webrtc.DataChannelInit{
		Ordered:        &unordered,
		MaxRetransmits: &retransmits,
	})
	if err != nil {
		return err
	}
	c.bind(rel, true)
	c.bind(unrel, false)
	return nil
}

func (c *peerConn) bind(dc *webrtc.DataChannel, reliable bool) {
	c.mu.Lock()
	if reliable {
		c.reliable = dc
	} else {
		c.unreliable = dc
	}
	c.mu.Unlock()

	dc.OnOpen(func() {
		c.mu.Lock()
		c.opened++
		ready := c.opened == 2
		c.mu.Unlock()
		if ready {
			c.hooks.onOpen()
		}
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		c.hooks.onMessage(msg.Data)
	})
	if reliable {
		dc.OnClose(func() { c.hooks.onClosed() })
	}
}

// offer creates the local offer and waits for ICE gathering so no trickle is needed.
func (c *peerConn) offer() (string, error) {
	offer, err := c.pc.CreateOffer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(offer); err != nil {
		return "", err
	}
	<-gatherComplete
	return c.pc.LocalDescription().SDP, nil
}

func (c *peerConn) answer(offerSDP string) (string, error) {
	if err := c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offerSDP}); err != nil {
		return "", err
	}
	answer, err := c.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}
	gatherComplete := webrtc.GatheringCompletePromise(c.pc)
	if err := c.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}
	<-gatherComplete
	return c.pc.LocalDescription().SDP, nil
}

func (c *peerConn) applyAnswer(sdp string) error {
	return c.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp})
}

func (c *peerConn) channel(reliable bool) *webrtc.DataChannel {
	c.mu.Lock()
	defer c.mu.Unlock()
	if reliable {
		return c.reliable
	}
	return c.unreliable
}

func (c *peerConn) buffered() uint64 {
	var n uint64
	for _, dc := range []*webrtc.DataChannel{c.channel(true), c.channel(false)} {
		if dc != nil {
			n += dc.BufferedAmount()
		}
	}
	return n
}

// drain waits until queued data has left both channels or timeout passes.
func (c *peerConn) drain(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for c.buffered() > 0 {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
	return true
}

func (c *peerConn) close() {
	if err := c.pc.Close(); err != nil {
		c.logger.Error().Err(err).Msg("close error")
		return
	}
	c.logger.Debug().Msg("peer connection closed")
}
