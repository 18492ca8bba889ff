package memnet

import (
	"github.com/dkeye/peerlink/internal/core"
)

// InjectProblem reports a locally detected failure (timeout, lost route) on h.
func (e *Endpoint) InjectProblem(h core.ConnectionHandle) bool {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	c, ok := e.conns[h]
	if !ok || !c.alive() {
		return false
	}
	old := c.state
	c.state = core.StateProblemDetectedLocally
	e.enqueue(c, old)
	return true
}

func (e *Endpoint) SetFailConnect(v bool) {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	e.failConnect = v
}

func (e *Endpoint) SetFailListen(v bool) {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	e.failListen = v
}

func (e *Endpoint) SetFailCloseListener(v bool) {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	e.failCloseListener = v
}

func (e *Endpoint) SetFailClose(v bool) {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	e.failClose = v
}

// SetAcceptResult forces AcceptPending to return r for otherwise valid calls.
func (e *Endpoint) SetAcceptResult(r core.Result) {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	e.acceptResult = r
}

// SetSendResult forces every Send to return r; ResultOK restores normal delivery.
func (e *Endpoint) SetSendResult(r core.Result) {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	e.sendResult = r
}

// Closes returns every Close call made on this endpoint, oldest first.
func (e *Endpoint) Closes() []CloseRecord {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	out := make([]CloseRecord, len(e.closes))
	copy(out, e.closes)
	return out
}

// Live reports whether h is still allocated on this endpoint.
func (e *Endpoint) Live(h core.ConnectionHandle) bool {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	_, ok := e.conns[h]
	return ok
}

func (e *Endpoint) ConnCount() int {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	return len(e.conns)
}

// Listening reports whether a listener is currently open.
func (e *Endpoint) Listening() bool {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	return e.listener != core.InvalidListener
}

// Backlog returns the number of undrained inbound messages on h.
func (e *Endpoint) Backlog(h core.ConnectionHandle) int {
	e.net.mu.Lock()
	defer e.net.mu.Unlock()
	c, ok := e.conns[h]
	if !ok {
		return 0
	}
	return len(c.inbox)
}
