package channel

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"clocksim/internal/config"
	"clocksim/internal/eventlog"
	"clocksim/internal/wire"
)

// State describes an outbound channel to one peer.
type State int

const (
	// Disconnected means no connection has been established yet, or
	// startup establishment exhausted its retries.
	Disconnected State = iota
	// Connected means the last write or connect succeeded.
	Connected
	// Degraded means the last send and its one-shot recovery both
	// failed; the next send repeats the recovery cycle.
	Degraded
)

// String returns a human-readable channel state.
func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

const defaultPollTimeout = time.Second

// chann is the per-peer outbound channel. The connection object is
// replaced, never mutated, on reconnection.
type chann struct {
	peer    config.Peer
	conn    net.Conn
	state   State
	lastErr error
}

// Sink receives decoded inbound clock values. The event loop's queue
// implements it.
type Sink interface {
	Enqueue(v uint64)
}

// Options configures a Manager. Zero values fall back to production
// defaults; tests tighten the timings.
type Options struct {
	Peers   []config.Peer
	Sink    Sink
	Log     *eventlog.Logger
	Running *atomic.Bool

	ConnectPolicy  RetryPolicy   // zero value => DefaultConnectPolicy
	RecoveryPolicy RetryPolicy   // zero value => SendRecoveryPolicy
	PollTimeout    time.Duration // accept/read deadline, zero => 1s
	DialTimeout    time.Duration // zero => 1s
}

// Manager owns a node's channels: the outbound connection map (guarded
// by a mutex, mutated by startup establishment and the send-recovery
// path) and the inbound listener with one handler goroutine per
// accepted connection.
type Manager struct {
	mu       sync.Mutex
	channels map[string]*chann

	listener *net.TCPListener

	acceptedMu sync.Mutex
	accepted   map[net.Conn]struct{}

	sink    Sink
	log     *eventlog.Logger
	running *atomic.Bool

	connectPolicy  RetryPolicy
	recoveryPolicy RetryPolicy
	pollTimeout    time.Duration
	dialTimeout    time.Duration

	wg sync.WaitGroup
}

// NewManager creates a manager holding one (initially disconnected)
// channel per peer.
func NewManager(opts Options) *Manager {
	policy := opts.ConnectPolicy
	if policy.Attempts == 0 {
		policy = DefaultConnectPolicy
	}
	recovery := opts.RecoveryPolicy
	if recovery.Attempts == 0 {
		recovery = SendRecoveryPolicy
	}
	poll := opts.PollTimeout
	if poll == 0 {
		poll = defaultPollTimeout
	}
	dial := opts.DialTimeout
	if dial == 0 {
		dial = time.Second
	}

	m := &Manager{
		channels:       make(map[string]*chann, len(opts.Peers)),
		accepted:       make(map[net.Conn]struct{}),
		sink:           opts.Sink,
		log:            opts.Log,
		running:        opts.Running,
		connectPolicy:  policy,
		recoveryPolicy: recovery,
		pollTimeout:    poll,
		dialTimeout:    dial,
	}
	for _, p := range opts.Peers {
		m.channels[p.ID] = &chann{peer: p, state: Disconnected}
	}
	return m
}

// Start binds the listener and launches the accept loop.
func (m *Manager) Start(listenAddr string) error {
	ln, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}
	m.listener = ln.(*net.TCPListener)

	m.wg.Add(1)
	go m.acceptLoop()
	return nil
}

// Addr returns the listener's bound address, or nil before Start. Handy
// when the listen address was given with port 0.
func (m *Manager) Addr() net.Addr {
	if m.listener == nil {
		return nil
	}
	return m.listener.Addr()
}

// Connect establishes the outbound connection for every peer, retrying
// per the connect policy. Exhaustion is non-fatal: the failure is
// logged and the peer's channel stays disconnected, so the node runs
// degraded rather than aborting.
func (m *Manager) Connect() {
	m.mu.Lock()
	peers := make([]config.Peer, 0, len(m.channels))
	for _, ch := range m.channels {
		peers = append(peers, ch.peer)
	}
	m.mu.Unlock()

	for _, peer := range peers {
		m.connectPeer(peer)
	}
}

func (m *Manager) connectPeer(peer config.Peer) {
	for attempt := 1; attempt <= m.connectPolicy.Attempts; attempt++ {
		if !m.running.Load() {
			return
		}
		conn, err := net.DialTimeout("tcp", peer.Addr, m.dialTimeout)
		if err == nil {
			m.mu.Lock()
			m.channels[peer.ID] = &chann{peer: peer, conn: conn, state: Connected}
			m.mu.Unlock()
			m.log.Infof("Connected to machine on port %s", peer.Port())
			return
		}
		if attempt < m.connectPolicy.Attempts {
			m.log.Infof("Connection attempt %d to port %s failed, retrying...", attempt, peer.Port())
			time.Sleep(m.connectPolicy.Backoff)
		}
	}
	m.log.Errorf("Failed to connect to machine on port %s after %d attempts",
		peer.Port(), m.connectPolicy.Attempts)
}

// Send writes the payload to each named peer. A failed write gets
// exactly one recovery cycle (close the stale connection, dial fresh,
// retry the write once); if that also fails the channel is left
// degraded and the failure is logged. No background retries happen.
func (m *Manager) Send(payload []byte, peerIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range peerIDs {
		ch, ok := m.channels[id]
		if !ok {
			continue
		}
		m.sendLocked(ch, payload)
	}
}

func (m *Manager) sendLocked(ch *chann, payload []byte) {
	if ch.conn != nil {
		_, err := ch.conn.Write(payload)
		if err == nil {
			ch.state = Connected
			ch.lastErr = nil
			return
		}
		m.log.Errorf("Error sending to port %s: %v", ch.peer.Port(), err)
		ch.conn.Close()
		ch.conn = nil
	}

	// Bounded recovery, one attempt by default: a fresh connection is
	// assigned only if the dial and the retried write both succeed.
	var lastErr error
	for attempt := 1; attempt <= m.recoveryPolicy.Attempts; attempt++ {
		conn, err := net.DialTimeout("tcp", ch.peer.Addr, m.dialTimeout)
		if err == nil {
			if _, err = conn.Write(payload); err == nil {
				ch.conn = conn
				ch.state = Connected
				ch.lastErr = nil
				m.log.Infof("Reconnected to port %s and sent message", ch.peer.Port())
				return
			}
			conn.Close()
		}
		lastErr = err
		if attempt < m.recoveryPolicy.Attempts {
			time.Sleep(m.recoveryPolicy.Backoff)
		}
	}
	ch.state = Degraded
	ch.lastErr = lastErr
	m.log.Errorf("Failed to reconnect to port %s: %v", ch.peer.Port(), lastErr)
}

// State reports a peer channel's state and its last error, for
// inspection and tests.
func (m *Manager) State(peerID string) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[peerID]
	if !ok {
		return Disconnected, fmt.Errorf("unknown peer %q", peerID)
	}
	return ch.state, ch.lastErr
}

// acceptLoop accepts inbound connections until the node stops. The
// bounded accept deadline keeps shutdown latency under the poll
// timeout.
func (m *Manager) acceptLoop() {
	defer m.wg.Done()
	for m.running.Load() {
		m.listener.SetDeadline(time.Now().Add(m.pollTimeout))
		conn, err := m.listener.Accept()
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if m.running.Load() {
				m.log.Errorf("Error accepting connection: %v", err)
			}
			continue
		}

		m.acceptedMu.Lock()
		m.accepted[conn] = struct{}{}
		m.acceptedMu.Unlock()

		m.wg.Add(1)
		go m.handle(conn)
	}
}

// handle reads messages from one accepted connection until it closes or
// the node stops. The handler is persistent: a peer reusing one
// connection for many messages loses none of them.
func (m *Manager) handle(conn net.Conn) {
	defer m.wg.Done()
	defer func() {
		conn.Close()
		m.acceptedMu.Lock()
		delete(m.accepted, conn)
		m.acceptedMu.Unlock()
	}()

	buf := make([]byte, wire.BufferSize)
	for m.running.Load() {
		conn.SetReadDeadline(time.Now().Add(m.pollTimeout))
		n, err := conn.Read(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				return
			}
			if m.running.Load() {
				m.log.Errorf("Error handling client: %v", err)
			}
			return
		}
		if n == 0 {
			continue
		}

		v, err := wire.Decode(buf[:n])
		if err != nil {
			// Malformed payloads are dropped; the connection stays up.
			m.log.Errorf("Dropping malformed message: %v", err)
			continue
		}
		m.sink.Enqueue(v)
	}
}

// Close tears down every socket the manager owns: outbound channel
// connections, the listener, and accepted connections still open. It
// blocks until the accept loop and all handlers have exited. Callers
// flip the running flag first so loops exit quietly.
func (m *Manager) Close() {
	m.mu.Lock()
	for _, ch := range m.channels {
		if ch.conn != nil {
			ch.conn.Close()
			ch.conn = nil
			ch.state = Disconnected
		}
	}
	m.mu.Unlock()

	if m.listener != nil {
		m.listener.Close()
	}

	m.acceptedMu.Lock()
	for conn := range m.accepted {
		conn.Close()
	}
	m.acceptedMu.Unlock()

	m.wg.Wait()
}
