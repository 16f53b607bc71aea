package channel

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"clocksim/internal/config"
	"clocksim/internal/eventlog"
	"clocksim/internal/queue"
	"clocksim/internal/wire"
)

func testLogger(t *testing.T) *eventlog.Logger {
	t.Helper()
	l, err := eventlog.Open(t.TempDir(), "test", 0)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func testManager(t *testing.T, peers []config.Peer, sink Sink) (*Manager, *atomic.Bool) {
	t.Helper()
	running := &atomic.Bool{}
	running.Store(true)
	if sink == nil {
		sink = queue.New()
	}
	m := NewManager(Options{
		Peers:         peers,
		Sink:          sink,
		Log:           testLogger(t),
		Running:       running,
		ConnectPolicy: RetryPolicy{Attempts: 2, Backoff: 20 * time.Millisecond},
		PollTimeout:   100 * time.Millisecond,
		DialTimeout:   200 * time.Millisecond,
	})
	t.Cleanup(func() {
		running.Store(false)
		m.Close()
	})
	return m, running
}

// freeAddr reserves an address that is guaranteed closed at return.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestConnectAndSend_Delivery(t *testing.T) {
	inbound := queue.New()
	receiver, _ := testManager(t, nil, inbound)
	require.NoError(t, receiver.Start("127.0.0.1:0"))

	peer := config.Peer{ID: "b", Addr: receiver.Addr().String()}
	sender, _ := testManager(t, []config.Peer{peer}, nil)
	require.NoError(t, sender.Start("127.0.0.1:0"))
	sender.Connect()

	state, lastErr := sender.State("b")
	require.Equal(t, Connected, state)
	require.NoError(t, lastErr)

	sender.Send(wire.Encode(42), "b")

	require.Eventually(t, func() bool {
		v, ok := inbound.Dequeue()
		return ok && v == 42
	}, 3*time.Second, 10*time.Millisecond)
}

func TestConnect_ExhaustionLeavesDisconnected(t *testing.T) {
	peer := config.Peer{ID: "gone", Addr: freeAddr(t)}
	m, _ := testManager(t, []config.Peer{peer}, nil)
	require.NoError(t, m.Start("127.0.0.1:0"))

	start := time.Now()
	m.Connect()
	// Two attempts with one backoff between them.
	require.Less(t, time.Since(start), 2*time.Second)

	state, _ := m.State("gone")
	require.Equal(t, Disconnected, state)
}

func TestSend_DegradedWhilePeerDown_RecoversWhenBack(t *testing.T) {
	// A real listener that we can kill and resurrect.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	var served atomic.Pointer[net.Conn]
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			served.Store(&conn)
		}
	}()

	peer := config.Peer{ID: "flaky", Addr: addr}
	m, _ := testManager(t, []config.Peer{peer}, nil)
	require.NoError(t, m.Start("127.0.0.1:0"))
	m.Connect()

	state, _ := m.State("flaky")
	require.Equal(t, Connected, state)

	// Kill the peer completely: accepted socket and listener.
	require.Eventually(t, func() bool { return served.Load() != nil }, 2*time.Second, 10*time.Millisecond)
	(*served.Load()).Close()
	require.NoError(t, ln.Close())

	// Each send performs at most one recovery cycle. With nothing
	// listening the dial fails and the channel degrades; TCP buffering
	// can let the first couple of writes succeed locally, so poll.
	require.Eventually(t, func() bool {
		m.Send(wire.Encode(1), "flaky")
		state, lastErr := m.State("flaky")
		return state == Degraded && lastErr != nil
	}, 5*time.Second, 50*time.Millisecond)

	// Resurrect the listener on the same address; the next send's
	// one-shot recovery should reconnect and deliver.
	ln2, err := net.Listen("tcp", addr)
	require.NoError(t, err)
	defer ln2.Close()

	received := make(chan []byte, 1)
	go func() {
		conn, err := ln2.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, wire.BufferSize)
		n, err := conn.Read(buf)
		if err == nil {
			received <- buf[:n]
		}
	}()

	m.Send(wire.Encode(99), "flaky")
	state, lastErr := m.State("flaky")
	require.Equal(t, Connected, state)
	require.NoError(t, lastErr)

	select {
	case payload := <-received:
		v, err := wire.Decode(payload)
		require.NoError(t, err)
		require.Equal(t, uint64(99), v)
	case <-time.After(3 * time.Second):
		t.Fatal("resent payload never arrived")
	}
}

func TestHandler_DropsMalformedKeepsConnection(t *testing.T) {
	inbound := queue.New()
	m, _ := testManager(t, nil, inbound)
	require.NoError(t, m.Start("127.0.0.1:0"))

	conn, err := net.Dial("tcp", m.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("garbage"))
	require.NoError(t, err)
	// Give the handler a moment to read and drop the bad payload
	// before sending a good one on the same connection.
	time.Sleep(300 * time.Millisecond)
	_, err = conn.Write(wire.Encode(7))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, ok := inbound.Dequeue()
		return ok && v == 7
	}, 3*time.Second, 10*time.Millisecond)
}

func TestHandler_PersistsAcrossMessages(t *testing.T) {
	inbound := queue.New()
	m, _ := testManager(t, nil, inbound)
	require.NoError(t, m.Start("127.0.0.1:0"))

	conn, err := net.Dial("tcp", m.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// Spaced-out sends on one reused connection must all arrive in
	// order: the handler reads until the connection closes.
	want := []uint64{3, 1, 4, 1, 5}
	for _, v := range want {
		_, err := conn.Write(wire.Encode(v))
		require.NoError(t, err)
		time.Sleep(150 * time.Millisecond)
	}

	var got []uint64
	require.Eventually(t, func() bool {
		for {
			v, ok := inbound.Dequeue()
			if !ok {
				break
			}
			got = append(got, v)
		}
		return len(got) == len(want)
	}, 5*time.Second, 20*time.Millisecond)
	require.Equal(t, want, got)
}

func TestClose_UnblocksPromptly(t *testing.T) {
	running := &atomic.Bool{}
	running.Store(true)
	m := NewManager(Options{
		Sink:        queue.New(),
		Log:         testLogger(t),
		Running:     running,
		PollTimeout: 100 * time.Millisecond,
	})
	require.NoError(t, m.Start("127.0.0.1:0"))

	// Park a handler on an idle connection.
	conn, err := net.Dial("tcp", m.Addr().String())
	require.NoError(t, err)
	defer conn.Close()
	time.Sleep(200 * time.Millisecond)

	running.Store(false)
	done := make(chan struct{})
	go func() {
		m.Close()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not unblock the accept loop and handlers")
	}
}
