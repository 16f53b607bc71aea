package node

import (
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"clocksim/internal/channel"
	"clocksim/internal/clock"
	"clocksim/internal/config"
	"clocksim/internal/eventlog"
	"clocksim/internal/queue"
	"clocksim/internal/wire"
)

// Node is one simulated machine. It owns its logical clock, its inbound
// queue, its channels to peers and its event log. The clock is touched
// only by the event-loop goroutine.
type Node struct {
	cfg     config.Config
	peerIDs []string

	clock    *clock.Lamport
	queue    *queue.Queue
	channels *channel.Manager
	log      *eventlog.Logger
	rng      *rand.Rand

	running  atomic.Bool
	started  atomic.Bool
	launched bool
	loopDone chan struct{}
	stopOnce sync.Once

	// Overrides for the channel manager's timings, settable before
	// Start. Zero values keep production defaults; tests tighten them.
	ConnectPolicy channel.RetryPolicy
	PollTimeout   time.Duration
	DialTimeout   time.Duration
}

// New validates the configuration and builds a node ready to start.
func New(cfg config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid node configuration: %w", err)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	peerIDs := make([]string, len(cfg.Peers))
	for i, p := range cfg.Peers {
		peerIDs[i] = p.ID
	}

	return &Node{
		cfg:      cfg,
		peerIDs:  peerIDs,
		clock:    clock.New(),
		queue:    queue.New(),
		rng:      rand.New(rand.NewSource(seed)),
		loopDone: make(chan struct{}),
	}, nil
}

// Start opens the event log, binds the listener and launches the accept
// loop plus the event loop. It does not block: startup connection
// establishment happens on the event-loop goroutine, before the first
// tick, so retries there never stall the caller.
func (n *Node) Start() error {
	if !n.started.CompareAndSwap(false, true) {
		return fmt.Errorf("node %d already started", n.cfg.NodeID)
	}
	n.running.Store(true)

	log, err := eventlog.Open(n.cfg.LogDir, n.cfg.RunID, n.cfg.NodeID)
	if err != nil {
		n.running.Store(false)
		return fmt.Errorf("failed to open event log: %w", err)
	}
	n.log = log

	n.channels = channel.NewManager(channel.Options{
		Peers:         n.cfg.Peers,
		Sink:          n.queue,
		Log:           log,
		Running:       &n.running,
		ConnectPolicy: n.ConnectPolicy,
		PollTimeout:   n.PollTimeout,
		DialTimeout:   n.DialTimeout,
	})
	if err := n.channels.Start(n.cfg.ListenAddr); err != nil {
		n.running.Store(false)
		log.Close()
		return err
	}

	n.launched = true
	go n.run()
	return nil
}

// Addr returns the address the node is listening on, valid after Start.
func (n *Node) Addr() string {
	if n.channels == nil || n.channels.Addr() == nil {
		return ""
	}
	return n.channels.Addr().String()
}

// run is the event loop. A panic anywhere in it is caught here, logged
// with full context and terminates this node's loop only; other nodes
// are unaffected.
func (n *Node) run() {
	defer close(n.loopDone)
	defer func() {
		if r := recover(); r != nil {
			n.log.Errorf("Fatal error in event loop of machine %d: %v\n%s",
				n.cfg.NodeID, r, debug.Stack())
			n.running.Store(false)
		}
	}()

	// Startup connection establishment, once, before ticking begins.
	n.channels.Connect()

	n.log.Infof("Machine %d starting with clock rate %d", n.cfg.NodeID, n.cfg.TickRate)

	budget := time.Second / time.Duration(n.cfg.TickRate)
	for n.running.Load() {
		start := time.Now()
		n.tick()
		elapsed := time.Since(start)
		if elapsed < budget {
			time.Sleep(budget - elapsed)
		} else if elapsed > budget {
			// No catch-up and no dropped ticks; time simply drifts.
			n.log.Infof("Tick overran its %v budget by %v", budget, elapsed-budget)
		}
	}
}

// tick executes one cycle. Draining a queued message always takes
// priority over synthesizing an event, even at communication
// probability 1.
func (n *Node) tick() {
	if received, ok := n.queue.Dequeue(); ok {
		c := n.clock.Witness(received)
		n.log.Receive(n.queue.Len(), c)
		return
	}

	if len(n.peerIDs) > 0 && n.rng.Float64() < n.cfg.CommProbability {
		c := n.clock.Tick()
		payload := wire.Encode(c)
		// Three equally likely sub-behaviors; two of them are "send to
		// one uniformly random peer", the third broadcasts.
		switch n.rng.Intn(3) {
		case 0, 1:
			peer := n.cfg.Peers[n.rng.Intn(len(n.cfg.Peers))]
			n.channels.Send(payload, peer.ID)
			n.log.Send(peer.Port(), c)
		default:
			n.channels.Send(payload, n.peerIDs...)
			n.log.Broadcast(c)
		}
		return
	}

	c := n.clock.Tick()
	n.log.Internal(c)
}

// Stop shuts the node down: the loops observe the cleared running flag
// within their poll timeouts, every socket is closed, and the final
// clock value is logged before the log itself closes. Idempotent, and
// blocks until teardown is complete.
func (n *Node) Stop() {
	n.stopOnce.Do(func() {
		n.running.Store(false)
		if !n.launched {
			return
		}
		<-n.loopDone
		n.channels.Close()
		n.log.Infof("Machine %d stopped. Final logical clock: %d", n.cfg.NodeID, n.clock.Time())
		n.log.Close()
	})
}

// FinalClock returns the logical clock value. Only meaningful after
// Stop has returned; the loop owns the clock while running.
func (n *Node) FinalClock() uint64 {
	return n.clock.Time()
}
