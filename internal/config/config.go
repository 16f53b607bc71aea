package config

import (
	"fmt"
	"net"
	"strings"
)

// Peer represents another node in the topology. The set of peers is
// static for the lifetime of a run.
type Peer struct {
	ID   string
	Addr string
}

// Port returns the port portion of the peer address. Nodes in a run are
// conventionally told apart by port, and the event log names send
// targets by port.
func (p Peer) Port() string {
	_, port, err := net.SplitHostPort(p.Addr)
	if err != nil {
		return p.Addr
	}
	return port
}

// Config holds one node's fixed configuration, supplied by the
// orchestrator before start.
type Config struct {
	NodeID     int
	TickRate   int // ticks per second
	ListenAddr string
	Peers      []Peer

	// CommProbability is the per-tick probability, given no pending
	// inbound message, that the tick produces a SEND instead of an
	// INTERNAL event.
	CommProbability float64

	RunID  string
	LogDir string

	// Seed makes the node's event draws deterministic when non-zero.
	Seed int64
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.TickRate < 1 {
		return fmt.Errorf("tick rate must be a positive integer, got %d", c.TickRate)
	}
	if c.CommProbability < 0 || c.CommProbability > 1 {
		return fmt.Errorf("communication probability must be in [0,1], got %g", c.CommProbability)
	}
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if c.RunID == "" {
		return fmt.Errorf("run identifier cannot be empty")
	}
	return nil
}

// ParsePeers parses a comma-separated list of peers in the format
// "id1=addr1,id2=addr2". The "id=" prefix may be omitted, in which case
// the peer's port doubles as its identifier.
func ParsePeers(peersStr string) ([]Peer, error) {
	if peersStr == "" {
		return []Peer{}, nil
	}

	parts := strings.Split(peersStr, ",")
	peers := make([]Peer, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		var peer Peer
		if kv := strings.SplitN(part, "=", 2); len(kv) == 2 {
			id := strings.TrimSpace(kv[0])
			addr := strings.TrimSpace(kv[1])
			if id == "" || addr == "" {
				return nil, fmt.Errorf("peer ID and address cannot be empty: %s", part)
			}
			peer = Peer{ID: id, Addr: addr}
		} else {
			peer = Peer{Addr: part}
			peer.ID = peer.Port()
		}

		peers = append(peers, peer)
	}

	return peers, nil
}
