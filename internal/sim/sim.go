package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"clocksim/internal/channel"
	"clocksim/internal/config"
	"clocksim/internal/eventlog"
	"clocksim/internal/node"
)

// Options configures the experiment runner.
type Options struct {
	LogDir   string        // default "logs"
	BasePort int           // first node port, default 5001
	Nodes    int           // node count when the experiment has no rates, default 3
	Duration time.Duration // default 60s, overridden by Experiment.Duration
	RunID    string        // default: experiment name, else a fresh UUID
	Logger   *slog.Logger  // default slog.Default()

	// Seed fixes the tick-rate draw and the nodes' event draws, for
	// reproducible runs. Zero means time-based.
	Seed int64

	// Engine timing overrides, passed through to each node. Zero
	// values keep production defaults; tests tighten them.
	ConnectPolicy channel.RetryPolicy
	PollTimeout   time.Duration
	DialTimeout   time.Duration
}

// Result summarizes a finished run.
type Result struct {
	RunID       string
	TickRates   []int
	FinalClocks []uint64
	LogFiles    []string
}

// Run executes one experiment: builds the topology, starts every node,
// waits out the duration (or the context), then stops everything. Node
// failures during the run are contained in the node logs; Run only
// fails on setup problems.
func Run(ctx context.Context, exp Experiment, opts Options) (*Result, error) {
	if err := exp.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logDir := opts.LogDir
	if logDir == "" {
		logDir = "logs"
	}
	basePort := opts.BasePort
	if basePort == 0 {
		basePort = 5001
	}
	duration := time.Duration(exp.Duration)
	if duration == 0 {
		duration = opts.Duration
	}
	if duration == 0 {
		duration = 60 * time.Second
	}
	runID := opts.RunID
	if runID == "" {
		runID = exp.Name
	}
	if runID == "" {
		runID = uuid.NewString()
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	count := len(exp.TickRates)
	if count == 0 {
		count = opts.Nodes
	}
	if count == 0 {
		count = 3
	}
	rates := make([]int, count)
	for i := range rates {
		if i < len(exp.TickRates) {
			rates[i] = exp.TickRates[i]
		} else {
			rates[i] = 1 + rng.Intn(6)
		}
	}
	prob := exp.CommProbability
	if prob == 0 {
		prob = DefaultCommProbability
	}

	// Stale logs from a previous run with the same identifier would
	// confuse the analyzer.
	if err := CleanLogs(logDir, runID); err != nil {
		return nil, err
	}

	addrs := make([]string, count)
	for i := range addrs {
		addrs[i] = fmt.Sprintf("127.0.0.1:%d", basePort+i)
	}

	nodes := make([]*node.Node, count)
	for i := 0; i < count; i++ {
		peers := make([]config.Peer, 0, count-1)
		for j, addr := range addrs {
			if j == i {
				continue
			}
			p := config.Peer{Addr: addr}
			p.ID = p.Port()
			peers = append(peers, p)
		}

		cfg := config.Config{
			NodeID:          i,
			TickRate:        rates[i],
			ListenAddr:      addrs[i],
			Peers:           peers,
			CommProbability: prob,
			RunID:           runID,
			LogDir:          logDir,
			Seed:            rng.Int63(),
		}
		n, err := node.New(cfg)
		if err != nil {
			return nil, fmt.Errorf("experiment %s: %w", exp.Name, err)
		}
		n.ConnectPolicy = opts.ConnectPolicy
		n.PollTimeout = opts.PollTimeout
		n.DialTimeout = opts.DialTimeout
		nodes[i] = n
	}

	logger.Info("starting experiment",
		"experiment", exp.Name, "run", runID,
		"nodes", count, "rates", rates, "probability", prob, "duration", duration)

	started := 0
	for i, n := range nodes {
		if err := n.Start(); err != nil {
			for _, m := range nodes[:started] {
				m.Stop()
			}
			return nil, fmt.Errorf("failed to start node %d: %w", i, err)
		}
		started++
	}

	select {
	case <-time.After(duration):
	case <-ctx.Done():
		logger.Info("run interrupted", "run", runID, "reason", ctx.Err())
	}

	result := &Result{
		RunID:       runID,
		TickRates:   rates,
		FinalClocks: make([]uint64, count),
		LogFiles:    make([]string, count),
	}
	for i, n := range nodes {
		n.Stop()
		result.FinalClocks[i] = n.FinalClock()
		result.LogFiles[i] = eventlog.FilePath(logDir, runID, i)
	}

	logger.Info("experiment complete", "run", runID, "final_clocks", result.FinalClocks)
	return result, nil
}

// CleanLogs removes log files for the given run, or every experiment
// log under dir when runID is empty.
func CleanLogs(dir, runID string) error {
	pattern := filepath.Join(dir, "experiment_*_vm_*.log")
	if runID != "" {
		pattern = filepath.Join(dir, fmt.Sprintf("experiment_%s_vm_*.log", runID))
	}
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("bad log pattern: %w", err)
	}
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove old log %s: %w", path, err)
		}
	}
	return nil
}
