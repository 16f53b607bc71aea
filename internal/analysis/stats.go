package analysis

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"clocksim/internal/eventlog"
)

// NodeStats summarizes one node's event log.
type NodeStats struct {
	NodeID     int
	Events     int
	Internal   int
	Sends      int
	Receives   int
	FinalClock uint64

	// Clock jump between consecutive events. A jump above 1 means a
	// RECEIVE pulled the clock up toward a faster sender.
	MeanJump float64
	MaxJump  uint64

	// Inbound queue length observed at RECEIVE events. Sustained
	// growth here is the signature of a node ticking slower than its
	// peers send.
	MeanQueueLen float64
	MaxQueueLen  int

	Duration        time.Duration
	EventsPerSecond float64
}

// Compute derives statistics from one node's records, which must be in
// log order.
func Compute(nodeID int, recs []eventlog.Record) NodeStats {
	s := NodeStats{NodeID: nodeID, Events: len(recs)}
	if len(recs) == 0 {
		return s
	}

	var jumpSum uint64
	var queueSum int
	prev := uint64(0)
	for i, r := range recs {
		switch r.Kind {
		case eventlog.Internal:
			s.Internal++
		case eventlog.Send:
			s.Sends++
		case eventlog.Receive:
			s.Receives++
			queueSum += r.QueueLen
			if r.QueueLen > s.MaxQueueLen {
				s.MaxQueueLen = r.QueueLen
			}
		}

		jump := r.Clock - prev
		jumpSum += jump
		if i > 0 && jump > s.MaxJump {
			s.MaxJump = jump
		}
		prev = r.Clock
	}

	s.FinalClock = recs[len(recs)-1].Clock
	s.MeanJump = float64(jumpSum) / float64(len(recs))
	if s.Receives > 0 {
		s.MeanQueueLen = float64(queueSum) / float64(s.Receives)
	}

	s.Duration = recs[len(recs)-1].Time.Sub(recs[0].Time)
	if secs := s.Duration.Seconds(); secs > 0 {
		s.EventsPerSecond = float64(len(recs)) / secs
	}
	return s
}

// RunStats aggregates a whole run.
type RunStats struct {
	RunID string
	Nodes []NodeStats

	// ClockDrift is the spread between the largest and smallest final
	// clock across nodes. Frequent receives keep it small.
	ClockDrift uint64
}

// ComputeRun builds run statistics from per-node record sets.
func ComputeRun(runID string, logs map[int][]eventlog.Record) RunStats {
	rs := RunStats{RunID: runID}

	ids := make([]int, 0, len(logs))
	for id := range logs {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var minClock, maxClock uint64
	for i, id := range ids {
		ns := Compute(id, logs[id])
		rs.Nodes = append(rs.Nodes, ns)
		if i == 0 || ns.FinalClock < minClock {
			minClock = ns.FinalClock
		}
		if ns.FinalClock > maxClock {
			maxClock = ns.FinalClock
		}
	}
	if len(ids) > 0 {
		rs.ClockDrift = maxClock - minClock
	}
	return rs
}

var logNameRe = regexp.MustCompile(`^experiment_(.+)_vm_(\d+)\.log$`)

// LoadRunRecords locates and parses every node log of a run, keyed by
// node identifier.
func LoadRunRecords(dir, runID string) (map[int][]eventlog.Record, error) {
	pattern := filepath.Join(dir, fmt.Sprintf("experiment_%s_vm_*.log", runID))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("bad log pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no log files found for run %s in %s", runID, dir)
	}

	logs := make(map[int][]eventlog.Record, len(matches))
	for _, path := range matches {
		m := logNameRe.FindStringSubmatch(filepath.Base(path))
		if m == nil || m[1] != runID {
			continue
		}
		nodeID, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		recs, err := eventlog.ParseFile(path)
		if err != nil {
			return nil, err
		}
		logs[nodeID] = recs
	}
	return logs, nil
}

// LoadRun parses a run's logs and computes its statistics.
func LoadRun(dir, runID string) (RunStats, error) {
	logs, err := LoadRunRecords(dir, runID)
	if err != nil {
		return RunStats{}, err
	}
	return ComputeRun(runID, logs), nil
}
