package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"
)

// Kind classifies a logged event.
type Kind int

const (
	Internal Kind = iota
	Send
	Receive
)

// String returns the event kind as it appears in log lines.
func (k Kind) String() string {
	switch k {
	case Internal:
		return "INTERNAL"
	case Send:
		return "SEND"
	case Receive:
		return "RECEIVE"
	default:
		return "UNKNOWN"
	}
}

// BroadcastTarget is the Target value of a SEND event addressed to all
// peers.
const BroadcastTarget = "ALL"

// Record is one parsed event line.
type Record struct {
	Time     time.Time
	Kind     Kind
	Clock    uint64
	QueueLen int    // RECEIVE only
	Target   string // SEND only; BroadcastTarget for broadcasts
}

var (
	lineRe      = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2},\d{3}) - (.*)$`)
	internalRe  = regexp.MustCompile(`^INTERNAL event, logical clock: (\d+)$`)
	sendRe      = regexp.MustCompile(`^SEND event to port (\S+), logical clock: (\d+)$`)
	broadcastRe = regexp.MustCompile(`^SEND event to ALL machines, logical clock: (\d+)$`)
	receiveRe   = regexp.MustCompile(`^RECEIVE event, queue length: (\d+), logical clock: (\d+)$`)
)

// ParseLine parses one log line. The second return is false for lines
// that are not event records (diagnostics, lifecycle messages).
func ParseLine(line string) (Record, bool) {
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		return Record{}, false
	}
	ts, err := time.ParseInLocation(timeLayout, m[1], time.Local)
	if err != nil {
		return Record{}, false
	}
	msg := m[2]

	if im := internalRe.FindStringSubmatch(msg); im != nil {
		return Record{Time: ts, Kind: Internal, Clock: mustUint(im[1])}, true
	}
	if sm := sendRe.FindStringSubmatch(msg); sm != nil {
		return Record{Time: ts, Kind: Send, Clock: mustUint(sm[2]), Target: sm[1]}, true
	}
	if bm := broadcastRe.FindStringSubmatch(msg); bm != nil {
		return Record{Time: ts, Kind: Send, Clock: mustUint(bm[1]), Target: BroadcastTarget}, true
	}
	if rm := receiveRe.FindStringSubmatch(msg); rm != nil {
		ql, _ := strconv.Atoi(rm[1])
		return Record{Time: ts, Kind: Receive, Clock: mustUint(rm[2]), QueueLen: ql}, true
	}
	return Record{}, false
}

// ParseFile reads a node's log and returns its event records in file
// order, skipping diagnostic lines.
func ParseFile(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if rec, ok := ParseLine(scanner.Text()); ok {
			records = append(records, rec)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}
	return records, nil
}

func mustUint(s string) uint64 {
	v, _ := strconv.ParseUint(s, 10, 64)
	return v
}
