package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// timeLayout matches the historical analyzer's expectation of
// millisecond timestamps with a comma separator.
const timeLayout = "2006-01-02 15:04:05,000"

// Logger is the append-only event log for one node in one run. Writes
// are serialized with a mutex because connection handlers report errors
// concurrently with the event loop.
type Logger struct {
	mu     sync.Mutex
	file   *os.File
	w      *bufio.Writer
	closed bool

	now func() time.Time // stubbed in tests
}

// FilePath returns the log file path for a node in a run. The naming is
// deterministic so analysis tooling can locate logs from run and node
// identifiers alone.
func FilePath(dir, runID string, nodeID int) string {
	return filepath.Join(dir, fmt.Sprintf("experiment_%s_vm_%d.log", runID, nodeID))
}

// Open creates (or truncates) the log file for the given node, creating
// the directory if needed.
func Open(dir, runID string, nodeID int) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	path := FilePath(dir, runID, nodeID)
	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return &Logger{
		file: file,
		w:    bufio.NewWriter(file),
		now:  time.Now,
	}, nil
}

// Internal records an INTERNAL event and the clock value it produced.
func (l *Logger) Internal(clock uint64) {
	l.printf("INTERNAL event, logical clock: %d", clock)
}

// Send records a SEND event to a single peer, named by port.
func (l *Logger) Send(port string, clock uint64) {
	l.printf("SEND event to port %s, logical clock: %d", port, clock)
}

// Broadcast records a SEND event addressed to all peers.
func (l *Logger) Broadcast(clock uint64) {
	l.printf("SEND event to ALL machines, logical clock: %d", clock)
}

// Receive records a RECEIVE event with the queue length after the
// message was dequeued.
func (l *Logger) Receive(queueLen int, clock uint64) {
	l.printf("RECEIVE event, queue length: %d, logical clock: %d", queueLen, clock)
}

// Infof records a diagnostic line (connection lifecycle, warnings).
func (l *Logger) Infof(format string, args ...any) {
	l.printf(format, args...)
}

// Errorf records a failure line. Failures are contained within the
// node; the log stream is the only error reporting surface.
func (l *Logger) Errorf(format string, args ...any) {
	l.printf(format, args...)
}

func (l *Logger) printf(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	fmt.Fprintf(l.w, "%s - %s\n", l.now().Format(timeLayout), fmt.Sprintf(format, args...))
	// Flush per line so an interrupted run still leaves a usable log.
	l.w.Flush()
}

// Close flushes and closes the log file. Safe to call more than once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	if err := l.w.Flush(); err != nil {
		l.file.Close()
		return fmt.Errorf("failed to flush log: %w", err)
	}
	if err := l.file.Close(); err != nil {
		return fmt.Errorf("failed to close log: %w", err)
	}
	return nil
}
