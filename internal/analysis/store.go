package analysis

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"clocksim/internal/eventlog"
)

//go:embed schema.sql
var schemaSQL string

// Store persists parsed events into SQLite so runs can be queried and
// compared without re-parsing logs.
type Store struct {
	db *sql.DB
}

// OpenStore creates or opens the database at path and applies the
// schema. SQLite allows one writer, so the pool is capped at a single
// connection.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// InsertEvents stores one node's records under the given run, replacing
// anything previously stored for that node and run. The whole insert is
// one transaction.
func (s *Store) InsertEvents(runID string, nodeID int, recs []eventlog.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM events WHERE run_id = ? AND node_id = ?`, runID, nodeID); err != nil {
		return fmt.Errorf("failed to clear stale events: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO events
		(run_id, node_id, seq, ts, kind, clock, queue_len, target)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		var queueLen any
		if r.Kind == eventlog.Receive {
			queueLen = r.QueueLen
		}
		var target any
		if r.Target != "" {
			target = r.Target
		}
		if _, err := stmt.Exec(runID, nodeID, i, r.Time.Format("2006-01-02 15:04:05.000"),
			r.Kind.String(), int64(r.Clock), queueLen, target); err != nil {
			return fmt.Errorf("failed to insert event %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// InsertRun stores every node log referenced by the run statistics'
// source records.
func (s *Store) InsertRun(runID string, logs map[int][]eventlog.Record) error {
	for nodeID, recs := range logs {
		if err := s.InsertEvents(runID, nodeID, recs); err != nil {
			return err
		}
	}
	return nil
}

// FinalClocks returns the highest stored clock per node for a run.
func (s *Store) FinalClocks(runID string) (map[int]uint64, error) {
	rows, err := s.db.Query(`SELECT node_id, MAX(clock) FROM events WHERE run_id = ? GROUP BY node_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query final clocks: %w", err)
	}
	defer rows.Close()

	out := make(map[int]uint64)
	for rows.Next() {
		var nodeID int
		var clock int64
		if err := rows.Scan(&nodeID, &clock); err != nil {
			return nil, fmt.Errorf("failed to scan final clock: %w", err)
		}
		out[nodeID] = uint64(clock)
	}
	return out, rows.Err()
}

// EventCounts returns how many events of each kind a run produced.
func (s *Store) EventCounts(runID string) (map[string]int, error) {
	rows, err := s.db.Query(`SELECT kind, COUNT(*) FROM events WHERE run_id = ? GROUP BY kind`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		out[kind] = count
	}
	return out, rows.Err()
}
