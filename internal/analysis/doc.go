// Package analysis consumes the event logs a run leaves behind. It
// computes per-node statistics (event mix, clock jumps, queue pressure)
// and the cross-node clock drift, renders a plain-text report, and can
// persist parsed events into a SQLite database for ad-hoc querying.
package analysis
