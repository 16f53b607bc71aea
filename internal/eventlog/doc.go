// Package eventlog writes the per-node event log and parses it back for
// analysis. Every event the engine produces becomes one line of the form
//
//	2026-08-23 10:15:42,093 - INTERNAL event, logical clock: 17
//
// The format carries no level marker; diagnostic lines share it with
// event lines and the parser simply skips lines it does not recognize.
// Offline analysis tooling is the only consumer, so the format is the
// contract and changes to it are breaking.
package eventlog
