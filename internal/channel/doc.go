// Package channel manages a node's network endpoints: one outbound TCP
// connection per peer for sending, and an accept loop that turns inbound
// connections into decoded clock values on the inbound queue.
//
// Connection failures never propagate beyond the owning node. Startup
// connects are retried a bounded number of times; a send over a broken
// connection gets exactly one reconnect-and-resend cycle, after which
// the channel stays degraded until the next send repeats the cycle.
package channel
