// Package queue provides the inbound message queue between connection
// handlers and the event loop. Arrival order is preserved per
// connection; there is no ordering across connections from different
// peers, which is exactly the property the simulation studies.
package queue
