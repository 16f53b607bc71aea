// Package clock provides the Lamport logical clock that orders a node's
// events. The clock is incremented on every local event and bumped above
// any witnessed remote value on message receipt, which is the only
// mechanism imposing causal order across nodes.
package clock
