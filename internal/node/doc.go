// Package node implements the per-node engine: the rate-paced event
// loop that advances a Lamport clock and decides, tick by tick, between
// draining a received message and synthesizing a send or internal
// event. Nodes share nothing; they interact only through the network
// channels owned by their channel managers.
package node
