package clock

// Lamport is a Lamport logical clock. The value is monotonically
// non-decreasing and only ever mutated by the event loop that owns the
// node, so no synchronization is needed.
type Lamport struct {
	time uint64
}

// New creates a clock starting at zero.
func New() *Lamport {
	return &Lamport{}
}

// Time returns the current clock value without advancing it.
func (c *Lamport) Time() uint64 {
	return c.time
}

// Tick advances the clock for a local event (INTERNAL or SEND) and
// returns the new value.
func (c *Lamport) Tick() uint64 {
	c.time++
	return c.time
}

// Witness applies the receive rule for a clock value carried by an
// incoming message: the clock becomes max(local, received) + 1. The
// returned value strictly exceeds both inputs.
func (c *Lamport) Witness(received uint64) uint64 {
	if received > c.time {
		c.time = received
	}
	c.time++
	return c.time
}
