package channel

import "time"

// RetryPolicy bounds connection-establishment retries: up to Attempts
// dials with a fixed Backoff between them.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration
}

// DefaultConnectPolicy is the startup policy: five attempts, one second
// apart, to ride out peers that have not bound their listeners yet.
var DefaultConnectPolicy = RetryPolicy{Attempts: 5, Backoff: time.Second}

// SendRecoveryPolicy bounds recovery after a failed send: a single
// fresh dial, no backoff. Further failures surface on the next send
// rather than being retried in the background.
var SendRecoveryPolicy = RetryPolicy{Attempts: 1}
