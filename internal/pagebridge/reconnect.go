// Purpose: Owns reconnect.go, the outbound WebSocket client's exponential
// backoff (spec §4.2: "reconnects with exponential backoff starting at 1s
// and capped at 60s, and reports aggregate reconnect attempts rather than
// per-attempt log lines").
package pagebridge

import (
	"math/rand"
	"time"
)

const (
	backoffStart = time.Second
	backoffCap   = 60 * time.Second
	// jitterFraction adds bounded jitter on top of each backoff delay to
	// avoid thundering-herd reconnects (not specified, not contradicted).
	jitterFraction = 0.2
)

// Backoff computes successive reconnect delays, doubling each attempt and
// capping at backoffCap, with ±20% jitter.
type Backoff struct {
	attempt int
}

// Next returns the delay before the next reconnect attempt and increments
// the internal attempt counter.
func (b *Backoff) Next() time.Duration {
	delay := backoffStart << b.attempt
	if delay > backoffCap || delay <= 0 {
		delay = backoffCap
	}
	b.attempt++

	jitter := 1 + (rand.Float64()*2-1)*jitterFraction
	return time.Duration(float64(delay) * jitter)
}

// Reset zeroes the attempt counter after a successful connection.
func (b *Backoff) Reset() { b.attempt = 0 }

// Attempts reports the number of reconnect attempts made since the last
// Reset, for the aggregate-attempt log line.
func (b *Backoff) Attempts() int { return b.attempt }
