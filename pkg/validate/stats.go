package validate

import "sync/atomic"

// Stats holds the validator's message counters. Counters are atomic; no
// lock is taken on the hot path beyond the replay cache.
type Stats struct {
	received  atomic.Uint64
	validated atomic.Uint64
	rejected  atomic.Uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Received  uint64 `json:"messages_received"`
	Validated uint64 `json:"messages_validated"`
	Rejected  uint64 `json:"messages_rejected"`
}

// Stats returns a snapshot of the validator counters.
func (v *Validator) Stats() Snapshot {
	return Snapshot{
		Received:  v.stats.received.Load(),
		Validated: v.stats.validated.Load(),
		Rejected:  v.stats.rejected.Load(),
	}
}
