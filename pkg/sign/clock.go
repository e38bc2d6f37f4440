package sign

import "time"

// Clock supplies wall-clock seconds for freshness checks.
// The wall clock is not assumed monotonic; a backward jump only causes
// fresh messages to be rejected until the clock realigns.
type Clock interface {
	// Now returns seconds since the epoch.
	Now() int64
}

// SystemClock reads the system wall clock.
// SystemClock is safe for concurrent use and usable as a zero value.
type SystemClock struct{}

// Now returns the current time in seconds since the epoch.
func (SystemClock) Now() int64 { return time.Now().Unix() }

// FixedClock always returns the same instant. For tests.
type FixedClock int64

// Now returns the fixed instant.
func (c FixedClock) Now() int64 { return int64(c) }

// Compile-time interface satisfaction checks.
var (
	_ Clock = SystemClock{}
	_ Clock = FixedClock(0)
)
