package loop

import "time"

// TimeProvider supplies the current time for frame deltas.
type TimeProvider interface {
	Now() time.Time
}

// SystemTime reads the monotonic wall clock.
type SystemTime struct{}

// Now returns time.Now().
func (SystemTime) Now() time.Time { return time.Now() }
