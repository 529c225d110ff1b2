package processor

import "time"

// Clock abstracts wall-clock reads so passes can be tested with
// deterministic timestamps. Production code uses SystemClock; tests
// inject testutil.FixedClock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the system wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time {
	return time.Now()
}
