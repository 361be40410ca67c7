package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze capture timestamps via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used for capture timestamps. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Clock returns the active time source.
func Clock() clockwork.Clock {
	return clock
}

// CaptureTime returns the current instant truncated to the snapshot key granularity.
func CaptureTime() time.Time {
	return clock.Now().UTC().Truncate(time.Minute)
}
