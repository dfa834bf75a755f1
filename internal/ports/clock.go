package ports

import "time"

type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Timer is a cancellable deferred or periodic action.
type Timer interface {
	// Stop prevents future firings and reports whether the timer was still live.
	Stop() bool
}

// Scheduler runs one-shot and periodic callbacks. Callbacks may run on any
// goroutine and must not assume they hold the caller's locks.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) Timer
	Every(interval time.Duration, fn func()) Timer
}

type DelayProvider interface {
	// NextDelay draws from the provider's default range.
	NextDelay() time.Duration
	// NextDelayAtLeast draws from [minimum, minimum+span].
	NextDelayAtLeast(minimum time.Duration) time.Duration
}
