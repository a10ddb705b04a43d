package alert

import "time"

// Timer is a cancelable delayed task.
type Timer interface {
	// Stop cancels the timer; it reports false when the callback already
	// started. The engine pairs Stop with a generation check so a
	// callback that raced the cancellation becomes a no-op.
	Stop() bool
}

// Clock abstracts time so debounce behavior is testable without real
// waiting.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// NewRealClock returns the wall clock used in production.
func NewRealClock() Clock { return realClock{} }
