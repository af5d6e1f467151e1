package capture

import "time"

// Clock abstracts timer scheduling so the debounce and grace delays are
// testable without sleeping.
type Clock interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

// SystemClock schedules on real wall-clock timers.
func SystemClock() Clock { return realClock{} }
