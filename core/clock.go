package core

import "time"

// Clock schedules delayed callbacks. Callbacks run on their own goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending callback.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// stopTimer cancels t if set. Stopping an unset timer is a no-op.
func stopTimer(t Timer) {
	if t != nil {
		t.Stop()
	}
}
