// internal/clock/clock.go
package clock

import "time"

// Timer is a cancellable, single-fire delayed task.
type Timer interface {
	// Stop prevents the task from running. It returns false if the task already ran or was stopped.
	Stop() bool
}

// Clock is the time source used by rooms and sessions. Production code uses Real;
// tests use Fake so guess windows and intermissions can be advanced deterministically.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Real is backed by the time package.
type Real struct{}

// New returns the wall clock.
func New() Clock {
	return Real{}
}

func (Real) Now() time.Time {
	return time.Now()
}

func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
