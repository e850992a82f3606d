// Package timer provides a suspend-until-instant primitive on top of
// time.Timer.
package timer

import "time"

// Sleep fires once on C no earlier than its deadline.
type Sleep struct {
	C        <-chan time.Time
	deadline time.Time
	t        *time.Timer
}

// SleepUntil returns a Sleep for deadline. Deadlines in the past fire
// immediately.
func SleepUntil(deadline time.Time) *Sleep {
	d := time.Until(deadline)
	if d < 0 {
		d = 0
	}
	t := time.NewTimer(d)
	return &Sleep{C: t.C, deadline: deadline, t: t}
}

// Deadline returns the instant the Sleep was armed for.
func (s *Sleep) Deadline() time.Time {
	return s.deadline
}

// Stop disarms the Sleep. It reports whether the call stopped the timer
// before it fired.
func (s *Sleep) Stop() bool {
	return s.t.Stop()
}
