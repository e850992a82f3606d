package scheduler

import (
	"errors"
	"fmt"
)

// ErrChannel matches every ScheduleError with errors.Is. It signals that the
// engine could not be reached or never replied.
var ErrChannel = errors.New("scheduler channel error")

// ErrNotQueued is returned when the engine assigned an id but found no future
// deadline for the spec, e.g. a cron expression whose last tick just passed.
// The id is consumed and nothing will fire.
var ErrNotQueued = errors.New("schedule has no future deadline")

// ScheduleError is returned by the registering calls when the Add command
// could not be enqueued (engine stopped) or its reply never arrived.
type ScheduleError struct {
	// Op is the public operation that failed, e.g. "repeat".
	Op string
	// Err is chanx.ErrClosed, chanx.ErrCanceled or a context error.
	Err error
}

func (e *ScheduleError) Error() string {
	return fmt.Sprintf("scheduler: %s: %v", e.Op, e.Err)
}

func (e *ScheduleError) Unwrap() error { return e.Err }

// Is reports ErrChannel as a match so callers need not know the cause.
func (e *ScheduleError) Is(target error) bool { return target == ErrChannel }
