package scheduler

import (
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"github.com/warpdl/deadline/pkg/chanx"
)

// ScheduleID identifies one registered task. IDs are assigned by the engine,
// start at 1, increase strictly and are never reused.
type ScheduleID uint64

// OnceFunc is invoked a single time with the task's id.
type OnceFunc func(id ScheduleID)

// RepeatFunc is invoked on every firing of a repeating task. The same func
// value is reused, so state captured by the closure persists across firings.
type RepeatFunc func(id ScheduleID)

// Kind tells which variant a ScheduleSpec holds.
type Kind int

const (
	KindOnceAt Kind = iota
	KindRepeat
	KindCron
)

func (k Kind) String() string {
	switch k {
	case KindOnceAt:
		return "once"
	case KindRepeat:
		return "repeat"
	case KindCron:
		return "cron"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ScheduleSpec describes what to run and when. Build one with OnceAtSpec,
// OnceAfterSpec, RepeatSpec or CronSpec.
type ScheduleSpec struct {
	kind     Kind
	deadline time.Time
	interval time.Duration
	cronExpr string
	once     OnceFunc
	repeat   RepeatFunc
}

// OnceAtSpec fires cb once at or after deadline.
func OnceAtSpec(deadline time.Time, cb OnceFunc) ScheduleSpec {
	return ScheduleSpec{kind: KindOnceAt, deadline: deadline, once: cb}
}

// OnceAfterSpec fires cb once after d, measured from the call.
// Zero or negative durations make the task due immediately.
func OnceAfterSpec(d time.Duration, cb OnceFunc) ScheduleSpec {
	return OnceAtSpec(time.Now().Add(d), cb)
}

// RepeatSpec fires cb every interval. The first firing happens one interval
// after the engine registers the task.
func RepeatSpec(interval time.Duration, cb RepeatFunc) ScheduleSpec {
	return ScheduleSpec{kind: KindRepeat, interval: interval, repeat: cb}
}

// CronSpec fires cb on every tick of a 5-field (or 6-field, with seconds) cron
// expression. It fails if the expression is invalid or never fires.
func CronSpec(expr string, cb RepeatFunc) (ScheduleSpec, error) {
	if !gronx.IsValid(expr) {
		return ScheduleSpec{}, fmt.Errorf("invalid cron expression %q", expr)
	}
	if _, err := gronx.NextTickAfter(expr, time.Now(), false); err != nil {
		return ScheduleSpec{}, fmt.Errorf("cron expression %q has no next tick: %w", expr, err)
	}
	return ScheduleSpec{kind: KindCron, cronExpr: expr, repeat: cb}, nil
}

// Kind returns the variant of the spec.
func (s ScheduleSpec) Kind() Kind { return s.kind }

// Interval returns the repeat interval (zero for other kinds).
func (s ScheduleSpec) Interval() time.Duration { return s.interval }

// CronExpr returns the cron expression (empty for other kinds).
func (s ScheduleSpec) CronExpr() string { return s.cronExpr }

// When returns the instant the spec should next fire if registered now:
// the stored deadline for one-shot specs, now+interval for repeating ones and
// the next cron tick for cron specs. It returns the zero Time when a cron
// expression has no further tick.
func (s ScheduleSpec) When() time.Time {
	t, _ := s.nextAfter(time.Now())
	return t
}

// nextAfter computes the next deadline relative to ref.
func (s ScheduleSpec) nextAfter(ref time.Time) (time.Time, error) {
	switch s.kind {
	case KindRepeat:
		return ref.Add(s.interval), nil
	case KindCron:
		return gronx.NextTickAfter(s.cronExpr, ref, false)
	default:
		return s.deadline, nil
	}
}

type commandKind int

const (
	cmdAdd commandKind = iota
	cmdRemove
)

// command is the only message the engine goroutine consumes.
type command struct {
	kind  commandKind
	spec  ScheduleSpec
	reply *chanx.Oneshot[addReply]
	id    ScheduleID
}

// addReply carries the assigned id and, when the task could not be queued,
// the reason.
type addReply struct {
	id  ScheduleID
	err error
}
