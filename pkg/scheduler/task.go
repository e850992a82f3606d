package scheduler

import (
	"runtime/debug"
	"time"

	"github.com/warpdl/deadline/pkg/logger"
)

// scheduledTask is a heap entry: the assigned id, the cached deadline and the
// spec that owns the callback.
type scheduledTask struct {
	id       ScheduleID
	deadline time.Time
	spec     ScheduleSpec
}

func newScheduledTask(id ScheduleID, spec ScheduleSpec, now time.Time) (*scheduledTask, error) {
	deadline, err := spec.nextAfter(now)
	if err != nil {
		return nil, err
	}
	return &scheduledTask{id: id, deadline: deadline, spec: spec}, nil
}

// before is the heap order: earlier deadline first, then lower id.
func (t *scheduledTask) before(o *scheduledTask) bool {
	if t.deadline.Equal(o.deadline) {
		return t.id < o.id
	}
	return t.deadline.Before(o.deadline)
}

// execute runs the callback and returns the successor for repeating kinds,
// or nil when the task is finished. The successor's deadline is computed from
// the instant the callback returned.
func (t *scheduledTask) execute(log logger.Logger) *scheduledTask {
	switch t.spec.kind {
	case KindOnceAt:
		t.invoke(log, t.spec.once)
		return nil
	case KindRepeat, KindCron:
		t.invoke(log, t.spec.repeat)
		next, err := t.spec.nextAfter(time.Now())
		if err != nil {
			log.Warning("schedule %d: no next cron tick for %q, dropping: %v", t.id, t.spec.cronExpr, err)
			return nil
		}
		return &scheduledTask{id: t.id, deadline: next, spec: t.spec}
	default:
		log.Error("schedule %d: unknown kind %s", t.id, t.spec.kind)
		return nil
	}
}

// invoke calls fn, containing a panic so unrelated tasks keep running.
func (t *scheduledTask) invoke(log logger.Logger, fn func(ScheduleID)) {
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.Error("schedule %d: callback panicked: %v\n%s", t.id, r, debug.Stack())
		}
	}()
	fn(t.id)
}
