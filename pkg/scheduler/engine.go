package scheduler

import (
	"fmt"
	"time"

	"github.com/warpdl/deadline/pkg/logger"
)

// engine is the state owned by the loop goroutine. Nothing here is touched
// from any other goroutine, so it needs no locking.
type engine struct {
	log      logger.Logger
	idleWait time.Duration

	nextID    ScheduleID
	tasks     taskHeap
	pending   map[ScheduleID]struct{}
	cancelled map[ScheduleID]struct{}
}

func newEngine(log logger.Logger, idleWait time.Duration) *engine {
	return &engine{
		log:       log,
		idleWait:  idleWait,
		nextID:    1,
		pending:   make(map[ScheduleID]struct{}),
		cancelled: make(map[ScheduleID]struct{}),
	}
}

// peek returns the earliest live task, discarding cancelled entries on the
// way. Returns nil when nothing is pending.
func (e *engine) peek() *scheduledTask {
	for {
		t := heapPeek(&e.tasks)
		if t == nil {
			return nil
		}
		if _, ok := e.cancelled[t.id]; !ok {
			return t
		}
		heapPop(&e.tasks)
		delete(e.cancelled, t.id)
		delete(e.pending, t.id)
		e.log.Debug("schedule %d discarded", t.id)
	}
}

// waitTarget is the instant the loop should wake up at if no command arrives.
func (e *engine) waitTarget(now time.Time) time.Time {
	if t := e.peek(); t != nil {
		return t.deadline
	}
	return now.Add(e.idleWait)
}

func (e *engine) handle(cmd command) {
	switch cmd.kind {
	case cmdAdd:
		e.add(cmd)
	case cmdRemove:
		e.remove(cmd.id)
	}
}

func (e *engine) add(cmd command) {
	id := e.nextID
	e.nextID++

	res := addReply{id: id}
	t, err := newScheduledTask(id, cmd.spec, time.Now())
	if err != nil {
		// Only a cron expression that stopped having ticks gets here.
		e.log.Warning("schedule %d: not queued: %v", id, err)
		res.err = fmt.Errorf("schedule %d: %w: %v", id, ErrNotQueued, err)
	} else {
		heapPush(&e.tasks, t)
		e.pending[id] = struct{}{}
		e.log.Debug("schedule %d registered (%s), due %s", id, cmd.spec.kind, t.deadline.Format(time.RFC3339Nano))
	}

	if cmd.reply == nil {
		return
	}
	if err := cmd.reply.Send(res); err != nil {
		e.log.Warning("schedule %d: reply not delivered: %v", id, err)
	}
}

// remove records a tombstone. Ids that are not pending (unknown, finished or
// already removed) are ignored so the set cannot grow without bound.
func (e *engine) remove(id ScheduleID) {
	if _, ok := e.pending[id]; !ok {
		return
	}
	e.cancelled[id] = struct{}{}
	e.log.Debug("schedule %d marked for removal", id)
}

// drain runs every live task due at or before now. Successors of repeating
// tasks are pushed after the pass, so each task fires at most once per pass.
// Returns the number of callbacks invoked.
func (e *engine) drain(now time.Time) int {
	var successors []*scheduledTask
	fired := 0
	for {
		t := e.peek()
		if t == nil || t.deadline.After(now) {
			break
		}
		heapPop(&e.tasks)
		fired++
		if next := t.execute(e.log); next != nil {
			successors = append(successors, next)
		} else {
			delete(e.pending, t.id)
		}
	}
	for _, t := range successors {
		heapPush(&e.tasks, t)
	}
	return fired
}

// discard drops every remaining task at shutdown and returns how many were
// still pending.
func (e *engine) discard() int {
	n := len(e.pending)
	e.tasks = nil
	e.pending = make(map[ScheduleID]struct{})
	e.cancelled = make(map[ScheduleID]struct{})
	return n
}
