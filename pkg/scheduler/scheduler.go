package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/warpdl/deadline/pkg/chanx"
	"github.com/warpdl/deadline/pkg/logger"
	"github.com/warpdl/deadline/pkg/timer"
)

// Scheduler is the client handle of a running engine. All methods are safe for
// concurrent use; calls are multiplexed onto the engine goroutine through an
// unbounded command channel.
type Scheduler struct {
	cmds *chanx.Unbounded[command]
	done chan struct{}
	log  logger.Logger
}

// New creates a Scheduler and starts its engine goroutine. The engine exits
// when Close is called or ctx is cancelled; pending tasks are then discarded.
func New(ctx context.Context, opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	s := &Scheduler{
		cmds: chanx.NewUnbounded[command](),
		done: make(chan struct{}),
		log:  o.log,
	}
	e := newEngine(o.log, o.idleWait)
	o.spawn(func() { s.run(e) })

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Close()
			case <-s.done:
			}
		}()
	}
	return s
}

// OnceAt runs cb once at or after t and returns the assigned id.
func (s *Scheduler) OnceAt(ctx context.Context, t time.Time, cb OnceFunc) (ScheduleID, error) {
	return s.add(ctx, "once_at", OnceAtSpec(t, cb))
}

// OnceAfter runs cb once after d and returns the assigned id.
func (s *Scheduler) OnceAfter(ctx context.Context, d time.Duration, cb OnceFunc) (ScheduleID, error) {
	return s.add(ctx, "once_after", OnceAfterSpec(d, cb))
}

// Repeat runs cb every interval, the first time one interval from now. The
// next deadline is measured from the end of each run.
func (s *Scheduler) Repeat(ctx context.Context, interval time.Duration, cb RepeatFunc) (ScheduleID, error) {
	return s.add(ctx, "repeat", RepeatSpec(interval, cb))
}

// Cron runs cb on every tick of the cron expression expr. If the expression
// has no tick left when the engine registers it, the id is consumed, nothing
// is queued and the returned error wraps ErrNotQueued.
func (s *Scheduler) Cron(ctx context.Context, expr string, cb RepeatFunc) (ScheduleID, error) {
	spec, err := CronSpec(expr, cb)
	if err != nil {
		return 0, err
	}
	return s.add(ctx, "cron", spec)
}

// Add registers a prebuilt spec.
func (s *Scheduler) Add(ctx context.Context, spec ScheduleSpec) (ScheduleID, error) {
	return s.add(ctx, "add", spec)
}

// Remove asks the engine to cancel id and returns without waiting. A nil
// error only means the request was enqueued: unknown or already finished ids
// are ignored, and a task already running in the current pass still
// completes. Returns chanx.ErrClosed once the engine has shut down.
func (s *Scheduler) Remove(id ScheduleID) error {
	return s.cmds.Send(command{kind: cmdRemove, id: id})
}

// Close stops the engine after it has processed the commands already
// enqueued. Tasks still pending are discarded. Safe to call multiple times.
func (s *Scheduler) Close() {
	s.cmds.Close()
}

// Done is closed when the engine goroutine has exited.
func (s *Scheduler) Done() <-chan struct{} {
	return s.done
}

func (s *Scheduler) add(ctx context.Context, op string, spec ScheduleSpec) (ScheduleID, error) {
	reply := chanx.NewOneshot[addReply]()
	if err := s.cmds.Send(command{kind: cmdAdd, spec: spec, reply: reply}); err != nil {
		return 0, &ScheduleError{Op: op, Err: err}
	}
	res, err := reply.Recv(ctx)
	if err != nil {
		return 0, &ScheduleError{Op: op, Err: err}
	}
	if res.err != nil {
		return 0, fmt.Errorf("scheduler: %s: %w", op, res.err)
	}
	return res.id, nil
}

// run is the engine loop. Each iteration computes the wait target, then
// either applies one command or drains all due tasks.
func (s *Scheduler) run(e *engine) {
	defer close(s.done)

	cmds := s.cmds.Out()
	for {
		sleep := timer.SleepUntil(e.waitTarget(time.Now()))

		select {
		case cmd, ok := <-cmds:
			sleep.Stop()
			if !ok {
				n := e.discard()
				s.log.Info("Scheduler stopped, %d pending task(s) discarded", n)
				return
			}
			e.handle(cmd)
		case <-sleep.C:
			e.drain(time.Now())
		}
	}
}
