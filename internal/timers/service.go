// Package timers keeps track of the labelled timers the daemon registers on
// its scheduler and fans their firings out to sinks such as the journal and
// the RPC notifier.
package timers

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/warpdl/deadline/common"
	"github.com/warpdl/deadline/pkg/chanx"
	"github.com/warpdl/deadline/pkg/logger"
	"github.com/warpdl/deadline/pkg/scheduler"
)

// Timer sources reported in common.TimerInfo.Source.
const (
	SourceRPC    = "rpc"
	SourceConfig = "config"
)

var ErrNotFound = errors.New("timer not found")

// Sink receives every firing, in firing order, on the service's worker
// goroutine.
type Sink func(common.Firing)

type firing struct {
	common.Firing
	once bool
}

// Service registers timers on a scheduler and remembers them by id.
type Service struct {
	sched *scheduler.Scheduler
	log   logger.Logger
	sinks []Sink

	mu     sync.Mutex
	timers map[scheduler.ScheduleID]common.TimerInfo
	// config-declared timers, by declaration key
	declared map[string]declaredTimer

	fired *chanx.Unbounded[firing]
	done  chan struct{}
}

// New creates a Service on top of sched and starts its firing worker.
func New(sched *scheduler.Scheduler, log logger.Logger, sinks ...Sink) *Service {
	if log == nil {
		log = logger.NewNopLogger()
	}
	s := &Service{
		sched:    sched,
		log:      log,
		sinks:    sinks,
		timers:   make(map[scheduler.ScheduleID]common.TimerInfo),
		declared: make(map[string]declaredTimer),
		fired:    chanx.NewUnbounded[firing](),
		done:     make(chan struct{}),
	}
	go s.work()
	return s
}

// OnceAfter registers a one-shot timer firing after d.
func (s *Service) OnceAfter(ctx context.Context, d time.Duration, label, source string) (common.TimerInfo, error) {
	return s.register(ctx, scheduler.OnceAfterSpec(d, s.onceCallback(label)), label, "after "+d.String(), source)
}

// OnceAt registers a one-shot timer firing at t.
func (s *Service) OnceAt(ctx context.Context, t time.Time, label, source string) (common.TimerInfo, error) {
	return s.register(ctx, scheduler.OnceAtSpec(t, s.onceCallback(label)), label, "at "+t.Format(time.RFC3339), source)
}

// Repeat registers a timer firing every interval.
func (s *Service) Repeat(ctx context.Context, interval time.Duration, label, source string) (common.TimerInfo, error) {
	return s.register(ctx, scheduler.RepeatSpec(interval, s.repeatCallback(label)), label, "every "+interval.String(), source)
}

// Cron registers a timer firing on every tick of expr.
func (s *Service) Cron(ctx context.Context, expr, label, source string) (common.TimerInfo, error) {
	spec, err := scheduler.CronSpec(expr, s.repeatCallback(label))
	if err != nil {
		return common.TimerInfo{}, err
	}
	return s.register(ctx, spec, label, "cron "+expr, source)
}

// register holds mu across the scheduler round trip so the worker cannot
// observe a firing before the timer is in the registry. The wait for the id
// ignores ctx cancellation: once the command is enqueued the engine always
// replies, and a dropped reply would leave a firing timer nobody can list or
// remove.
func (s *Service) register(ctx context.Context, spec scheduler.ScheduleSpec, label, desc, source string) (common.TimerInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.sched.Add(context.WithoutCancel(ctx), spec)
	if err != nil {
		return common.TimerInfo{}, err
	}
	info := common.TimerInfo{
		ID:     uint64(id),
		Label:  label,
		Kind:   spec.Kind().String(),
		Spec:   desc,
		Source: source,
	}
	s.timers[id] = info
	s.log.Info("timer %d registered: %s (%s)", id, desc, labelOrDash(label))
	return info, nil
}

func (s *Service) onceCallback(label string) scheduler.OnceFunc {
	return func(id scheduler.ScheduleID) { s.enqueue(id, label, true) }
}

func (s *Service) repeatCallback(label string) scheduler.RepeatFunc {
	return func(id scheduler.ScheduleID) { s.enqueue(id, label, false) }
}

// enqueue runs on the scheduler goroutine and must not block.
func (s *Service) enqueue(id scheduler.ScheduleID, label string, once bool) {
	f := firing{
		Firing: common.Firing{ID: uint64(id), Label: label, FiredAt: time.Now()},
		once:   once,
	}
	if err := s.fired.Send(f); err != nil {
		s.log.Warning("timer %d fired after shutdown, dropped", id)
	}
}

func (s *Service) work() {
	defer close(s.done)
	for f := range s.fired.Out() {
		if f.once {
			s.mu.Lock()
			delete(s.timers, scheduler.ScheduleID(f.ID))
			s.mu.Unlock()
		}
		s.log.Debug("timer %d fired (%s)", f.ID, labelOrDash(f.Label))
		for _, sink := range s.sinks {
			sink(f.Firing)
		}
	}
}

// Remove cancels a registered timer.
func (s *Service) Remove(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(scheduler.ScheduleID(id))
}

func (s *Service) removeLocked(id scheduler.ScheduleID) error {
	if _, ok := s.timers[id]; !ok {
		return ErrNotFound
	}
	if err := s.sched.Remove(id); err != nil {
		return err
	}
	delete(s.timers, id)
	s.log.Info("timer %d removed", id)
	return nil
}

// Get returns the timer with the given id.
func (s *Service) Get(id uint64) (common.TimerInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.timers[scheduler.ScheduleID(id)]
	return info, ok
}

// List returns the registered timers ordered by id.
func (s *Service) List() []common.TimerInfo {
	s.mu.Lock()
	out := make([]common.TimerInfo, 0, len(s.timers))
	for _, info := range s.timers {
		out = append(out, info)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Close stops accepting firings and waits until the worker has passed every
// queued firing to the sinks. It does not close the scheduler.
func (s *Service) Close() {
	s.fired.Close()
	<-s.done
}

func labelOrDash(label string) string {
	if label == "" {
		return "-"
	}
	return label
}
