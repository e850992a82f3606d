package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/warpdl/deadline/pkg/chanx"
	"github.com/warpdl/deadline/pkg/logger"
)

// recorder collects callback invocations from the engine goroutine.
type recorder struct {
	mu    sync.Mutex
	names []string
	at    []time.Time
}

func (r *recorder) once(name string) OnceFunc {
	return func(ScheduleID) {
		r.mu.Lock()
		r.names = append(r.names, name)
		r.at = append(r.at, time.Now())
		r.mu.Unlock()
	}
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

func newTestScheduler(t *testing.T, opts ...Option) *Scheduler {
	t.Helper()
	s := New(context.Background(), opts...)
	t.Cleanup(func() {
		s.Close()
		select {
		case <-s.Done():
		case <-time.After(time.Second):
			t.Error("scheduler did not stop")
		}
	})
	return s
}

func TestScheduler_EarlierDeadlineFiresFirst(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	r := &recorder{}

	if _, err := s.OnceAfter(ctx, 50*time.Millisecond, r.once("a")); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	if _, err := s.OnceAfter(ctx, 10*time.Millisecond, r.once("b")); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	got := r.snapshot()
	if len(got) != 2 || got[0] != "b" || got[1] != "a" {
		t.Fatalf("execution order = %v, want [b a]", got)
	}
}

func TestScheduler_RepeatFiresAtInterval(t *testing.T) {
	s := newTestScheduler(t)
	var count atomic.Int32

	if _, err := s.Repeat(context.Background(), 20*time.Millisecond, func(ScheduleID) {
		count.Add(1)
	}); err != nil {
		t.Fatalf("Repeat: %v", err)
	}

	time.Sleep(65 * time.Millisecond)
	// Nominally 3 firings (20, 40, 60ms); allow jitter on loaded machines.
	if n := count.Load(); n < 2 || n > 3 {
		t.Fatalf("repeat fired %d times in 65ms, want about 3", n)
	}
}

func TestScheduler_RemoveBeforeFire(t *testing.T) {
	s := newTestScheduler(t)
	r := &recorder{}

	id, err := s.OnceAfter(context.Background(), 100*time.Millisecond, r.once("cb"))
	if err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	if err := s.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	time.Sleep(150 * time.Millisecond)
	if got := r.snapshot(); len(got) != 0 {
		t.Fatalf("removed task fired: %v", got)
	}
}

func TestScheduler_RemoveFabricatedID(t *testing.T) {
	s := newTestScheduler(t)
	r := &recorder{}

	if _, err := s.OnceAfter(context.Background(), 20*time.Millisecond, r.once("cb")); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	if err := s.Remove(ScheduleID(424242)); err != nil {
		t.Fatalf("Remove of unknown id: %v", err)
	}

	time.Sleep(80 * time.Millisecond)
	if got := r.snapshot(); len(got) != 1 {
		t.Fatalf("expected the real task to fire once, got %v", got)
	}
}

func TestScheduler_EqualDeadlinesFireInRegistrationOrder(t *testing.T) {
	s := newTestScheduler(t)
	ctx := context.Background()
	r := &recorder{}
	at := time.Now().Add(30 * time.Millisecond)

	names := []string{"first", "second", "third", "fourth"}
	var prev ScheduleID
	for _, n := range names {
		id, err := s.OnceAt(ctx, at, r.once(n))
		if err != nil {
			t.Fatalf("OnceAt: %v", err)
		}
		if id <= prev {
			t.Fatalf("id %d not greater than %d", id, prev)
		}
		prev = id
	}

	time.Sleep(100 * time.Millisecond)
	got := r.snapshot()
	if len(got) != len(names) {
		t.Fatalf("fired %v, want %v", got, names)
	}
	for i := range names {
		if got[i] != names[i] {
			t.Fatalf("fired %v, want %v", got, names)
		}
	}
}

func TestScheduler_FiresNoEarlierThanDeadline(t *testing.T) {
	s := newTestScheduler(t)
	r := &recorder{}
	deadline := time.Now().Add(25 * time.Millisecond)
	if _, err := s.OnceAt(context.Background(), deadline, r.once("x")); err != nil {
		t.Fatalf("OnceAt: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.at) != 1 {
		t.Fatalf("fired %d times, want 1", len(r.at))
	}
	if r.at[0].Before(deadline) {
		t.Fatalf("fired at %v, before deadline %v", r.at[0], deadline)
	}
}

func TestScheduler_PastDeadlineFiresImmediately(t *testing.T) {
	s := newTestScheduler(t)
	done := make(chan struct{})
	if _, err := s.OnceAfter(context.Background(), -time.Second, func(ScheduleID) { close(done) }); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("past deadline did not fire on the next iteration")
	}
}

func TestScheduler_RepeatSkipsMissedFirings(t *testing.T) {
	s := newTestScheduler(t)
	var mu sync.Mutex
	var starts []time.Time

	_, err := s.Repeat(context.Background(), 10*time.Millisecond, func(ScheduleID) {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(30 * time.Millisecond) // much slower than the interval
	})
	if err != nil {
		t.Fatalf("Repeat: %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	s.Close()
	<-s.Done()

	mu.Lock()
	defer mu.Unlock()
	if len(starts) < 2 {
		t.Fatalf("repeat fired %d times, want at least 2", len(starts))
	}
	// No catch-up bursts: consecutive starts are separated by at least the
	// callback duration plus the interval.
	for i := 1; i < len(starts); i++ {
		if gap := starts[i].Sub(starts[i-1]); gap < 40*time.Millisecond {
			t.Fatalf("firings %d and %d only %v apart; missed periods were replayed", i-1, i, gap)
		}
	}
}

func TestScheduler_PanicDoesNotStopLoop(t *testing.T) {
	log := logger.NewMockLogger()
	s := newTestScheduler(t, WithLogger(log))
	ctx := context.Background()
	done := make(chan struct{})

	if _, err := s.OnceAfter(ctx, 5*time.Millisecond, func(ScheduleID) { panic("boom") }); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	if _, err := s.OnceAfter(ctx, 20*time.Millisecond, func(ScheduleID) { close(done) }); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task after a panicking callback never ran")
	}
	if !log.Contains("panicked") {
		t.Fatalf("panic was not logged: %v", log.ErrorCalls())
	}
}

func TestScheduler_CloseStopsEngine(t *testing.T) {
	log := logger.NewMockLogger()
	s := New(context.Background(), WithLogger(log))
	fired := make(chan struct{}, 1)

	if _, err := s.OnceAfter(context.Background(), 50*time.Millisecond, func(ScheduleID) { fired <- struct{}{} }); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	s.Close()
	s.Close()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("engine did not exit after Close")
	}

	_, err := s.OnceAfter(context.Background(), time.Millisecond, nil)
	if !errors.Is(err, ErrChannel) || !errors.Is(err, chanx.ErrClosed) {
		t.Fatalf("OnceAfter after Close = %v, want ScheduleError wrapping ErrClosed", err)
	}
	var se *ScheduleError
	if !errors.As(err, &se) || se.Op != "once_after" {
		t.Fatalf("error = %#v, want *ScheduleError{Op: once_after}", err)
	}
	if err := s.Remove(1); !errors.Is(err, chanx.ErrClosed) {
		t.Fatalf("Remove after Close = %v, want ErrClosed", err)
	}

	select {
	case <-fired:
		t.Fatal("pending task ran after shutdown")
	case <-time.After(100 * time.Millisecond):
	}
	if !log.Contains("1 pending task(s) discarded") {
		t.Fatalf("shutdown not logged: %v", log.InfoCalls())
	}
}

func TestScheduler_ContextCancelStopsEngine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx)
	cancel()

	select {
	case <-s.Done():
	case <-time.After(time.Second):
		t.Fatal("engine did not exit after context cancel")
	}
}

func TestScheduler_AddContextCancelled(t *testing.T) {
	// An engine that is never started leaves the reply pending forever.
	s := New(context.Background(), WithSpawn(func(func()) {}))
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Repeat(ctx, time.Second, nil)
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, ErrChannel) {
		t.Fatalf("Repeat = %v, want ScheduleError wrapping DeadlineExceeded", err)
	}
}

func TestScheduler_Cron(t *testing.T) {
	s := newTestScheduler(t)
	if _, err := s.Cron(context.Background(), "bogus", nil); err == nil {
		t.Fatal("Cron accepted an invalid expression")
	}
	id, err := s.Cron(context.Background(), "0 0 * * *", nil)
	if err != nil {
		t.Fatalf("Cron: %v", err)
	}
	if id == 0 {
		t.Fatal("Cron returned id 0")
	}
	if err := s.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
}

func TestScheduler_AddWithoutFutureDeadline(t *testing.T) {
	s := newTestScheduler(t)
	spec := ScheduleSpec{kind: KindCron, cronExpr: "not a cron", repeat: func(ScheduleID) {}}
	id, err := s.Add(context.Background(), spec)
	if !errors.Is(err, ErrNotQueued) {
		t.Fatalf("Add error = %v, want ErrNotQueued", err)
	}
	if errors.Is(err, ErrChannel) {
		t.Error("an unqueued spec must not look like a channel failure")
	}
	if id != 0 {
		t.Errorf("id = %d, want 0", id)
	}
}

func TestScheduler_ConcurrentCallers(t *testing.T) {
	s := newTestScheduler(t)
	const callers, perCaller = 10, 50

	var mu sync.Mutex
	seen := make(map[ScheduleID]bool)
	var wg sync.WaitGroup
	for c := 0; c < callers; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perCaller; i++ {
				id, err := s.OnceAfter(context.Background(), time.Hour, nil)
				if err != nil {
					t.Errorf("OnceAfter: %v", err)
					return
				}
				mu.Lock()
				if seen[id] {
					t.Errorf("id %d issued twice", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != callers*perCaller {
		t.Fatalf("got %d distinct ids, want %d", len(seen), callers*perCaller)
	}
}

func TestScheduler_IdleWaitWakesUp(t *testing.T) {
	// With a tiny idle wait the loop cycles through empty drains; commands
	// must still be served normally.
	s := newTestScheduler(t, WithIdleWait(time.Millisecond))
	time.Sleep(10 * time.Millisecond)
	done := make(chan struct{})
	if _, err := s.OnceAfter(context.Background(), time.Millisecond, func(ScheduleID) { close(done) }); err != nil {
		t.Fatalf("OnceAfter: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
}
