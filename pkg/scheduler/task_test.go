package scheduler

import (
	"strings"
	"testing"
	"time"

	"github.com/warpdl/deadline/pkg/logger"
)

func TestSpecWhen(t *testing.T) {
	at := time.Now().Add(time.Hour)
	if got := OnceAtSpec(at, nil).When(); !got.Equal(at) {
		t.Errorf("OnceAt When = %v, want %v", got, at)
	}

	before := time.Now()
	got := OnceAfterSpec(time.Minute, nil).When()
	if got.Before(before.Add(time.Minute)) || got.After(time.Now().Add(time.Minute)) {
		t.Errorf("OnceAfter When = %v, want ~now+1m", got)
	}

	before = time.Now()
	got = RepeatSpec(time.Second, nil).When()
	if got.Before(before.Add(time.Second)) {
		t.Errorf("Repeat When = %v, want >= %v", got, before.Add(time.Second))
	}
}

func TestCronSpec(t *testing.T) {
	spec, err := CronSpec("*/5 * * * *", nil)
	if err != nil {
		t.Fatalf("CronSpec: %v", err)
	}
	if spec.Kind() != KindCron || spec.CronExpr() != "*/5 * * * *" {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	next := spec.When()
	if !next.After(time.Now()) {
		t.Errorf("When = %v, want a future tick", next)
	}
	if next.Minute()%5 != 0 || next.Second() != 0 {
		t.Errorf("When = %v, want a multiple of five minutes", next)
	}

	for _, bad := range []string{"", "not cron", "61 * * * *"} {
		if _, err := CronSpec(bad, nil); err == nil {
			t.Errorf("CronSpec(%q) should fail", bad)
		}
	}
}

func TestKindString(t *testing.T) {
	tests := map[Kind]string{KindOnceAt: "once", KindRepeat: "repeat", KindCron: "cron", Kind(9): "kind(9)"}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(k), got, want)
		}
	}
}

func TestExecuteOnce(t *testing.T) {
	var got ScheduleID
	task, err := newScheduledTask(7, OnceAtSpec(time.Now(), func(id ScheduleID) { got = id }), time.Now())
	if err != nil {
		t.Fatalf("newScheduledTask: %v", err)
	}
	if next := task.execute(logger.NewNopLogger()); next != nil {
		t.Fatal("one-shot task returned a successor")
	}
	if got != 7 {
		t.Fatalf("callback got id %d, want 7", got)
	}
}

func TestExecuteRepeatReschedulesFromCompletion(t *testing.T) {
	const interval = 10 * time.Millisecond
	calls := 0
	spec := RepeatSpec(interval, func(ScheduleID) {
		calls++
		time.Sleep(5 * time.Millisecond)
	})
	task, _ := newScheduledTask(3, spec, time.Now())

	next := task.execute(logger.NewNopLogger())
	completed := time.Now()
	if next == nil {
		t.Fatal("repeat task returned no successor")
	}
	if next.id != 3 {
		t.Fatalf("successor id = %d, want 3", next.id)
	}
	// Completion happened at least 5ms after the original deadline was
	// computed, and the successor is based on that completion.
	if next.deadline.Before(task.deadline.Add(5 * time.Millisecond)) {
		t.Fatalf("successor deadline %v does not account for callback duration", next.deadline)
	}
	if next.deadline.After(completed.Add(interval)) {
		t.Fatalf("successor deadline %v later than completion+interval %v", next.deadline, completed.Add(interval))
	}

	// State captured by the closure survives into the successor.
	next.execute(logger.NewNopLogger())
	if calls != 2 {
		t.Fatalf("calls = %d, want 2", calls)
	}
}

func TestExecuteContainsPanic(t *testing.T) {
	log := logger.NewMockLogger()

	once, _ := newScheduledTask(1, OnceAtSpec(time.Now(), func(ScheduleID) { panic("boom") }), time.Now())
	if next := once.execute(log); next != nil {
		t.Fatal("panicking one-shot returned a successor")
	}

	rep, _ := newScheduledTask(2, RepeatSpec(time.Second, func(ScheduleID) { panic("again") }), time.Now())
	if next := rep.execute(log); next == nil {
		t.Fatal("panicking repeat should still be rescheduled")
	}

	errs := log.ErrorCalls()
	if len(errs) != 2 {
		t.Fatalf("expected 2 error logs, got %d: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "schedule 1") || !strings.Contains(errs[0], "boom") {
		t.Errorf("unexpected log: %s", errs[0])
	}
}

func TestExecuteNilCallback(t *testing.T) {
	task, _ := newScheduledTask(1, OnceAtSpec(time.Now(), nil), time.Now())
	if next := task.execute(logger.NewNopLogger()); next != nil {
		t.Fatal("nil one-shot returned a successor")
	}
}
