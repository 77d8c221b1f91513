package sched_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/Dicklesworthstone/pipeline_viewer/pkg/sched"
)

func TestAfterRuns(t *testing.T) {
	s := sched.New()
	defer s.StopAll()

	done := make(chan struct{})
	s.After(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("After callback never ran")
	}
}

func TestStopCancelsJob(t *testing.T) {
	s := sched.New()
	defer s.StopAll()

	var ran atomic.Bool
	h := s.After(50*time.Millisecond, func() { ran.Store(true) })
	s.Stop(h)

	time.Sleep(120 * time.Millisecond)
	if ran.Load() {
		t.Error("stopped job still ran")
	}
}

func TestEveryTicks(t *testing.T) {
	s := sched.New()
	defer s.StopAll()

	var ticks atomic.Int32
	s.Every(10*time.Millisecond, func() { ticks.Add(1) })

	time.Sleep(100 * time.Millisecond)
	if ticks.Load() < 2 {
		t.Errorf("only %d ticks observed", ticks.Load())
	}
}

func TestStopAllPreventsNewJobs(t *testing.T) {
	s := sched.New()
	var ran atomic.Bool
	s.After(30*time.Millisecond, func() { ran.Store(true) })
	s.StopAll()

	s.After(5*time.Millisecond, func() { ran.Store(true) })
	time.Sleep(80 * time.Millisecond)
	if ran.Load() {
		t.Error("job ran after StopAll")
	}
}

func TestDebouncerCoalesces(t *testing.T) {
	d := sched.NewDebouncer(30 * time.Millisecond)
	defer d.Cancel()

	var runs atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { runs.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := runs.Load(); got != 1 {
		t.Errorf("callback ran %d times, want 1", got)
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := sched.NewDebouncer(20 * time.Millisecond)

	var runs atomic.Int32
	d.Trigger(func() { runs.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	if runs.Load() != 0 {
		t.Errorf("cancelled callback still ran")
	}
}
