// Package sched provides delayed and periodic execution with cancellable
// handles, so shutdown can stop every outstanding timer in one call.
package sched

import (
	"sync"
	"time"
)

// Handle identifies one scheduled job.
type Handle struct {
	stop func()
}

// Scheduler owns every timer it hands out. StopAll cancels the lot, which is
// how shutdown prevents cache writes after teardown.
type Scheduler struct {
	mu      sync.Mutex
	jobs    map[*Handle]struct{}
	stopped bool
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{jobs: make(map[*Handle]struct{})}
}

// After runs fn once after d. The returned handle can cancel it.
func (s *Scheduler) After(d time.Duration, fn func()) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return &Handle{stop: func() {}}
	}

	h := &Handle{}
	t := time.AfterFunc(d, func() {
		s.remove(h)
		fn()
	})
	h.stop = func() { t.Stop() }
	s.jobs[h] = struct{}{}
	return h
}

// Every runs fn on a fixed interval until the handle is stopped.
func (s *Scheduler) Every(d time.Duration, fn func()) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return &Handle{stop: func() {}}
	}

	ticker := time.NewTicker(d)
	done := make(chan struct{})
	h := &Handle{}
	h.stop = func() {
		ticker.Stop()
		close(done)
	}
	s.jobs[h] = struct{}{}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return h
}

// Stop cancels one job. Stopping an already-finished job is a no-op.
func (s *Scheduler) Stop(h *Handle) {
	s.mu.Lock()
	_, ok := s.jobs[h]
	delete(s.jobs, h)
	s.mu.Unlock()
	if ok {
		h.stop()
	}
}

// StopAll cancels every outstanding job and refuses new ones.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	s.stopped = true
	jobs := make([]*Handle, 0, len(s.jobs))
	for h := range s.jobs {
		jobs = append(jobs, h)
	}
	s.jobs = make(map[*Handle]struct{})
	s.mu.Unlock()

	for _, h := range jobs {
		h.stop()
	}
}

func (s *Scheduler) remove(h *Handle) {
	s.mu.Lock()
	delete(s.jobs, h)
	s.mu.Unlock()
}
