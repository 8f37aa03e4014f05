package reactive

import "sync"

// Scheduler runs queued notifications one at a time, in enqueue order.
// The zero value is ready to use.
type Scheduler struct {
	mu       sync.Mutex
	queue    []func()
	draining bool
}

// NewScheduler returns an empty scheduler.
func NewScheduler() *Scheduler { return &Scheduler{} }

// Enqueue appends fn without running it. Safe to call while holding
// caller-side locks; pair it with Flush once those are released.
func (s *Scheduler) Enqueue(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// Flush drains the queue on the calling goroutine. If another goroutine (or
// an outer frame of this one) is already draining, Flush returns immediately
// and the active drainer picks the work up.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	for len(s.queue) > 0 {
		fn := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()
		s.run(fn)
		s.mu.Lock()
	}
	s.queue = nil
	s.draining = false
	s.mu.Unlock()
}

// run shields the drain loop from a panicking subscriber.
func (s *Scheduler) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.draining = false
			s.mu.Unlock()
			panic(r)
		}
	}()
	fn()
}

// Post enqueues fn and flushes.
func (s *Scheduler) Post(fn func()) {
	s.Enqueue(fn)
	s.Flush()
}

// NextTick schedules fn after every notification queued so far.
func (s *Scheduler) NextTick(fn func()) { s.Post(fn) }
