package reactive

import "sync"

// Source is anything a watcher can attach to. fn runs after every change;
// stop detaches it.
type Source interface {
	Watch(fn func()) (stop func())
}

// Readable is a value that can be read without subscribing.
type Readable[T any] interface {
	Get() T
}

// Ref is a mutable observable value.
type Ref[T any] struct {
	s *Scheduler

	mu   sync.RWMutex
	v    T
	seq  uint64
	subs []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(newV, oldV T)
}

var (
	_ Source        = (*Ref[int])(nil)
	_ Readable[int] = (*Ref[int])(nil)
)

// NewRef creates a ref whose notifications are delivered through s.
// A nil scheduler gets a private one.
func NewRef[T any](s *Scheduler, v T) *Ref[T] {
	if s == nil {
		s = NewScheduler()
	}
	return &Ref[T]{s: s, v: v}
}

func (r *Ref[T]) Get() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.v
}

// Set replaces the value and notifies subscribers with (new, old).
// Every Set notifies; deciding whether a change matters is up to the
// subscriber.
func (r *Ref[T]) Set(v T) {
	r.mu.Lock()
	old := r.v
	r.v = v
	for _, fn := range r.snapshot() {
		fn := fn
		r.s.Enqueue(func() { fn(v, old) })
	}
	r.mu.Unlock()
	r.s.Flush()
}

// Update applies fn to the current value and stores the result.
func (r *Ref[T]) Update(fn func(T) T) {
	r.Set(fn(r.Get()))
}

// Subscribe registers fn for future changes.
func (r *Ref[T]) Subscribe(fn func(newV, oldV T)) (stop func()) {
	r.mu.Lock()
	r.seq++
	id := r.seq
	r.subs = append(r.subs, subscriber[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			for i, sub := range r.subs {
				if sub.id == id {
					r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
					break
				}
			}
			r.mu.Unlock()
		})
	}
}

func (r *Ref[T]) Watch(fn func()) (stop func()) {
	return r.Subscribe(func(T, T) { fn() })
}

// Scheduler returns the scheduler notifications are delivered through.
func (r *Ref[T]) Scheduler() *Scheduler { return r.s }

func (r *Ref[T]) snapshot() []func(T, T) {
	if len(r.subs) == 0 {
		return nil
	}
	out := make([]func(T, T), len(r.subs))
	for i, sub := range r.subs {
		out[i] = sub.fn
	}
	return out
}

// Static wraps a constant so it can be used where a Readable is expected.
type Static[T any] struct{ V T }

func (s Static[T]) Get() T { return s.V }

// SourceFunc adapts a plain function to Source.
type SourceFunc func(fn func()) (stop func())

func (f SourceFunc) Watch(fn func()) (stop func()) { return f(fn) }
