package asyncdata

import (
	"sync"

	"github.com/unkn0wn-root/asyncdata/reactive"
)

// Status is the lifecycle position of an entry.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// State is a consistent snapshot of an entry's four fields.
type State struct {
	Data    any
	Pending bool
	Err     error
	Status  Status
}

// Entry is the reactive container for one key. Its identity is stable for the
// lifetime of the App: clears and refreshes mutate it in place, so observers
// keep receiving updates.
//
// All writes happen with the owning App's lock held; a write publishes one
// notification carrying the whole State, queued on the App scheduler.
type Entry struct {
	key   string
	sched *reactive.Scheduler

	mu   sync.RWMutex
	st   State
	seq  uint64
	subs []entrySub
}

type entrySub struct {
	id uint64
	fn func(State)
}

var _ reactive.Source = (*Entry)(nil)

func newEntry(key string, sched *reactive.Scheduler, st State) *Entry {
	return &Entry{key: key, sched: sched, st: st}
}

func (e *Entry) Key() string { return e.key }

func (e *Entry) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.st
}

// Subscribe registers fn for every subsequent change.
func (e *Entry) Subscribe(fn func(State)) (stop func()) {
	e.mu.Lock()
	e.seq++
	id := e.seq
	e.subs = append(e.subs, entrySub{id: id, fn: fn})
	e.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			for i, s := range e.subs {
				if s.id == id {
					e.subs = append(e.subs[:i:i], e.subs[i+1:]...)
					break
				}
			}
			e.mu.Unlock()
		})
	}
}

func (e *Entry) Watch(fn func()) (stop func()) {
	return e.Subscribe(func(State) { fn() })
}

// update mutates the state and enqueues one notification. The caller holds
// the App lock and flushes the scheduler after releasing it.
func (e *Entry) update(fn func(*State)) {
	e.mu.Lock()
	fn(&e.st)
	st := e.st
	subs := make([]func(State), len(e.subs))
	for i, s := range e.subs {
		subs[i] = s.fn
	}
	e.mu.Unlock()

	for _, fn := range subs {
		fn := fn
		e.sched.Enqueue(func() { fn(st) })
	}
}
