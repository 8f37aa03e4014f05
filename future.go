package asyncdata

import (
	"context"
	"sync"
)

// Future is the awaitable side of an execution. It never carries the
// producer's error: failures land on the entry.
type Future struct {
	done chan struct{}
	once sync.Once
}

func newFuture() *Future { return &Future{done: make(chan struct{})} }

var settled = func() *Future {
	f := newFuture()
	f.resolve()
	return f
}()

func (f *Future) resolve() { f.once.Do(func() { close(f.done) }) }

// Done is closed once the execution (or the execution that superseded it)
// settled.
func (f *Future) Done() <-chan struct{} {
	if f == nil {
		return settled.done
	}
	return f.done
}

// Wait blocks until Done or ctx ends; only ctx errors are returned.
func (f *Future) Wait(ctx context.Context) error {
	select {
	case <-f.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
